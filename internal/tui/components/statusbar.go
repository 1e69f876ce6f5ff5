package components

import (
	"fmt"

	"github.com/allbin/serialman/internal/session"
	"github.com/allbin/serialman/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// SessionInfo is what the status bar shows about the session.
type SessionInfo struct {
	State    session.State
	Port     string
	BaudRate int
	Driver   string
	DTR      bool
	RTS      bool
}

type StatusBar struct {
	info    SessionInfo
	message string
	err     error
	width   int
}

func NewStatusBar(driver string) *StatusBar {
	return &StatusBar{info: SessionInfo{Driver: driver}}
}

func (sb *StatusBar) SetWidth(width int)       { sb.width = width }
func (sb *StatusBar) SetInfo(info SessionInfo) { sb.info = info }
func (sb *StatusBar) Info() SessionInfo        { return sb.info }

// SetMessage shows a transient note; a non-nil err renders it as an error.
func (sb *StatusBar) SetMessage(msg string, err error) {
	sb.message = msg
	sb.err = err
}

func (sb *StatusBar) Message() string { return sb.message }
func (sb *StatusBar) Err() error      { return sb.err }

func (sb *StatusBar) stateIndicator() string {
	switch sb.info.State {
	case session.StateOpen:
		return lipgloss.NewStyle().Foreground(styles.Green).Render("●")
	case session.StateOpening, session.StateClosing:
		return lipgloss.NewStyle().Foreground(styles.Yellow).Render("○")
	default:
		if sb.err != nil {
			return lipgloss.NewStyle().Foreground(styles.Red).Render("✗")
		}
		return lipgloss.NewStyle().Foreground(styles.Red).Render("○")
	}
}

// View renders the bar: mode, port and state on the left, line levels,
// speed and any message on the right.
func (sb *StatusBar) View(insertMode bool, timestamp string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeText, modeBg := "NORMAL", styles.Blue
	if insertMode {
		modeText, modeBg = "INSERT", styles.Green
	}
	mode := lipgloss.NewStyle().
		Foreground(styles.Base).
		Background(modeBg).
		Bold(true).
		Padding(0, 1).
		Render(modeText)

	portName := sb.info.Port
	if portName == "" {
		portName = "no port"
	}
	port := lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true).Padding(0, 1).Render(portName)
	state := lipgloss.NewStyle().Foreground(styles.Subtext1).Padding(0, 1).Render(sb.info.State.String())

	divider := lipgloss.NewStyle().Foreground(styles.Surface2).Padding(0, 1).Render("│")

	lines := lipgloss.JoinHorizontal(lipgloss.Left,
		styles.LineStyle(sb.info.DTR).Render("DTR"), " ",
		styles.LineStyle(sb.info.RTS).Render("RTS"))

	speed := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Padding(0, 1).
		Render(fmt.Sprintf("⚡ %d baud 8N1 [%s]", sb.info.BaudRate, sb.info.Driver))

	clock := lipgloss.NewStyle().Foreground(styles.Subtext1).Padding(0, 1).Render(timestamp)

	left := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, sb.stateIndicator(), state, divider, lines)
	if sb.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(styles.Subtext0).Padding(0, 1)
		if sb.err != nil {
			msgStyle = styles.ErrorStyle.Padding(0, 1)
		}
		left = lipgloss.JoinHorizontal(lipgloss.Left, left, divider, msgStyle.Render(sb.message))
	}
	right := lipgloss.JoinHorizontal(lipgloss.Left, speed, divider, clock)

	spacerWidth := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, left, spacer, right))
}
