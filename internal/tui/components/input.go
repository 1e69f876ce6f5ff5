package components

import (
	"strings"

	"github.com/allbin/serialman/internal/payload"
	"github.com/allbin/serialman/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const historyLimit = 100

// Input is the send box: a text field, the line ending appended to each
// line, text/hex mode and a command history.
type Input struct {
	textInput     textinput.Model
	lineEnding    payload.LineEnding
	hex           bool
	history       []string
	historyIndex  int
	currentInput  string // Store current input when navigating history
	terminalWidth int
}

func NewInput(lineEnding payload.LineEnding) *Input {
	ti := textinput.New()
	ti.Placeholder = "Type a line and press Enter to send..."
	ti.CharLimit = 1024
	ti.Prompt = ""

	return &Input{
		textInput:    ti,
		lineEnding:   lineEnding,
		historyIndex: -1,
	}
}

func (i *Input) SetWidth(width int) {
	i.terminalWidth = width
	// border(2) + padding(2) + prompt(1) + space(1)
	usable := width - 6
	if usable < 20 {
		usable = 20
	}
	i.textInput.Width = usable
}

func (i *Input) Focus()                         { i.textInput.Focus() }
func (i *Input) Blur()                          { i.textInput.Blur() }
func (i *Input) Value() string                  { return i.textInput.Value() }
func (i *Input) SetValue(v string)              { i.textInput.SetValue(v) }
func (i *Input) Hex() bool                      { return i.hex }
func (i *Input) LineEnding() payload.LineEnding { return i.lineEnding }

func (i *Input) CycleLineEnding() {
	i.lineEnding = i.lineEnding.Next()
}

func (i *Input) ToggleHex() {
	i.hex = !i.hex
	if i.hex {
		i.textInput.Placeholder = "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)..."
	} else {
		i.textInput.Placeholder = "Type a line and press Enter to send..."
	}
}

// Submit encodes the current value for sending. On success the value is
// recorded in history and the field is cleared; on error it is kept for editing.
func (i *Input) Submit() ([]byte, error) {
	value := i.textInput.Value()
	data, err := payload.Encode(value, i.hex, i.lineEnding)
	if err != nil {
		return nil, err
	}
	i.AddToHistory(value)
	i.textInput.SetValue("")
	return data, nil
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

func (i *Input) View(insertMode bool) string {
	promptSymbol := ">"
	promptStyle := lipgloss.NewStyle().Foreground(styles.Green).Bold(true)
	if i.hex {
		promptSymbol = "#"
		promptStyle = lipgloss.NewStyle().Foreground(styles.Yellow).Bold(true)
	}
	prompt := promptStyle.Render(promptSymbol)

	var content string
	if insertMode {
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", i.textInput.View())
	} else {
		hint := lipgloss.NewStyle().
			Foreground(styles.Overlay0).
			Render("Press 'i' to type, ending " + i.lineEnding.String())
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", hint)
	}

	// RoundedBorder and padding take 4 columns
	width := i.terminalWidth - 4
	if width < 10 {
		width = 10
	}
	style := styles.InputStyle.Width(width)
	if insertMode {
		style = style.BorderForeground(styles.Green)
	}
	return style.Render(content)
}

// AddToHistory records a line unless it is blank or repeats the last one.
func (i *Input) AddToHistory(line string) {
	i.historyIndex = -1
	i.currentInput = ""
	if strings.TrimSpace(line) == "" {
		return
	}
	if n := len(i.history); n > 0 && i.history[n-1] == line {
		return
	}
	i.history = append(i.history, line)
	if len(i.history) > historyLimit {
		i.history = i.history[1:]
	}
}

func (i *Input) History() []string { return i.history }

// NavigateHistoryUp moves up in command history
func (i *Input) NavigateHistoryUp() {
	if len(i.history) == 0 {
		return
	}
	if i.historyIndex == -1 {
		i.currentInput = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}
	i.textInput.SetValue(i.history[i.historyIndex])
}

// NavigateHistoryDown moves down in command history
func (i *Input) NavigateHistoryDown() {
	if len(i.history) == 0 || i.historyIndex == -1 {
		return
	}
	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}
	i.historyIndex = -1
	i.textInput.SetValue(i.currentInput)
	i.currentInput = ""
}
