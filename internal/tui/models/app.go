package models

import (
	"context"
	"fmt"
	"time"

	serial "github.com/allbin/serialman"
	"github.com/allbin/serialman/internal/payload"
	"github.com/allbin/serialman/internal/session"
	"github.com/allbin/serialman/internal/tui/components"
	"github.com/allbin/serialman/internal/tui/keys"
	"github.com/allbin/serialman/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

// ChunkMsg carries received bytes from the reader goroutine.
type ChunkMsg struct{ Chunk session.Chunk }

// SessionClosedMsg reports the end of a session, requested or not.
type SessionClosedMsg struct{ Event session.ClosedEvent }

type openResultMsg struct {
	session *session.Session
	err     error
}

type closeResultMsg struct{ err error }

type portsMsg struct {
	ports []serial.PortInfo
	err   error
}

type lineResultMsg struct {
	line  string
	state bool
	err   error
}

type writeResultMsg struct {
	at   time.Time
	data []byte
	err  error
}

type tickMsg time.Time

// Handler forwards session callbacks into the program with send, normally
// (*tea.Program).Send. Controller operations that wait for the reader are
// run from commands so the event loop keeps draining these messages.
func Handler(send func(tea.Msg)) session.Handler {
	return session.HandlerFuncs{
		BytesReceived: func(c session.Chunk) { send(ChunkMsg{Chunk: c}) },
		SessionClosed: func(e session.ClosedEvent) { send(SessionClosedMsg{Event: e}) },
	}
}

// Config wires the app to a controller and a port lister.
type Config struct {
	Context    context.Context
	Controller *session.Controller
	List       func() ([]serial.PortInfo, error)
	Driver     string
	Port       string
	BaudRate   int
	LineEnding payload.LineEnding
	AutoOpen   bool
}

// App is the interactive session screen.
type App struct {
	ctx      context.Context
	ctrl     *session.Controller
	list     func() ([]serial.PortInfo, error)
	autoOpen bool

	selector  *components.Selector
	terminal  *components.Terminal
	input     *components.Input
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.SessionKeys

	inputMode InputMode
	ready     bool
}

func NewApp(cfg Config) *App {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	a := &App{
		ctx:       ctx,
		ctrl:      cfg.Controller,
		list:      cfg.List,
		autoOpen:  cfg.AutoOpen && cfg.Port != "",
		selector:  components.NewSelector(cfg.BaudRate),
		terminal:  components.NewTerminal(0, 0),
		input:     components.NewInput(cfg.LineEnding),
		statusBar: components.NewStatusBar(cfg.Driver),
		help:      help.New(),
		keys:      keys.NewSessionKeys(),
	}
	a.selector.Select(cfg.Port)
	a.syncStatus()
	return a
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.refreshPorts(), tick()}
	if a.autoOpen {
		cmds = append(cmds, a.openSession())
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (a *App) Mode() InputMode                  { return a.inputMode }
func (a *App) Terminal() *components.Terminal   { return a.terminal }
func (a *App) StatusBar() *components.StatusBar { return a.statusBar }
func (a *App) Selector() *components.Selector   { return a.selector }

func (a *App) refreshPorts() tea.Cmd {
	if a.list == nil {
		return nil
	}
	list := a.list
	return func() tea.Msg {
		ports, err := list()
		return portsMsg{ports: ports, err: err}
	}
}

func (a *App) openSession() tea.Cmd {
	desc := session.PortDescriptor{Name: a.selector.Port(), BaudRate: a.selector.Baud()}
	if desc.Name == "" {
		a.statusBar.SetMessage("no port selected", serial.ErrDeviceNotFound)
		return nil
	}
	ctrl, ctx := a.ctrl, a.ctx
	a.statusBar.SetMessage("opening "+desc.Name, nil)
	return func() tea.Msg {
		s, err := ctrl.Open(ctx, desc)
		return openResultMsg{session: s, err: err}
	}
}

func (a *App) closeSession() tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg { return closeResultMsg{err: ctrl.Close()} }
}

func (a *App) toggleLine(line string) tea.Cmd {
	cur := a.ctrl.Current()
	if cur == nil || a.ctrl.State() != session.StateOpen {
		a.statusBar.SetMessage(line+": port is not open", session.ErrNotOpen)
		return nil
	}
	ctrl := a.ctrl
	if line == "DTR" {
		state := !cur.DTR()
		return func() tea.Msg { return lineResultMsg{line: line, state: state, err: ctrl.SetDTR(state)} }
	}
	state := !cur.RTS()
	return func() tea.Msg { return lineResultMsg{line: line, state: state, err: ctrl.SetRTS(state)} }
}

func (a *App) send() tea.Cmd {
	if a.ctrl.State() != session.StateOpen {
		a.statusBar.SetMessage("send: port is not open", session.ErrNotOpen)
		return nil
	}
	data, err := a.input.Submit()
	if err != nil {
		a.statusBar.SetMessage("send: "+err.Error(), err)
		return nil
	}
	ctrl := a.ctrl
	return func() tea.Msg {
		_, err := ctrl.Write(data)
		return writeResultMsg{at: time.Now(), data: data, err: err}
	}
}

// syncStatus copies controller state into the status bar and locks the
// selector while a session exists.
func (a *App) syncStatus() {
	info := components.SessionInfo{
		State:    a.ctrl.State(),
		Port:     a.selector.Port(),
		BaudRate: a.selector.Baud(),
		Driver:   a.statusBar.Info().Driver,
	}
	if cur := a.ctrl.Current(); cur != nil {
		d := cur.Descriptor()
		info.Port, info.BaudRate = d.Name, d.BaudRate
		info.DTR, info.RTS = cur.DTR(), cur.RTS()
	}
	a.statusBar.SetInfo(info)
	a.selector.SetLocked(info.State != session.StateClosed)
}

func (a *App) note(format string, args ...any) {
	a.terminal.Add(components.Entry{At: time.Now(), Dir: components.DirInfo, Note: fmt.Sprintf(format, args...)})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	a.syncStatus()
	return a, cmd
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// selector(1) + border(2) + input(3) + status(1) + help(1)
		a.terminal.SetSize(msg.Width-2, msg.Height-8)
		a.input.SetWidth(msg.Width)
		a.statusBar.SetWidth(msg.Width)
		a.help.Width = msg.Width
		a.ready = true

	case tea.MouseMsg:
		return a.terminal.Update(msg)

	case tickMsg:
		return tick()

	case portsMsg:
		if msg.err != nil {
			a.statusBar.SetMessage("listing ports: "+msg.err.Error(), msg.err)
			return nil
		}
		a.selector.SetPorts(msg.ports)
		a.statusBar.SetMessage(fmt.Sprintf("%d ports", len(msg.ports)), nil)

	case openResultMsg:
		if msg.err != nil {
			a.statusBar.SetMessage(msg.err.Error(), msg.err)
			a.note("open failed: %v", msg.err)
			return nil
		}
		d := msg.session.Descriptor()
		a.statusBar.SetMessage("", nil)
		a.note("opened %s at %d baud", d.Name, d.BaudRate)

	case closeResultMsg:
		if msg.err != nil {
			a.statusBar.SetMessage(msg.err.Error(), msg.err)
		}

	case SessionClosedMsg:
		ev := msg.Event
		if ev.Err != nil {
			a.statusBar.SetMessage(ev.Err.Error(), ev.Err)
			a.note("%s closed (%s): %v", ev.Port.Name, ev.Reason, ev.Err)
		} else {
			a.statusBar.SetMessage("", nil)
			a.note("%s closed", ev.Port.Name)
		}

	case ChunkMsg:
		a.terminal.Add(components.Entry{At: msg.Chunk.At, Dir: components.DirRX, Data: msg.Chunk.Data})

	case lineResultMsg:
		if msg.err != nil {
			a.statusBar.SetMessage(msg.err.Error(), msg.err)
			return nil
		}
		level := "low"
		if msg.state {
			level = "high"
		}
		a.note("%s %s", msg.line, level)

	case writeResultMsg:
		e := components.Entry{At: msg.at, Dir: components.DirTX, Data: msg.data}
		if msg.err != nil {
			e.Note = msg.err.Error()
		}
		a.terminal.Add(e)

	case tea.KeyMsg:
		if a.inputMode == InputModeInsert {
			return a.insertKey(msg)
		}
		return a.normalKey(msg)
	}
	return nil
}

func (a *App) insertKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Escape):
		a.inputMode = InputModeNormal
		a.input.Blur()
	case key.Matches(msg, a.keys.Enter):
		return a.send()
	case key.Matches(msg, a.keys.LineEnding):
		a.input.CycleLineEnding()
	case key.Matches(msg, a.keys.SendMode):
		a.input.ToggleHex()
	case key.Matches(msg, a.keys.Up):
		a.input.NavigateHistoryUp()
	case key.Matches(msg, a.keys.Down):
		a.input.NavigateHistoryDown()
	default:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return cmd
	}
	return nil
}

func (a *App) normalKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, a.keys.InsertMode):
		a.inputMode = InputModeInsert
		a.input.Focus()
	case key.Matches(msg, a.keys.Toggle):
		switch a.ctrl.State() {
		case session.StateClosed:
			return a.openSession()
		case session.StateOpen:
			return a.closeSession()
		}
	case key.Matches(msg, a.keys.Refresh):
		return a.refreshPorts()
	case key.Matches(msg, a.keys.NextField):
		a.selector.NextField()
	case key.Matches(msg, a.keys.PrevOption):
		a.selector.Step(-1)
	case key.Matches(msg, a.keys.NextOption):
		a.selector.Step(1)
	case key.Matches(msg, a.keys.DTR):
		return a.toggleLine("DTR")
	case key.Matches(msg, a.keys.RTS):
		return a.toggleLine("RTS")
	case key.Matches(msg, a.keys.Clear):
		a.terminal.Clear()
	case key.Matches(msg, a.keys.ToggleHex):
		a.terminal.ToggleHex()
	case key.Matches(msg, a.keys.SendMode):
		a.input.ToggleHex()
	}
	return nil
}

func (a *App) View() string {
	content := "Initializing..."
	if a.ready {
		content = a.terminal.View()
	}
	insert := a.inputMode == InputModeInsert

	return lipgloss.JoinVertical(
		lipgloss.Left,
		a.selector.View(),
		styles.ContentBorderStyle.Render(content),
		a.input.View(insert),
		a.statusBar.View(insert, time.Now().Format("15:04:05")),
		styles.HelpStyle.Render(a.help.View(a.keys)),
	)
}
