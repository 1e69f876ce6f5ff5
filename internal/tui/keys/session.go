package keys

import "github.com/charmbracelet/bubbles/key"

// SessionKeys drive the open command: port selection, the session toggle,
// control lines and the send box.
type SessionKeys struct {
	Quit       key.Binding
	Help       key.Binding
	InsertMode key.Binding
	Escape     key.Binding
	Toggle     key.Binding
	Refresh    key.Binding
	NextField  key.Binding
	PrevOption key.Binding
	NextOption key.Binding
	DTR        key.Binding
	RTS        key.Binding
	Clear      key.Binding
	ToggleHex  key.Binding
	Enter      key.Binding
	LineEnding key.Binding
	SendMode   key.Binding
	Up         key.Binding
	Down       key.Binding
}

func NewSessionKeys() SessionKeys {
	return SessionKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		InsertMode: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "type to send"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "leave send box"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open/close port"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh ports"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "port/baud field"),
		),
		PrevOption: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous value"),
		),
		NextOption: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next value"),
		),
		DTR: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle DTR"),
		),
		RTS: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle RTS"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear buffer"),
		),
		ToggleHex: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "toggle hex view"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send line"),
		),
		LineEnding: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "line ending"),
		),
		SendMode: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "text/hex input"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "history back"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "history forward"),
		),
	}
}

func (k SessionKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Toggle, k.InsertMode, k.DTR, k.RTS, k.Quit}
}

func (k SessionKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Refresh, k.NextField, k.PrevOption, k.NextOption},
		{k.DTR, k.RTS, k.Clear, k.ToggleHex},
		{k.InsertMode, k.Escape, k.Enter, k.LineEnding, k.SendMode, k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
