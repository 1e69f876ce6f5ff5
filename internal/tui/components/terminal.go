package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxEntries bounds the scrollback
const maxEntries = 5000

// Terminal is the scrolling session log.
type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	entries   []Entry
	lines     []string
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(false, true),
	}
}

func (t *Terminal) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Add(e Entry) {
	t.entries = append(t.entries, e)
	t.lines = append(t.lines, t.formatter.FormatEntry(e))
	if len(t.entries) > maxEntries {
		drop := len(t.entries) - maxEntries
		t.entries = t.entries[drop:]
		t.lines = t.lines[drop:]
	}
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Entries() []Entry { return t.entries }

// Refresh re-renders every entry, after a display mode change.
func (t *Terminal) Refresh() {
	t.lines = t.formatter.FormatEntries(t.entries)
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Clear() {
	t.entries = nil
	t.lines = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.Refresh()
}

func (t *Terminal) ToggleTimestamps() {
	t.formatter.ToggleTimestamps()
	t.Refresh()
}

func (t *Terminal) Hex() bool { return t.formatter.Hex() }

// Update forwards only scrolling input to the viewport so our key bindings
// are not consumed.
func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	switch msg.(type) {
	case tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
