package components

import (
	"errors"
	"strings"
	"testing"
	"time"

	serial "github.com/allbin/serialman"
	"github.com/allbin/serialman/internal/payload"
	"github.com/allbin/serialman/internal/session"
	tea "github.com/charmbracelet/bubbletea"
)

func TestFormatEntry(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 6000000, time.UTC)
	tests := []struct {
		name  string
		hex   bool
		entry Entry
		want  []string
	}{
		{"rx text", false, Entry{At: at, Dir: DirRX, Data: []byte("ok\r\n")}, []string{"RX", "ok⏎", "03:04:05.006"}},
		{"rx hex", true, Entry{At: at, Dir: DirRX, Data: []byte("ok")}, []string{"RX", "6F 6B"}},
		{"tx", false, Entry{At: at, Dir: DirTX, Data: []byte("AT")}, []string{"TX", "AT"}},
		{"tx failure", false, Entry{At: at, Dir: DirTX, Data: []byte("AT"), Note: "port gone"}, []string{"TX", "port gone"}},
		{"info", false, Entry{At: at, Dir: DirInfo, Note: "opened"}, []string{"-- opened"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDataFormatter(tt.hex, true).FormatEntry(tt.entry)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("FormatEntry() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestFormatterToggles(t *testing.T) {
	df := NewDataFormatter(false, true)
	e := Entry{At: time.Now(), Dir: DirRX, Data: []byte{0x41}}

	df.ToggleHex()
	if !df.Hex() || !strings.Contains(df.FormatEntry(e), "41") {
		t.Errorf("hex mode not applied: %q", df.FormatEntry(e))
	}
	df.ToggleTimestamps()
	if strings.Contains(df.FormatEntry(e), "[") {
		t.Errorf("timestamp still rendered: %q", df.FormatEntry(e))
	}
}

func TestTerminalScrollback(t *testing.T) {
	term := NewTerminal(40, 5)
	for i := 0; i < maxEntries+10; i++ {
		term.Add(Entry{Dir: DirRX, Data: []byte{byte('a' + i%26)}})
	}
	if got := len(term.Entries()); got != maxEntries {
		t.Errorf("entries = %d, want %d", got, maxEntries)
	}

	term.Clear()
	if len(term.Entries()) != 0 {
		t.Error("Clear() kept entries")
	}
}

func TestInputSubmit(t *testing.T) {
	in := NewInput(payload.LineEndingCRLF)
	in.Focus()
	in.SetValue("AT")

	data, err := in.Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if string(data) != "AT\r\n" {
		t.Errorf("Submit() = %q, want %q", data, "AT\r\n")
	}
	if in.Value() != "" {
		t.Errorf("field not cleared: %q", in.Value())
	}

	in.ToggleHex()
	in.CycleLineEnding()
	in.SetValue("4")
	if _, err := in.Submit(); err == nil {
		t.Error("odd hex digit count should fail")
	}
	if in.Value() != "4" {
		t.Error("failed submit should keep the value for editing")
	}
}

func TestInputHistory(t *testing.T) {
	in := NewInput(payload.LineEndingNone)
	for _, line := range []string{"one", "two", "two", " "} {
		in.AddToHistory(line)
	}
	if got := in.History(); len(got) != 2 {
		t.Fatalf("History() = %v, want [one two]", got)
	}

	in.SetValue("draft")
	in.NavigateHistoryUp()
	in.NavigateHistoryUp()
	if in.Value() != "one" {
		t.Errorf("after two ups = %q, want one", in.Value())
	}
	in.NavigateHistoryDown()
	in.NavigateHistoryDown()
	if in.Value() != "draft" {
		t.Errorf("after returning = %q, want draft", in.Value())
	}

	for i := 0; i < historyLimit+5; i++ {
		in.AddToHistory(strings.Repeat("x", i+1))
	}
	if len(in.History()) != historyLimit {
		t.Errorf("history length = %d, want %d", len(in.History()), historyLimit)
	}
}

func TestSelector(t *testing.T) {
	s := NewSelector(0)
	if s.Baud() != 115200 {
		t.Errorf("default baud = %d, want 115200", s.Baud())
	}
	if s.Port() != "" {
		t.Errorf("Port() with no ports = %q", s.Port())
	}

	s.SetPorts([]serial.PortInfo{{Path: "/dev/ttyS0"}, {Path: "/dev/ttyUSB0"}})
	s.Step(-1)
	if s.Port() != "/dev/ttyUSB0" {
		t.Errorf("Step(-1) should wrap, got %q", s.Port())
	}

	// Refresh keeps the selection when the port survives
	s.SetPorts([]serial.PortInfo{{Path: "/dev/ttyACM0"}, {Path: "/dev/ttyUSB0"}})
	if s.Port() != "/dev/ttyUSB0" {
		t.Errorf("selection lost on refresh: %q", s.Port())
	}

	s.NextField()
	s.Step(1)
	if s.Baud() != 300 {
		t.Errorf("baud after wrap = %d, want 300", s.Baud())
	}

	s.SetLocked(true)
	s.Step(1)
	if s.Baud() != 300 {
		t.Error("locked selector changed")
	}
}

func TestSelectorCustomBaud(t *testing.T) {
	s := NewSelector(250000)
	if s.Baud() != 250000 {
		t.Errorf("Baud() = %d, want 250000", s.Baud())
	}
	s.Select("/dev/ttyFAKE")
	if s.Port() != "/dev/ttyFAKE" {
		t.Errorf("Select() = %q", s.Port())
	}
}

func TestStatusBarView(t *testing.T) {
	sb := NewStatusBar("termios")
	sb.SetWidth(120)
	sb.SetInfo(SessionInfo{State: session.StateOpen, Port: "/dev/ttyUSB0", BaudRate: 9600, Driver: "termios", DTR: true})

	view := sb.View(false, "12:00:00")
	for _, want := range []string{"NORMAL", "/dev/ttyUSB0", "open", "DTR", "RTS", "9600", "termios", "12:00:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	sb.SetMessage("boom", errors.New("boom"))
	if !strings.Contains(sb.View(true, ""), "INSERT") || !strings.Contains(sb.View(true, ""), "boom") {
		t.Error("insert mode or message not rendered")
	}
}

func TestTerminalIgnoresKeys(t *testing.T) {
	term := NewTerminal(10, 2)
	if cmd := term.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}); cmd != nil {
		t.Error("keys should not reach the viewport")
	}
}
