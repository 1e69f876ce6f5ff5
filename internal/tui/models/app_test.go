package models

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	serial "github.com/allbin/serialman"
	"github.com/allbin/serialman/internal/logging"
	"github.com/allbin/serialman/internal/payload"
	"github.com/allbin/serialman/internal/session"
	"github.com/allbin/serialman/internal/tui/components"
	tea "github.com/charmbracelet/bubbletea"
)

// loopDevice returns queued input once and records writes.
type loopDevice struct {
	mu      sync.Mutex
	pending []byte
	written []byte
	dtr     bool
}

func (d *loopDevice) Read(buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(buf, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *loopDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.written = append(d.written, p...)
	return len(p), nil
}

func (d *loopDevice) SetDTR(state bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dtr = state
	return nil
}

func (d *loopDevice) SetRTS(bool) error { return nil }
func (d *loopDevice) Close() error      { return nil }

func (d *loopDevice) Written() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.written)
}

type harness struct {
	app  *App
	dev  *loopDevice
	msgs chan tea.Msg
}

func newHarness(t *testing.T, port string) *harness {
	t.Helper()
	h := &harness{
		dev:  &loopDevice{pending: []byte("hello")},
		msgs: make(chan tea.Msg, 64),
	}
	ctrl, err := session.New(
		session.WithOpener(func(context.Context, session.PortDescriptor) (session.Device, error) { return h.dev, nil }),
		session.WithHandler(Handler(func(m tea.Msg) { h.msgs <- m })),
		session.WithPollInterval(time.Millisecond),
		session.WithLogger(logging.Discard()),
	)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	t.Cleanup(func() { ctrl.Close() })

	h.app = NewApp(Config{
		Controller: ctrl,
		List:       func() ([]serial.PortInfo, error) { return []serial.PortInfo{{Path: "/dev/ttyUSB0"}}, nil },
		Driver:     "fake",
		Port:       port,
		BaudRate:   9600,
		LineEnding: payload.LineEndingCRLF,
	})
	h.app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

// press feeds a key and runs the resulting command, if any, back into the app.
func (h *harness) press(t *testing.T, k tea.KeyMsg) {
	t.Helper()
	_, cmd := h.app.Update(k)
	if cmd != nil {
		h.app.Update(cmd())
	}
}

// await delivers handler messages until one of type T arrives.
func await[T tea.Msg](t *testing.T, h *harness) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-h.msgs:
			h.app.Update(m)
			if v, ok := m.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func hasEntry(entries []components.Entry, dir components.Direction, text string) bool {
	for _, e := range entries {
		if e.Dir == dir && (strings.Contains(string(e.Data), text) || strings.Contains(e.Note, text)) {
			return true
		}
	}
	return false
}

func TestAppSessionLifecycle(t *testing.T) {
	h := newHarness(t, "/dev/ttyUSB0")

	h.press(t, runes("o"))
	if got := h.app.StatusBar().Info(); got.State != session.StateOpen || got.Port != "/dev/ttyUSB0" || got.BaudRate != 9600 {
		t.Fatalf("after open status = %+v", got)
	}

	chunk := await[ChunkMsg](t, h)
	if string(chunk.Chunk.Data) != "hello" {
		t.Errorf("chunk = %q, want hello", chunk.Chunk.Data)
	}
	if !hasEntry(h.app.Terminal().Entries(), components.DirRX, "hello") {
		t.Error("received bytes not logged")
	}

	h.press(t, runes("d"))
	if !h.app.StatusBar().Info().DTR {
		t.Error("DTR not shown high after toggle")
	}

	// selection is frozen while open
	h.press(t, runes("l"))
	if h.app.Selector().Port() != "/dev/ttyUSB0" {
		t.Error("selector moved during session")
	}

	h.press(t, runes("o"))
	ev := await[SessionClosedMsg](t, h)
	if ev.Event.Reason != session.CloseRequested {
		t.Errorf("close reason = %v, want requested", ev.Event.Reason)
	}
	info := h.app.StatusBar().Info()
	if info.State != session.StateClosed || info.DTR || info.RTS {
		t.Errorf("after close status = %+v, want closed with lines low", info)
	}
}

func TestAppSend(t *testing.T) {
	h := newHarness(t, "/dev/ttyUSB0")
	h.press(t, runes("o"))

	h.press(t, runes("i"))
	if h.app.Mode() != InputModeInsert {
		t.Fatal("not in insert mode")
	}
	h.press(t, runes("AT"))
	h.press(t, tea.KeyMsg{Type: tea.KeyEnter})

	if got := h.dev.Written(); got != "AT\r\n" {
		t.Errorf("written = %q, want %q", got, "AT\r\n")
	}
	if !hasEntry(h.app.Terminal().Entries(), components.DirTX, "AT") {
		t.Error("TX entry missing")
	}

	h.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	if h.app.Mode() != InputModeNormal {
		t.Error("esc should return to normal mode")
	}
}

func TestAppRequiresOpenSession(t *testing.T) {
	h := newHarness(t, "/dev/ttyUSB0")

	h.press(t, runes("d"))
	if h.app.StatusBar().Err() == nil {
		t.Error("DTR toggle while closed should report an error")
	}

	h.press(t, runes("i"))
	h.press(t, runes("x"))
	h.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	if h.dev.Written() != "" {
		t.Error("nothing should be written while closed")
	}
}

func TestAppNoPort(t *testing.T) {
	h := newHarness(t, "")
	h.press(t, runes("o"))
	if h.app.StatusBar().Err() == nil || h.app.StatusBar().Info().State != session.StateClosed {
		t.Error("open without a port should fail in place")
	}

	h.press(t, runes("r"))
	if h.app.Selector().Port() != "/dev/ttyUSB0" {
		t.Errorf("refresh did not load ports: %q", h.app.Selector().Port())
	}
}

func TestHandlerForwards(t *testing.T) {
	var got []tea.Msg
	hd := Handler(func(m tea.Msg) { got = append(got, m) })
	hd.OnBytesReceived(session.Chunk{Seq: 1, Data: []byte("x")})
	hd.OnSessionClosed(session.ClosedEvent{Reason: session.CloseDeviceGone})

	if len(got) != 2 {
		t.Fatalf("forwarded %d messages, want 2", len(got))
	}
	if _, ok := got[0].(ChunkMsg); !ok {
		t.Errorf("first message = %T, want ChunkMsg", got[0])
	}
	if _, ok := got[1].(SessionClosedMsg); !ok {
		t.Errorf("second message = %T, want SessionClosedMsg", got[1])
	}
}

func TestInputModeString(t *testing.T) {
	if InputModeNormal.String() != "NORMAL" || InputModeInsert.String() != "INSERT" {
		t.Error("unexpected mode names")
	}
}
