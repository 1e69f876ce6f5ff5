package session

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	serial "github.com/allbin/serialman"
	"github.com/allbin/serialman/internal/logging"
)

// step is one scripted Read result.
type step struct {
	data string
	err  error
}

// fakeDevice replays scripted reads, then returns 0, nil (or repeat, if set)
// until closed.
type fakeDevice struct {
	mu      sync.Mutex
	steps   []step
	repeat  string
	closed  bool
	closes  int
	dtr     []bool
	rts     []bool
	lineErr error
	written bytes.Buffer

	readers    int
	maxReaders int
}

func (f *fakeDevice) Read(buf []byte) (int, error) {
	f.mu.Lock()
	f.readers++
	if f.readers > f.maxReaders {
		f.maxReaders = f.readers
	}
	f.mu.Unlock()
	// widen the window in which a second reader would overlap
	time.Sleep(50 * time.Microsecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.readers--

	if f.closed {
		return 0, serial.ErrPortClosed
	}
	if len(f.steps) == 0 {
		return copy(buf, f.repeat), nil
	}
	s := f.steps[0]
	f.steps = f.steps[1:]
	return copy(buf, s.data), s.err
}

func (f *fakeDevice) Write(data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, serial.ErrPortClosed
	}
	return f.written.Write(data)
}

func (f *fakeDevice) SetDTR(state bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lineErr != nil {
		return f.lineErr
	}
	f.dtr = append(f.dtr, state)
	return nil
}

func (f *fakeDevice) SetRTS(state bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lineErr != nil {
		return f.lineErr
	}
	f.rts = append(f.rts, state)
	return nil
}

func (f *fakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	if f.closed {
		return serial.ErrPortClosed
	}
	f.closed = true
	return nil
}

func (f *fakeDevice) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.steps)
}

func (f *fakeDevice) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// recorder is a Handler collecting everything it is given.
type recorder struct {
	mu     sync.Mutex
	chunks []Chunk
	closed []ClosedEvent
	closeC chan struct{}
}

func newRecorder() *recorder {
	return &recorder{closeC: make(chan struct{}, 8)}
}

func (r *recorder) OnBytesReceived(c Chunk) {
	r.mu.Lock()
	r.chunks = append(r.chunks, c)
	r.mu.Unlock()
}

func (r *recorder) OnSessionClosed(e ClosedEvent) {
	r.mu.Lock()
	r.closed = append(r.closed, e)
	r.mu.Unlock()
	r.closeC <- struct{}{}
}

func (r *recorder) data() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.chunks))
	for i, c := range r.chunks {
		out[i] = string(c.Data)
	}
	return out
}

func (r *recorder) events() []ClosedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ClosedEvent(nil), r.closed...)
}

func (r *recorder) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-r.closeC:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnSessionClosed")
	}
}

// newController builds a Controller whose opener hands out dev.
func newController(t *testing.T, dev Device, h Handler, opts ...Option) *Controller {
	t.Helper()
	base := []Option{
		WithOpener(func(context.Context, PortDescriptor) (Device, error) { return dev, nil }),
		WithHandler(h),
		WithPollInterval(time.Millisecond),
		WithLogger(logging.Discard()),
	}
	c, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// eventually polls cond until it holds or two seconds pass.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
