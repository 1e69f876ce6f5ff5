// Package session owns the single open serial connection of the application:
// its lifecycle state machine, the reader goroutine and the typed callbacks
// that carry received bytes to the presentation layer.
package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrNotOpen is wrapped in a serial.DeviceError when an operation needs
	// an open session and there is none.
	ErrNotOpen = errors.New("no open session")

	// ErrSessionActive is returned by Open under PolicyRefuse while a session
	// is open or being opened.
	ErrSessionActive = errors.New("a session is already active")
)

// PortDescriptor identifies the port and speed of a session. It does not
// change once the session has started.
type PortDescriptor struct {
	Name     string
	BaudRate int
}

// State is the controller lifecycle state.
type State int32

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// OpenPolicy decides what Open does while another session is active.
type OpenPolicy int

const (
	// PolicyRefuse fails with ErrSessionActive.
	PolicyRefuse OpenPolicy = iota
	// PolicyReplace closes the active session, waits for its reader to
	// exit, then opens the new one.
	PolicyReplace
)

func (p OpenPolicy) String() string {
	if p == PolicyReplace {
		return "replace"
	}
	return "refuse"
}

// Chunk is one batch of bytes read in a single poll iteration. Data is owned
// by the receiver and is never modified by the reader afterwards.
type Chunk struct {
	Seq  uint64 // 1-based, per session
	Data []byte
	At   time.Time
}

// CloseReason tells why a session ended.
type CloseReason int

const (
	CloseRequested CloseReason = iota
	CloseDeviceGone
	CloseReadError
)

func (r CloseReason) String() string {
	switch r {
	case CloseDeviceGone:
		return "device_gone"
	case CloseReadError:
		return "read_error"
	default:
		return "requested"
	}
}

// ClosedEvent is delivered exactly once per session. Err is nil for
// CloseRequested and a *serial.DeviceError otherwise.
type ClosedEvent struct {
	Port   PortDescriptor
	Reason CloseReason
	Err    error
}

// Device is the transport a session drives. serial.Port satisfies it; a
// device that also implements serial.ReadWaiter is polled event-driven.
type Device interface {
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	SetDTR(state bool) error
	SetRTS(state bool) error
	Close() error
}

// Opener opens the device for a descriptor.
type Opener func(ctx context.Context, d PortDescriptor) (Device, error)

// Session is the handle of one open connection.
type Session struct {
	id       uint64
	desc     PortDescriptor
	dev      Device
	openedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}

	dtr atomic.Bool
	rts atomic.Bool
	seq uint64 // reader goroutine only

	releasing bool // guarded by Controller.mu
}

func (s *Session) ID() uint64                 { return s.id }
func (s *Session) Descriptor() PortDescriptor { return s.desc }
func (s *Session) OpenedAt() time.Time        { return s.openedAt }

// DTR returns the last DTR level successfully set during this session.
func (s *Session) DTR() bool { return s.dtr.Load() }

// RTS returns the last RTS level successfully set during this session.
func (s *Session) RTS() bool { return s.rts.Load() }

// Done is closed once the reader has exited and the device is released.
func (s *Session) Done() <-chan struct{} { return s.done }
