package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	serial "github.com/allbin/serialman"
	"github.com/allbin/serialman/internal/logging"
	"github.com/allbin/serialman/internal/metrics"
)

// DefaultPollInterval is how long the reader waits between reads when no
// input is pending.
const DefaultPollInterval = 10 * time.Millisecond

// poll(2) counts in milliseconds; shorter intervals would spin
const minPollInterval = time.Millisecond

// Controller owns at most one open Session at a time.
type Controller struct {
	mu      sync.Mutex
	state   State
	current *Session
	nextID  uint64

	opener   Opener
	handler  Handler
	interval time.Duration
	policy   OpenPolicy
	log      *slog.Logger
}

// Option configures a Controller
type Option func(*Controller) error

// WithOpener replaces the default termios opener.
func WithOpener(o Opener) Option {
	return func(c *Controller) error {
		if o == nil {
			return serial.ErrInvalidConfig
		}
		c.opener = o
		return nil
	}
}

// WithHandler registers the event receiver.
func WithHandler(h Handler) Option {
	return func(c *Controller) error {
		if h == nil {
			h = nopHandler{}
		}
		c.handler = h
		return nil
	}
}

// WithPollInterval sets the reader wait interval, at least one millisecond
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) error {
		if d < minPollInterval {
			return serial.ErrInvalidConfig
		}
		c.interval = d
		return nil
	}
}

func WithOpenPolicy(p OpenPolicy) Option {
	return func(c *Controller) error {
		if p != PolicyRefuse && p != PolicyReplace {
			return serial.ErrInvalidConfig
		}
		c.policy = p
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) error {
		if l != nil {
			c.log = l
		}
		return nil
	}
}

// New creates a Controller in the Closed state.
func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		opener:   openTermios,
		handler:  nopHandler{},
		interval: DefaultPollInterval,
		policy:   PolicyRefuse,
		log:      logging.L(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func openTermios(_ context.Context, d PortDescriptor) (Device, error) {
	return serial.Open(d.Name, serial.WithBaudRate(d.BaudRate))
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the open session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// PollInterval returns the configured reader interval.
func (c *Controller) PollInterval() time.Duration { return c.interval }

// Open opens d and starts its reader. Failures leave the controller Closed
// and are returned as a *serial.DeviceError with Op "open".
func (c *Controller) Open(ctx context.Context, d PortDescriptor) (*Session, error) {
	if d.Name == "" {
		return nil, &serial.DeviceError{Op: serial.OpOpen, Err: serial.ErrInvalidConfig}
	}
	if d.BaudRate <= 0 {
		return nil, &serial.DeviceError{Op: serial.OpOpen, Port: d.Name, Err: serial.ErrInvalidBaudRate}
	}

	c.mu.Lock()
	for c.state != StateClosed {
		if c.policy == PolicyRefuse || c.state == StateOpening {
			c.mu.Unlock()
			return nil, ErrSessionActive
		}
		c.mu.Unlock()
		if err := c.Close(); err != nil {
			return nil, err
		}
		c.mu.Lock()
	}
	c.state = StateOpening
	c.mu.Unlock()

	dev, err := c.opener(ctx, d)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		metrics.IncOpenFailure()
		var de *serial.DeviceError
		if !errors.As(err, &de) {
			err = &serial.DeviceError{Op: serial.OpOpen, Port: d.Name, Err: err}
		}
		c.log.Warn("session_open_failed", "port", d.Name, "baud", d.BaudRate, "error", err)
		return nil, err
	}

	rctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.nextID++
	s := &Session{
		id:       c.nextID,
		desc:     d,
		dev:      dev,
		openedAt: time.Now(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	c.current = s
	c.state = StateOpen
	c.mu.Unlock()

	metrics.IncOpened()
	c.log.Info("session_open", "port", d.Name, "baud", d.BaudRate, "session", s.id)

	go c.run(rctx, s)
	return s, nil
}

// Close stops the reader, waits for it to exit and releases the device.
// It is a no-op when no session is open. A session still being opened is
// not affected.
func (c *Controller) Close() error {
	c.mu.Lock()
	s := c.current
	if s == nil {
		c.mu.Unlock()
		return nil
	}
	if c.state == StateOpen {
		c.state = StateClosing
	}
	c.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

// SetDTR drives the DTR line of the open session.
func (c *Controller) SetDTR(state bool) error {
	return c.setLine(serial.OpSetDTR, metrics.LineDTR, state)
}

// SetRTS drives the RTS line of the open session.
func (c *Controller) SetRTS(state bool) error {
	return c.setLine(serial.OpSetRTS, metrics.LineRTS, state)
}

func (c *Controller) setLine(op, line string, state bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current
	if s == nil || s.releasing || c.state != StateOpen {
		return &serial.DeviceError{Op: op, Err: ErrNotOpen}
	}

	var err error
	if op == serial.OpSetDTR {
		err = s.dev.SetDTR(state)
	} else {
		err = s.dev.SetRTS(state)
	}
	if err != nil {
		return &serial.DeviceError{Op: op, Port: s.desc.Name, Err: err}
	}

	if op == serial.OpSetDTR {
		s.dtr.Store(state)
	} else {
		s.rts.Store(state)
	}
	metrics.IncLineSet(line)
	c.log.Debug("control_line_set", "port", s.desc.Name, "line", line, "state", state)
	return nil
}

// Write sends data to the open session's device.
func (c *Controller) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current
	if s == nil || s.releasing || c.state != StateOpen {
		return 0, &serial.DeviceError{Op: serial.OpWrite, Err: ErrNotOpen}
	}

	n, err := s.dev.Write(data)
	metrics.AddTx(n)
	if err != nil {
		return n, &serial.DeviceError{Op: serial.OpWrite, Port: s.desc.Name, Err: err}
	}
	return n, nil
}

// Drain waits until data written so far has been transmitted. Devices that
// cannot report this return immediately.
func (c *Controller) Drain() error {
	c.mu.Lock()
	s := c.current
	open := c.state == StateOpen && s != nil && !s.releasing
	c.mu.Unlock()

	if !open {
		return &serial.DeviceError{Op: serial.OpWrite, Err: ErrNotOpen}
	}
	d, ok := s.dev.(serial.Drainer)
	if !ok {
		return nil
	}
	if err := d.Drain(); err != nil {
		return &serial.DeviceError{Op: serial.OpWrite, Port: s.desc.Name, Err: err}
	}
	return nil
}

// run is the body of the reader goroutine for s.
func (c *Controller) run(ctx context.Context, s *Session) {
	defer close(s.done)
	ev := c.readLoop(ctx, s)
	c.release(s, ev)
}

// release closes the device, returns the controller to Closed and delivers
// the closed event. Runs once per session, on its reader goroutine. The
// device is closed without holding c.mu; line and write calls made meanwhile
// fail with ErrNotOpen.
func (c *Controller) release(s *Session, ev ClosedEvent) {
	c.mu.Lock()
	s.releasing = true
	c.mu.Unlock()

	if err := s.dev.Close(); err != nil && !errors.Is(err, serial.ErrPortClosed) {
		c.log.Debug("device_close_error", "port", s.desc.Name, "error", err)
	}

	c.mu.Lock()
	if c.current == s {
		c.current = nil
		c.state = StateClosed
	}
	c.mu.Unlock()
	s.cancel()

	metrics.IncClosed(ev.Reason.String())
	if ev.Err != nil {
		c.log.Warn("session_closed", "port", s.desc.Name, "session", s.id, "reason", ev.Reason.String(), "error", ev.Err)
	} else {
		c.log.Info("session_closed", "port", s.desc.Name, "session", s.id, "reason", ev.Reason.String())
	}
	c.handler.OnSessionClosed(ev)
}
