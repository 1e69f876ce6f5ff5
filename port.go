package serial

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Port represents a serial port connection interface
type Port interface {
	Close() error
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)

	// Modem control lines
	SetDTR(state bool) error
	SetRTS(state bool) error
	GetModemSignals() (ModemSignals, error)
}

// ReadWaiter is implemented by ports that can block until input is pending.
// WaitReadable returns false when timeout elapses with nothing to read. A
// Read that yields nothing after WaitReadable reported true means end of file.
type ReadWaiter interface {
	WaitReadable(ctx context.Context, timeout time.Duration) (bool, error)
}

// Drainer is implemented by ports that can wait for queued output to leave
// the transmitter.
type Drainer interface {
	Drain() error
}

// port is the termios implementation of the Port interface
type port struct {
	mu     sync.RWMutex
	fd     int
	name   string
	config Config
	closed bool
}

// Ensure port implements Port interface at compile time
var (
	_ Port       = (*port)(nil)
	_ ReadWaiter = (*port)(nil)
	_ Drainer    = (*port)(nil)
)

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// standardBaudRates maps the rates termios knows by name
var standardBaudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

const maxBaudRate = 4000000

// getBaudRate converts an integer baud rate to the termios speed code.
// Rates without a named constant (43000, 56000, ...) use BOTHER.
func getBaudRate(rate int) (uint32, error) {
	if rate <= 0 || rate > maxBaudRate {
		return 0, ErrInvalidBaudRate
	}
	if code, ok := standardBaudRates[rate]; ok {
		return code, nil
	}
	return unix.BOTHER, nil
}

// getModemStatus retrieves modem control signals using unix package
func getModemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

// setModemLine raises or drops a single TIOCM line
func setModemLine(fd int, line int, state bool) error {
	if state {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, line)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, line)
}

// modemSignalsFromStatus decodes a TIOCMGET bitmask
func modemSignalsFromStatus(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// classifyOpenError maps errno values from open(2) onto the package sentinels
func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return ErrDeviceNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	case errors.Is(err, unix.EBUSY), errors.Is(err, unix.EWOULDBLOCK):
		return ErrDeviceInUse
	default:
		return err
	}
}

// classifyIOError maps errno values seen after a hangup onto ErrDeviceGone
func classifyIOError(err error) error {
	switch {
	case errors.Is(err, unix.EIO), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV), errors.Is(err, unix.EBADF):
		return ErrDeviceGone
	default:
		return err
	}
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	config, err := Apply(opts...)
	if err != nil {
		return nil, err
	}

	// O_NONBLOCK keeps open(2) from waiting on carrier detect; it is
	// cleared again once the line is configured.
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &DeviceError{Op: OpOpen, Port: device, Err: classifyOpenError(err)}
	}

	fail := func(err error) (Port, error) {
		unix.Close(fd)
		return nil, &DeviceError{Op: OpOpen, Port: device, Err: err}
	}

	if config.Exclusive {
		if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
			return fail(classifyOpenError(err))
		}
		if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
			return fail(err)
		}
	}

	if err := configurePort(fd, config); err != nil {
		return fail(err)
	}

	// Drop whatever the driver buffered before the line was configured
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
		return fail(err)
	}

	if err := unix.SetNonblock(fd, false); err != nil {
		return fail(err)
	}

	if config.InitialDTR != nil {
		if err := setModemLine(fd, unix.TIOCM_DTR, *config.InitialDTR); err != nil {
			return fail(err)
		}
	}
	if config.InitialRTS != nil {
		if err := setModemLine(fd, unix.TIOCM_RTS, *config.InitialRTS); err != nil {
			return fail(err)
		}
	}

	return &port{
		fd:     fd,
		name:   device,
		config: config,
	}, nil
}

// configurePort puts the tty in raw mode with the configured framing and speed
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS2)
	if err != nil {
		return err
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = config.readTimeoutTenths()

	speed, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= speed
	termios.Ispeed = uint32(config.BaudRate)
	termios.Ospeed = uint32(config.BaudRate)

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	}

	return unix.IoctlSetTermios(fd, unix.TCSETS2, termios)
}

// Close closes the serial port
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	p.closed = true
	return unix.Close(p.fd)
}

// Read reads the bytes currently pending on the port. With the default
// zero read timeout it never blocks and returns 0, nil when nothing is pending.
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	n, err := unix.Read(p.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, classifyIOError(err)
	}
	return n, nil
}

// Write writes data to the serial port
func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	n, err := unix.Write(p.fd, data)
	if err != nil {
		return n, classifyIOError(err)
	}
	return n, nil
}

// WaitReadable blocks in poll(2) until input is pending, the timeout
// elapses or ctx is done. A hangup reports ErrDeviceGone.
func (p *port) WaitReadable(ctx context.Context, timeout time.Duration) (bool, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return false, ErrPortClosed
	}
	fd := p.fd
	p.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return false, nil
		}
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	// A hung up tty also reports POLLIN while read(2) returns 0 forever
	revents := fds[0].Revents
	if revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
		return false, ErrDeviceGone
	}
	return revents&unix.POLLIN != 0, nil
}

// GetModemSignals returns current state of all modem control signals
func (p *port) GetModemSignals() (ModemSignals, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ModemSignals{}, ErrPortClosed
	}

	status, err := getModemStatus(p.fd)
	if err != nil {
		return ModemSignals{}, classifyIOError(err)
	}

	return modemSignalsFromStatus(status), nil
}

// SetDTR sets the DTR signal state
func (p *port) SetDTR(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	return classifyIOError(setModemLine(p.fd, unix.TIOCM_DTR, state))
}

// SetRTS sets the RTS signal state
func (p *port) SetRTS(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	return classifyIOError(setModemLine(p.fd, unix.TIOCM_RTS, state))
}

// Drain waits until all output written to the port has been transmitted
func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}
