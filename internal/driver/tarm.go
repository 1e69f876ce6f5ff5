package driver

import (
	"errors"
	"io"
	"time"

	serial "github.com/allbin/serialman"
	tarm "github.com/tarm/serial"
)

var tarmOpen = tarm.OpenPort

// tarm/serial expresses VTIME in tenths of a second
const tarmMinReadTimeout = 100 * time.Millisecond

type tarmDriver struct{}

func (tarmDriver) Name() string       { return "tarm" }
func (tarmDriver) ControlLines() bool { return false }

func (tarmDriver) Open(name string, opts ...serial.Option) (serial.Port, error) {
	cfg, err := serial.Apply(opts...)
	if err != nil {
		return nil, err
	}
	tc := tarmConfig(name, cfg)
	p, err := tarmOpen(tc)
	if err != nil {
		return nil, openError(name, err)
	}
	return &tarmPort{port: p, timeout: tc.ReadTimeout}, nil
}

func tarmConfig(name string, cfg serial.Config) *tarm.Config {
	c := &tarm.Config{
		Name:        name,
		Baud:        cfg.BaudRate,
		Size:        byte(cfg.DataBits),
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
		ReadTimeout: cfg.ReadTimeout,
	}
	switch cfg.Parity {
	case serial.ParityOdd:
		c.Parity = tarm.ParityOdd
	case serial.ParityEven:
		c.Parity = tarm.ParityEven
	}
	if cfg.StopBits == 2 {
		c.StopBits = tarm.Stop2
	}
	if c.ReadTimeout < tarmMinReadTimeout {
		c.ReadTimeout = tarmMinReadTimeout
	}
	return c
}

// The tarm driver lists through sysfs; the library has no enumerator.
func (tarmDriver) List() ([]serial.PortInfo, error) {
	return sysfsPorts()
}

// tarmPort adapts a github.com/tarm/serial port. The library exposes no
// modem control, so line operations fail with ErrControlLinesUnsupported.
type tarmPort struct {
	port    io.ReadWriteCloser
	timeout time.Duration
}

var _ serial.Port = (*tarmPort)(nil)

// Read treats the io.EOF of an expired read timeout as an empty read. The
// library reports a hangup with io.EOF too, but without waiting out the
// timeout, so an early empty io.EOF is ErrDeviceGone.
func (p *tarmPort) Read(buf []byte) (int, error) {
	start := time.Now()
	n, err := p.port.Read(buf)
	if errors.Is(err, io.EOF) {
		if n == 0 && time.Since(start) < p.timeout/2 {
			return 0, serial.ErrDeviceGone
		}
		return n, nil
	}
	return n, classifyIO(err)
}

func (p *tarmPort) Write(data []byte) (int, error) {
	n, err := p.port.Write(data)
	return n, classifyIO(err)
}

func (p *tarmPort) SetDTR(bool) error { return serial.ErrControlLinesUnsupported }
func (p *tarmPort) SetRTS(bool) error { return serial.ErrControlLinesUnsupported }

func (p *tarmPort) GetModemSignals() (serial.ModemSignals, error) {
	return serial.ModemSignals{}, serial.ErrControlLinesUnsupported
}

func (p *tarmPort) Close() error {
	return classifyIO(p.port.Close())
}
