package driver

import (
	"path/filepath"
	"sync"

	serial "github.com/allbin/serialman"
	bugst "go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Package vars so tests can substitute the library calls
var (
	bugstOpen      = bugst.Open
	bugstPortsList = enumerator.GetDetailedPortsList
)

type bugstDriver struct{}

func (bugstDriver) Name() string       { return "bugst" }
func (bugstDriver) ControlLines() bool { return true }

func (bugstDriver) Open(name string, opts ...serial.Option) (serial.Port, error) {
	cfg, err := serial.Apply(opts...)
	if err != nil {
		return nil, err
	}

	mode := bugstMode(cfg)
	p, err := bugstOpen(name, mode)
	if err != nil {
		return nil, openError(name, err)
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = pollReadTimeout
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		p.Close()
		return nil, openError(name, err)
	}

	bp := &bugstPort{port: p}
	if mode.InitialStatusBits != nil {
		bp.dtr = mode.InitialStatusBits.DTR
		bp.rts = mode.InitialStatusBits.RTS
	}
	return bp, nil
}

func bugstMode(cfg serial.Config) *bugst.Mode {
	mode := &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	switch cfg.Parity {
	case serial.ParityOdd:
		mode.Parity = bugst.OddParity
	case serial.ParityEven:
		mode.Parity = bugst.EvenParity
	}
	if cfg.StopBits == 2 {
		mode.StopBits = bugst.TwoStopBits
	}
	if cfg.InitialDTR != nil || cfg.InitialRTS != nil {
		bits := &bugst.ModemOutputBits{}
		if cfg.InitialDTR != nil {
			bits.DTR = *cfg.InitialDTR
		}
		if cfg.InitialRTS != nil {
			bits.RTS = *cfg.InitialRTS
		}
		mode.InitialStatusBits = bits
	}
	return mode
}

func (bugstDriver) List() ([]serial.PortInfo, error) {
	details, err := bugstPortsList()
	if err != nil {
		return nil, err
	}
	infos := make([]serial.PortInfo, 0, len(details))
	for _, d := range details {
		info := serial.PortInfo{
			Name:         filepath.Base(d.Name),
			Path:         d.Name,
			Description:  "Serial Port",
			SerialNumber: d.SerialNumber,
		}
		if d.IsUSB {
			info.VendorID = d.VID
			info.ProductID = d.PID
			info.Product = d.Product
			if d.Product != "" {
				info.Description = d.Product
			} else {
				info.Description = "USB Serial Port"
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// bugstPort adapts a go.bug.st/serial port. The library cannot read back
// output lines, so DTR/RTS are tracked here.
type bugstPort struct {
	port bugst.Port

	mu       sync.Mutex
	dtr, rts bool
}

var (
	_ serial.Port    = (*bugstPort)(nil)
	_ serial.Drainer = (*bugstPort)(nil)
)

func (p *bugstPort) Read(buf []byte) (int, error) {
	n, err := p.port.Read(buf)
	return n, classifyIO(err)
}

func (p *bugstPort) Write(data []byte) (int, error) {
	n, err := p.port.Write(data)
	return n, classifyIO(err)
}

func (p *bugstPort) Drain() error {
	return classifyIO(p.port.Drain())
}

func (p *bugstPort) SetDTR(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.port.SetDTR(state); err != nil {
		return classifyIO(err)
	}
	p.dtr = state
	return nil
}

func (p *bugstPort) SetRTS(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.port.SetRTS(state); err != nil {
		return classifyIO(err)
	}
	p.rts = state
	return nil
}

func (p *bugstPort) GetModemSignals() (serial.ModemSignals, error) {
	bits, err := p.port.GetModemStatusBits()
	if err != nil {
		return serial.ModemSignals{}, classifyIO(err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return serial.ModemSignals{
		CTS: bits.CTS,
		DSR: bits.DSR,
		RI:  bits.RI,
		DCD: bits.DCD,
		DTR: p.dtr,
		RTS: p.rts,
	}, nil
}

func (p *bugstPort) Close() error {
	return classifyIO(p.port.Close())
}
