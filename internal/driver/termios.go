package driver

import (
	serial "github.com/allbin/serialman"
)

type termiosDriver struct{}

func (termiosDriver) Name() string       { return "termios" }
func (termiosDriver) ControlLines() bool { return true }

func (termiosDriver) Open(name string, opts ...serial.Option) (serial.Port, error) {
	return serial.Open(name, opts...)
}

func (termiosDriver) List() ([]serial.PortInfo, error) {
	return sysfsPorts()
}
