// Package driver selects the serial transport behind a session. The default
// termios driver is the root package; bugst and tarm wrap go.bug.st/serial
// and github.com/tarm/serial behind the same serial.Port interface.
package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	serial "github.com/allbin/serialman"
	bugst "go.bug.st/serial"
	"golang.org/x/sys/unix"
)

// Default is the driver used when none is named.
const Default = "termios"

// Driver opens and enumerates serial ports.
type Driver interface {
	Name() string
	Open(name string, opts ...serial.Option) (serial.Port, error)
	List() ([]serial.PortInfo, error)
	// ControlLines reports whether SetDTR/SetRTS reach the hardware.
	ControlLines() bool
}

var registry = map[string]Driver{
	"termios": termiosDriver{},
	"bugst":   bugstDriver{},
	"tarm":    tarmDriver{},
}

// Lookup returns the named driver; "" selects Default.
func Lookup(name string) (Driver, error) {
	if name == "" {
		name = Default
	}
	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q (available: %v)", name, Names())
	}
	return d, nil
}

// Names lists the registered drivers in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// pollReadTimeout bounds blocking reads of drivers without a ReadWaiter so
// the session reader notices cancellation.
const pollReadTimeout = 10 * time.Millisecond

// classifyOpen maps errors from the wrapped libraries onto serial sentinels.
func classifyOpen(err error) error {
	var pe *bugst.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case bugst.PortNotFound:
			return serial.ErrDeviceNotFound
		case bugst.PermissionDenied:
			return serial.ErrPermissionDenied
		case bugst.PortBusy:
			return serial.ErrDeviceInUse
		case bugst.InvalidSpeed:
			return serial.ErrInvalidBaudRate
		case bugst.InvalidDataBits, bugst.InvalidParity, bugst.InvalidStopBits, bugst.InvalidTimeoutValue:
			return serial.ErrInvalidConfig
		}
		return err
	}

	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return serial.ErrDeviceNotFound
	case errors.Is(err, fs.ErrPermission):
		return serial.ErrPermissionDenied
	case errors.Is(err, unix.EBUSY):
		return serial.ErrDeviceInUse
	}
	return err
}

// classifyIO maps read/write errors of wrapped ports onto serial sentinels.
func classifyIO(err error) error {
	if err == nil {
		return nil
	}
	var pe *bugst.PortError
	if errors.As(err, &pe) && pe.Code() == bugst.PortClosed {
		return serial.ErrPortClosed
	}
	switch {
	case errors.Is(err, fs.ErrClosed):
		return serial.ErrPortClosed
	case errors.Is(err, unix.EIO), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV), errors.Is(err, unix.EBADF):
		return serial.ErrDeviceGone
	}
	return err
}

func openError(name string, err error) error {
	return &serial.DeviceError{Op: serial.OpOpen, Port: name, Err: classifyOpen(err)}
}

// sysfsPorts enumerates through the root package's /dev and sysfs scan.
func sysfsPorts() ([]serial.PortInfo, error) {
	paths, err := serial.ListPorts()
	if err != nil {
		return nil, err
	}
	infos := make([]serial.PortInfo, 0, len(paths))
	for _, p := range paths {
		info, err := serial.GetPortInfo(p)
		if err != nil {
			continue
		}
		infos = append(infos, *info)
	}
	return infos, nil
}
