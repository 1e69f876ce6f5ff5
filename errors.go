package serial

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrDeviceInUse      = errors.New("serial device already in use")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")

	// ErrDeviceGone is returned when the device hung up or was unplugged
	// while the port was open.
	ErrDeviceGone = errors.New("serial device disconnected")

	// ErrControlLinesUnsupported is returned by drivers that cannot drive DTR/RTS.
	ErrControlLinesUnsupported = errors.New("driver does not support modem control lines")

	// USB-related errors
	ErrUSBInfoNotAvailable = errors.New("USB device information not available")
)

// Device operations reported in DeviceError.Op.
const (
	OpOpen    = "open"
	OpRead    = "read"
	OpWrite   = "write"
	OpSetDTR  = "set_dtr"
	OpSetRTS  = "set_rts"
	OpClose   = "close"
	OpSignals = "signals"
)

// DeviceError records a failed operation on a serial device.
type DeviceError struct {
	Op   string
	Port string
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("serial %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("serial %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// IsOpenError reports whether err is a DeviceError raised while opening a port.
func IsOpenError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Op == OpOpen
}

// IsIOError reports whether err is a DeviceError raised by a read or write.
func IsIOError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && (de.Op == OpRead || de.Op == OpWrite)
}
