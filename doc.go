// Package serial is the termios serial port layer of serialman: opening and
// configuring Linux tty devices, polling them for input, driving the modem
// control lines and enumerating ports through /dev and sysfs.
//
// The session controller in internal/session builds on the Port and
// ReadWaiter interfaces defined here; other transports are adapted to the
// same interfaces in internal/driver.
//
// # Basic Usage
//
// Open a serial port with default configuration (115200 8N1, exclusive):
//
//	port, err := serial.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("Hello"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer) // 0, nil when nothing is pending
//
// # Configuration Options
//
// Use functional options for custom configuration:
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(9600),
//	    serial.WithParity(serial.ParityEven),
//	    serial.WithInitialDTR(true),
//	    serial.WithInitialRTS(false),
//	)
//
// Baud rates without a termios constant, such as 43000 or 56000, are set
// through BOTHER.
//
// # Waiting for Input
//
// Reads never block with the default configuration. The termios port also
// implements ReadWaiter, which blocks in poll(2) until input is pending:
//
//	if rw, ok := port.(serial.ReadWaiter); ok {
//	    ready, err := rw.WaitReadable(ctx, 10*time.Millisecond)
//	}
//
// A hangup while waiting or reading is reported as ErrDeviceGone.
//
// # Port Discovery
//
// List available serial ports and get USB device metadata:
//
//	ports, err := serial.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := serial.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s (VID=%s PID=%s Serial=%s)\n",
//	        info.Path, info.Description, info.VendorID, info.ProductID, info.SerialNumber)
//	}
//
// # Modem Signals
//
//	signals, err := port.GetModemSignals()
//	fmt.Printf("CTS=%v DSR=%v DCD=%v RI=%v\n",
//	    signals.CTS, signals.DSR, signals.DCD, signals.RI)
//
//	err = port.SetRTS(true)
//	err = port.SetDTR(false)
//
// # Error Handling
//
// Failures of a device operation are returned as *DeviceError, which names
// the operation and port and wraps one of the sentinel errors:
//
//	_, err := serial.Open("/dev/ttyUSB9")
//	if errors.Is(err, serial.ErrDeviceNotFound) {
//	    // unplugged or never there
//	}
//	if serial.IsOpenError(err) {
//	    // failed while opening rather than during I/O
//	}
//
// # Default Configuration
//
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - ReadTimeout: 0 (non-blocking reads)
//   - Exclusive: true (flock plus TIOCEXCL)
package serial
