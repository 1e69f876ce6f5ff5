package components

import (
	"fmt"
	"strconv"

	serial "github.com/allbin/serialman"
	"github.com/allbin/serialman/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// BaudPresets offered by the selector. Any other positive rate can be
// passed on the command line.
var BaudPresets = []int{300, 600, 1200, 2400, 4800, 9600, 19200, 38400, 43000, 56000, 57600, 115200}

// Field is the focused part of the selector.
type Field int

const (
	FieldPort Field = iota
	FieldBaud
)

// Selector picks the port and baud rate for the next open.
type Selector struct {
	ports   []serial.PortInfo
	port    int
	bauds   []int
	baud    int
	focused Field
	locked  bool
}

// NewSelector starts at baud; a rate missing from the presets is added.
func NewSelector(baud int) *Selector {
	s := &Selector{bauds: append([]int(nil), BaudPresets...)}
	s.baud = s.indexOfBaud(baud)
	return s
}

func (s *Selector) indexOfBaud(baud int) int {
	for i, b := range s.bauds {
		if b == baud {
			return i
		}
	}
	if baud > 0 {
		s.bauds = append(s.bauds, baud)
		return len(s.bauds) - 1
	}
	return len(s.bauds) - 1
}

// SetPorts replaces the port list, keeping the current selection when the
// port is still present.
func (s *Selector) SetPorts(ports []serial.PortInfo) {
	current := s.Port()
	s.ports = ports
	s.port = 0
	for i, p := range ports {
		if p.Path == current {
			s.port = i
			break
		}
	}
}

// Select focuses the port with the given path, adding it when unknown.
func (s *Selector) Select(path string) {
	if path == "" {
		return
	}
	for i, p := range s.ports {
		if p.Path == path {
			s.port = i
			return
		}
	}
	s.ports = append(s.ports, serial.PortInfo{Path: path, Name: path, Description: "Serial Port"})
	s.port = len(s.ports) - 1
}

func (s *Selector) Port() string {
	if len(s.ports) == 0 {
		return ""
	}
	return s.ports[s.port].Path
}

func (s *Selector) Baud() int { return s.bauds[s.baud] }

func (s *Selector) Ports() []serial.PortInfo { return s.ports }

// SetLocked freezes the selection while a session is open.
func (s *Selector) SetLocked(locked bool) { s.locked = locked }

func (s *Selector) NextField() {
	if s.focused == FieldPort {
		s.focused = FieldBaud
	} else {
		s.focused = FieldPort
	}
}

func (s *Selector) Focused() Field { return s.focused }

// Step moves the focused field by delta, wrapping around.
func (s *Selector) Step(delta int) {
	if s.locked {
		return
	}
	switch s.focused {
	case FieldPort:
		if n := len(s.ports); n > 0 {
			s.port = ((s.port+delta)%n + n) % n
		}
	case FieldBaud:
		n := len(s.bauds)
		s.baud = ((s.baud+delta)%n + n) % n
	}
}

func (s *Selector) View() string {
	portLabel := "no ports found (r to refresh)"
	if len(s.ports) > 0 {
		p := s.ports[s.port]
		portLabel = fmt.Sprintf("%s  %s  (%d/%d)", p.Path, p.Description, s.port+1, len(s.ports))
	}
	baudLabel := strconv.Itoa(s.Baud()) + " baud"

	portStyle, baudStyle := styles.FieldStyle, styles.FieldStyle
	if !s.locked {
		if s.focused == FieldPort {
			portStyle = styles.FocusedFieldStyle
		} else {
			baudStyle = styles.FocusedFieldStyle
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		"Port ", portStyle.Render(portLabel), "  Baud ", baudStyle.Render(baudLabel))
}
