package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/serialman/internal/payload"
	"github.com/allbin/serialman/internal/tui/styles"
)

// Direction of a log entry
type Direction int

const (
	DirRX Direction = iota
	DirTX
	DirInfo
)

// Entry is one line of the session log.
type Entry struct {
	At   time.Time
	Dir  Direction
	Data []byte
	Note string // DirInfo text, or a TX failure
}

// DataFormatter renders entries as text (UTF-8, invalid bytes dropped) or hex.
type DataFormatter struct {
	hex        bool
	timestamps bool
}

func NewDataFormatter(hex, timestamps bool) *DataFormatter {
	return &DataFormatter{hex: hex, timestamps: timestamps}
}

func (df *DataFormatter) ToggleHex()        { df.hex = !df.hex }
func (df *DataFormatter) ToggleTimestamps() { df.timestamps = !df.timestamps }
func (df *DataFormatter) Hex() bool         { return df.hex }

func (df *DataFormatter) FormatEntry(e Entry) string {
	var prefix string
	if df.timestamps {
		prefix = styles.TimestampStyle.Render(fmt.Sprintf("[%s] ", e.At.Format("15:04:05.000")))
	}

	switch e.Dir {
	case DirInfo:
		return prefix + styles.InfoStyle.Render("-- "+e.Note)
	case DirTX:
		if e.Note != "" {
			return prefix + styles.TXStyle.Render("↗ TX ✗ ") + styles.ErrorStyle.Render(e.Note)
		}
		return prefix + styles.TXStyle.Render("↗ TX ") + df.body(e.Data)
	default:
		return prefix + styles.RXStyle.Render("↙ RX ") + df.body(e.Data)
	}
}

func (df *DataFormatter) body(data []byte) string {
	if df.hex {
		return payload.Hex(data)
	}
	// Keep one log line per entry
	return strings.ReplaceAll(payload.Text(data), "\n", "⏎")
}

func (df *DataFormatter) FormatEntries(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = df.FormatEntry(e)
	}
	return out
}
