// Package payload converts between what the user types or sees and the bytes
// that cross the serial line.
package payload

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sigurn/crc16"
)

// LineEnding is appended to every line sent from text input.
type LineEnding int

const (
	LineEndingNone LineEnding = iota
	LineEndingCRLF
	LineEndingCR
	LineEndingLF
)

// LineEndings lists the modes in cycling order.
var LineEndings = []LineEnding{LineEndingNone, LineEndingCRLF, LineEndingCR, LineEndingLF}

func (l LineEnding) String() string {
	switch l {
	case LineEndingCRLF:
		return `\r\n`
	case LineEndingCR:
		return `\r`
	case LineEndingLF:
		return `\n`
	default:
		return "none"
	}
}

// Bytes returns the terminator sequence.
func (l LineEnding) Bytes() []byte {
	switch l {
	case LineEndingCRLF:
		return []byte("\r\n")
	case LineEndingCR:
		return []byte("\r")
	case LineEndingLF:
		return []byte("\n")
	default:
		return nil
	}
}

// Next returns the following mode, wrapping around.
func (l LineEnding) Next() LineEnding {
	for i, m := range LineEndings {
		if m == l {
			return LineEndings[(i+1)%len(LineEndings)]
		}
	}
	return LineEndingNone
}

// ParseLineEnding accepts none, crlf, cr, lf and their escaped forms.
func ParseLineEnding(s string) (LineEnding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LineEndingNone, nil
	case "crlf", `\r\n`:
		return LineEndingCRLF, nil
	case "cr", `\r`:
		return LineEndingCR, nil
	case "lf", `\n`:
		return LineEndingLF, nil
	default:
		return LineEndingNone, fmt.Errorf("invalid line ending: %s (valid: none, crlf, cr, lf)", s)
	}
}

// ParseHex converts hex text to bytes. Spaces and 0x prefixes are ignored,
// so "48 65 6C" and "0x48656c" both work.
func ParseHex(s string) ([]byte, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	clean = strings.ReplaceAll(clean, "0x", "")
	clean = strings.ReplaceAll(clean, "0X", "")
	if clean == "" {
		return nil, fmt.Errorf("empty input")
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(clean))
	}

	out := make([]byte, 0, len(clean)/2)
	for i := 0; i < len(clean); i += 2 {
		pair := clean[i : i+2]
		b, err := strconv.ParseUint(pair, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s'", pair)
		}
		out = append(out, byte(b))
	}
	return out, nil
}

// Encode builds the bytes for one line of user input. Hex input is sent as
// is; text input gets the line ending appended.
func Encode(input string, hex bool, le LineEnding) ([]byte, error) {
	if hex {
		return ParseHex(input)
	}
	return append([]byte(input), le.Bytes()...), nil
}

var modbusTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// AppendModbusCRC appends the CRC-16/MODBUS of data, low byte first as
// Modbus RTU frames carry it.
func AppendModbusCRC(data []byte) []byte {
	crc := crc16.Checksum(data, modbusTable)
	return append(data, byte(crc), byte(crc>>8))
}

// Text decodes received bytes as UTF-8, dropping invalid sequences. Control
// characters other than newline and tab are dropped too so they cannot drive
// the terminal. A chunk boundary inside a multibyte rune loses that rune.
func Text(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r == utf8.RuneError && size <= 1 {
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Hex renders bytes as space separated upper case pairs.
func Hex(data []byte) string {
	return fmt.Sprintf("% X", data)
}
