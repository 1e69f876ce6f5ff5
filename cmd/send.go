/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/allbin/serialman/internal/payload"
	"github.com/allbin/serialman/internal/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true)
	replyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Open a session on the port, write data to it and close it again.

Data can be provided as:
- Command line argument: serialman send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | serialman send /dev/ttyUSB0
- Interactive mode: serialman send /dev/ttyUSB0 (prompts for input)

Features include:
- Line endings appended to the data (--line-ending none, crlf, cr, lf)
- Hex input support (--hex flag)
- Modbus RTU framing with a trailing CRC-16 (--crc)
- Printing the device's reply for a while (--wait)

Example usage:
  serialman send "Hello World" /dev/ttyUSB0
  serialman send "AT+GMR" /dev/ttyUSB0 --line-ending crlf --wait 500ms
  serialman send "48 65 6C 6C 6F" /dev/ttyUSB0 --hex
  serialman send "01 03 00 00 00 0A" /dev/ttyUSB0 --hex --crc --wait 200ms
  echo "test" | serialman send /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var input, portPath string
		if len(args) == 1 {
			portPath = args[0]
			var err error
			if input, err = readInput(os.Stdin); err != nil {
				return err
			}
		} else {
			input, portPath = args[0], args[1]
		}

		le, err := sendLineEnding(viper.GetString("line-ending"), viper.GetBool("newline"))
		if err != nil {
			return err
		}
		data, err := payload.Encode(input, viper.GetBool("hex"), le)
		if err != nil {
			return fmt.Errorf("invalid data: %w", err)
		}
		if viper.GetBool("crc") {
			data = payload.AppendModbusCRC(data)
		}
		if len(data) == 0 {
			return fmt.Errorf("nothing to send")
		}
		return sendData(cmd.Context(), portPath, data)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringP("line-ending", "e", "none", "Line ending appended to the data: none, crlf, cr, lf")
	sendCmd.Flags().BoolP("newline", "n", false, "Shorthand for --line-ending lf")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().Bool("crc", false, "Append a CRC-16/MODBUS checksum (low byte first)")
	sendCmd.Flags().DurationP("wait", "w", 0, "Print what the device sends back for this long")
}

// sendLineEnding resolves --line-ending, with --newline selecting lf.
func sendLineEnding(value string, newline bool) (payload.LineEnding, error) {
	if newline {
		return payload.LineEndingLF, nil
	}
	return payload.ParseLineEnding(value)
}

// readInput takes the data from a pipe, or prompts for one line on a terminal.
func readInput(in *os.File) (string, error) {
	stat, err := in.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return promptForData(in), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func promptForData(in io.Reader) string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func sendData(ctx context.Context, portPath string, data []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctrl, _, err := newController(session.HandlerFuncs{
		BytesReceived: func(c session.Chunk) {
			fmt.Printf("%s %s\n", replyStyle.Render("↙"), payload.Text(c.Data))
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), portPath)
	s, err := ctrl.Open(ctx, session.PortDescriptor{Name: portPath, BaudRate: viper.GetInt("baud")})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	n, err := ctrl.Write(data)
	if err != nil {
		return fmt.Errorf("sent %d of %d bytes: %w", n, len(data), err)
	}
	if err := ctrl.Drain(); err != nil {
		return err
	}
	fmt.Printf("%s Sent %d bytes: %s\n", successStyle.Render("✓"), n, preview(data))

	if wait := viper.GetDuration("wait"); wait > 0 {
		holdSession(ctx, s, wait)
	}
	return nil
}

// preview shows at most 50 bytes with non-printable bytes replaced.
func preview(data []byte) string {
	suffix := ""
	if len(data) > 50 {
		data, suffix = data[:50], "..."
	}
	return strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, string(data)) + suffix
}
