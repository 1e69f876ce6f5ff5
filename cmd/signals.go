/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	serial "github.com/allbin/serialman"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display current modem signal states",
	Long: `Display the current state of all modem control signals.

Shows the state of CTS, DSR, RI, DCD, RTS, and DTR signals for the specified port.
With --watch the port is polled and every change is printed until Ctrl+C.

Examples:
  serialman signals /dev/ttyUSB0
  serialman signals /dev/ttyACM0 --watch 50ms

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		drv, err := selectedDriver()
		if err != nil {
			return err
		}
		port, err := drv.Open(portPath, serial.WithBaudRate(viper.GetInt("baud")))
		if err != nil {
			return err
		}
		defer port.Close()

		signals, err := readSignals(port, portPath)
		if err != nil {
			return err
		}
		printSignals(os.Stdout, portPath, signals)

		interval := viper.GetDuration("watch")
		if interval <= 0 {
			return nil
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Println("Watching for changes, press Ctrl+C to stop")
		return watchSignals(ctx, port, portPath, interval, signals, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().DurationP("watch", "w", 0, "Poll the signals at this interval and print changes")
}

func readSignals(port serial.Port, portPath string) (serial.ModemSignals, error) {
	signals, err := port.GetModemSignals()
	if err != nil {
		return serial.ModemSignals{}, &serial.DeviceError{Op: serial.OpSignals, Port: portPath, Err: err}
	}
	return signals, nil
}

func printSignals(w io.Writer, portPath string, signals serial.ModemSignals) {
	fmt.Fprintf(w, "Modem Signals for %s:\n\n", portPath)
	fmt.Fprintf(w, "  CTS (Clear To Send):       %s\n", formatSignalState(signals.CTS))
	fmt.Fprintf(w, "  DSR (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
	fmt.Fprintf(w, "  RI  (Ring Indicator):      %s\n", formatSignalState(signals.RI))
	fmt.Fprintf(w, "  DCD (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
	fmt.Fprintf(w, "  RTS (Request To Send):     %s\n", formatSignalState(signals.RTS))
	fmt.Fprintf(w, "  DTR (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))
}

func watchSignals(ctx context.Context, port serial.Port, portPath string, interval time.Duration, last serial.ModemSignals, w io.Writer) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			now, err := readSignals(port, portPath)
			if err != nil {
				return err
			}
			printSignalChanges(w, time.Now(), last, now)
			last = now
		}
	}
}

// printSignalChanges prints one line per signal that differs between prev and cur.
func printSignalChanges(w io.Writer, at time.Time, prev, cur serial.ModemSignals) {
	changes := []struct {
		name          string
		before, after bool
	}{
		{"CTS", prev.CTS, cur.CTS},
		{"DSR", prev.DSR, cur.DSR},
		{"RI", prev.RI, cur.RI},
		{"DCD", prev.DCD, cur.DCD},
		{"RTS", prev.RTS, cur.RTS},
		{"DTR", prev.DTR, cur.DTR},
	}
	for _, c := range changes {
		if c.before != c.after {
			fmt.Fprintf(w, "[%s] %-3s %s -> %s\n", at.Format("15:04:05.000"), c.name, formatSignalState(c.before), formatSignalState(c.after))
		}
	}
}
