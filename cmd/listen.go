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

	"github.com/allbin/serialman/internal/logging"
	"github.com/allbin/serialman/internal/payload"
	"github.com/allbin/serialman/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Stream data from a serial port to stdout or a file",
	Long: `Open a session on the port and copy everything it receives to stdout,
or append it to a file with --output.

The session ends on Ctrl+C, when --duration elapses, or when the device goes
away. A device that disappears is reported as an error.

Example usage:
  serialman listen /dev/ttyUSB0
  serialman listen /dev/ttyUSB0 --baud 9600 --hex --timestamps
  serialman listen /dev/ttyUSB0 --output capture.log --dtr high
  serialman listen /dev/ttyACM0 --duration 30s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListen(args[0])
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringP("output", "o", "", "Append received data to this file instead of stdout")
	listenCmd.Flags().BoolP("hex", "x", false, "Write received chunks as hex lines")
	listenCmd.Flags().Bool("timestamps", false, "Prefix each received chunk with its arrival time")
	listenCmd.Flags().String("dtr", "", "Set DTR after opening (high/low)")
	listenCmd.Flags().String("rts", "", "Set RTS after opening (high/low)")
	listenCmd.Flags().Duration("duration", 0, "Stop after this long (0 = until interrupted)")
}

// chunkSink writes received chunks to out. It runs on the session reader
// goroutine only and keeps the first write error.
type chunkSink struct {
	out        io.Writer
	hex        bool
	timestamps bool
	err        error
}

func (s *chunkSink) write(c session.Chunk) {
	if s.err != nil {
		return
	}
	var err error
	switch {
	case s.hex && s.timestamps:
		_, err = fmt.Fprintf(s.out, "[%s] %s\n", c.At.Format("15:04:05.000"), payload.Hex(c.Data))
	case s.hex:
		_, err = fmt.Fprintln(s.out, payload.Hex(c.Data))
	case s.timestamps:
		_, err = fmt.Fprintf(s.out, "[%s] %s\n", c.At.Format("15:04:05.000"), payload.Text(c.Data))
	default:
		_, err = s.out.Write(c.Data)
	}
	s.err = err
}

func runListen(portPath string) error {
	var out io.Writer = os.Stdout
	if path := viper.GetString("output"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := viper.GetDuration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	sink := &chunkSink{out: out, hex: viper.GetBool("hex"), timestamps: viper.GetBool("timestamps")}
	closed := make(chan session.ClosedEvent, 1)
	ctrl, drv, err := newController(session.HandlerFuncs{
		BytesReceived: sink.write,
		SessionClosed: func(e session.ClosedEvent) { closed <- e },
	})
	if err != nil {
		return err
	}

	desc := session.PortDescriptor{Name: portPath, BaudRate: viper.GetInt("baud")}
	if _, err := ctrl.Open(ctx, desc); err != nil {
		return err
	}
	logging.L().Info("listen_start", "port", desc.Name, "baud", desc.BaudRate, "driver", drv.Name())

	if err := applyInitialLines(ctrl, viper.GetString("dtr"), viper.GetString("rts")); err != nil {
		ctrl.Close()
		return err
	}

	var ev session.ClosedEvent
	select {
	case <-ctx.Done():
		ctrl.Close()
		ev = <-closed
	case ev = <-closed:
	}

	if ev.Reason != session.CloseRequested {
		return ev.Err
	}
	if sink.err != nil {
		return fmt.Errorf("writing output: %w", sink.err)
	}
	return nil
}

// applyInitialLines sets DTR and RTS when the flags are given.
func applyInitialLines(ctrl *session.Controller, dtr, rts string) error {
	for _, l := range []struct {
		value string
		set   func(bool) error
	}{
		{dtr, ctrl.SetDTR},
		{rts, ctrl.SetRTS},
	} {
		if l.value == "" {
			continue
		}
		state, err := parseSignalState(l.value)
		if err != nil {
			return err
		}
		if err := l.set(state); err != nil {
			return err
		}
	}
	return nil
}
