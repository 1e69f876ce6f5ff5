/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/serialman/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <port> <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Open a session on the port and set the DTR (Data Terminal Ready) line.

The DTR signal indicates that the terminal is ready for communication.
Most drivers drop DTR again when the port closes; use --hold to keep the
session open until the duration elapses or Ctrl+C is pressed.

Examples:
  serialman dtr /dev/ttyUSB0 high
  serialman dtr /dev/ttyUSB0 low
  serialman dtr /dev/ttyUSB0 on --hold 10s

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLineCommand(cmd.Context(), "DTR", args[0], args[1])
	},
}

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <port> <state>",
	Short: "Control RTS (Request To Send) signal",
	Long: `Open a session on the port and set the RTS (Request To Send) line.

The RTS signal can be used for software flow control or custom signaling,
such as the reset pin of a development board.

Examples:
  serialman rts /dev/ttyUSB0 high
  serialman rts /dev/ttyUSB0 off
  serialman rts /dev/ttyUSB0 1 --hold 2s

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLineCommand(cmd.Context(), "RTS", args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(dtrCmd)
	rootCmd.AddCommand(rtsCmd)

	dtrCmd.Flags().Duration("hold", 0, "Keep the session open this long after setting the line")
	rtsCmd.Flags().Duration("hold", 0, "Keep the session open this long after setting the line")
}

func runLineCommand(ctx context.Context, line, portPath, stateArg string) error {
	state, err := parseSignalState(stateArg)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctrl, _, err := newController(nil)
	if err != nil {
		return err
	}
	s, err := ctrl.Open(ctx, session.PortDescriptor{Name: portPath, BaudRate: viper.GetInt("baud")})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	set, current := ctrl.SetDTR, s.DTR
	if line == "RTS" {
		set, current = ctrl.SetRTS, s.RTS
	}
	if err := set(state); err != nil {
		return err
	}
	fmt.Printf("%s set to %s on %s\n", line, formatSignalState(current()), portPath)

	if hold := viper.GetDuration("hold"); hold > 0 {
		holdSession(ctx, s, hold)
	}
	return nil
}

// holdSession blocks until d elapses, the user interrupts or the session
// ends on its own.
func holdSession(ctx context.Context, s *session.Session, d time.Duration) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	case <-s.Done():
	}
}
