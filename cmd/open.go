/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"

	"github.com/allbin/serialman/internal/payload"
	"github.com/allbin/serialman/internal/tui/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// openCmd represents the open command
var openCmd = &cobra.Command{
	Use:   "open [port]",
	Short: "Interactive session terminal",
	Long: `Open the interactive session terminal.

Pick a port and baud rate, open and close the session, watch received data
as text or hex, send lines with a chosen line ending and toggle DTR and RTS.
When a port is given it is preselected; --connect opens it right away.

Keys (normal mode):
  o        open/close the session     r      refresh the port list
  tab      switch port/baud field     ←/→    change the focused field
  d / t    toggle DTR / RTS           x      toggle hex view
  i        type a line to send        c      clear the log
  ?        help                       q      quit

Logs are discarded unless --log-file is given, since the terminal is in use.

Example usage:
  serialman open
  serialman open /dev/ttyUSB0 --baud 9600 --connect
  serialman open /dev/ttyACM0 --line-ending lf`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{tuiAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var port string
		if len(args) == 1 {
			port = args[0]
		}
		le, err := payload.ParseLineEnding(viper.GetString("line-ending"))
		if err != nil {
			return err
		}
		return runOpenTUI(port, le, viper.GetBool("connect"))
	},
}

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().StringP("line-ending", "e", "crlf", "Line ending for sent lines: none, crlf, cr, lf")
	openCmd.Flags().BoolP("connect", "c", false, "Open the given port immediately")
}

func runOpenTUI(port string, le payload.LineEnding, connect bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The handler needs the program and the program needs the model; send
	// is bound once the program exists, before any session can open.
	var p *tea.Program
	ctrl, drv, err := newController(models.Handler(func(m tea.Msg) { p.Send(m) }))
	if err != nil {
		return err
	}

	app := models.NewApp(models.Config{
		Context:    ctx,
		Controller: ctrl,
		List:       drv.List,
		Driver:     drv.Name(),
		Port:       port,
		BaudRate:   viper.GetInt("baud"),
		LineEnding: le,
		AutoOpen:   connect,
	})
	p = tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	_, err = p.Run()

	// After Run returns Send no longer blocks, so the reader can finish
	cancel()
	if cerr := ctrl.Close(); err == nil {
		err = cerr
	}
	return err
}
