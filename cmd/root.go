/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	serial "github.com/allbin/serialman"
	"github.com/allbin/serialman/internal/driver"
	"github.com/allbin/serialman/internal/logging"
	"github.com/allbin/serialman/internal/metrics"
	"github.com/allbin/serialman/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Set through -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// tuiAnnotation marks commands that own the terminal; their logs go to
// --log-file or nowhere.
const tuiAnnotation = "tui"

var (
	logFile       io.Closer
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	metricsWG     sync.WaitGroup
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialman",
	Short: "Open, watch and drive serial port sessions",
	Long: `serialman manages one serial port session at a time.

It lists ports, opens a session on one of them, streams what the device
sends, writes lines to it and drives the DTR and RTS control lines.

Every flag can also be set from the environment with the SERIALMAN_ prefix,
for example SERIALMAN_DRIVER=bugst or SERIALMAN_LOG_LEVEL=debug.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { teardown() },
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		teardown()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("driver", driver.Default, "Serial driver: "+strings.Join(driver.Names(), ", "))
	pf.IntP("baud", "b", 115200, "Baud rate")
	pf.Duration("poll-interval", session.DefaultPollInterval, "Reader poll interval, at least 1ms")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text, json")
	pf.String("log-file", "", "Append logs to this file instead of stderr")
	pf.String("metrics-addr", "", "Serve Prometheus /metrics and /ready on this address (e.g. :9100)")
	pf.Duration("metrics-every", 0, "Log a metrics snapshot at this interval (0 = off)")

	viper.SetEnvPrefix("SERIALMAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlags(pf))
}

// bindFlags exposes a command's local flags through viper so they pick up
// SERIALMAN_ environment variables too.
func bindFlags(cmd *cobra.Command) {
	cobra.CheckErr(viper.BindPFlags(cmd.Flags()))
}

func setup(cmd *cobra.Command, args []string) error {
	bindFlags(cmd)

	var w io.Writer = os.Stderr
	if path := viper.GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logFile, w = f, f
	} else if cmd.Annotations[tuiAnnotation] != "" {
		w = io.Discard
	}
	logging.Set(logging.New(viper.GetString("log-format"), logging.ParseLevel(viper.GetString("log-level")), w))

	metrics.InitBuildInfo(version, commit, date)
	if addr := viper.GetString("metrics-addr"); addr != "" {
		metricsServer = metrics.StartHTTP(addr)
	}
	ctx, cancel := context.WithCancel(context.Background())
	metricsCancel = cancel
	metrics.StartLogger(ctx, viper.GetDuration("metrics-every"), logging.L(), &metricsWG)
	return nil
}

func teardown() {
	if metricsCancel != nil {
		metricsCancel()
		metricsWG.Wait()
		metricsCancel = nil
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = metricsServer.Shutdown(ctx)
		cancel()
		metricsServer = nil
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func selectedDriver() (driver.Driver, error) {
	return driver.Lookup(viper.GetString("driver"))
}

// driverOpener opens sessions through drv, applying opts after the baud rate.
func driverOpener(drv driver.Driver, opts ...serial.Option) session.Opener {
	return func(_ context.Context, d session.PortDescriptor) (session.Device, error) {
		all := append([]serial.Option{serial.WithBaudRate(d.BaudRate)}, opts...)
		port, err := drv.Open(d.Name, all...)
		if err != nil {
			return nil, err
		}
		return port, nil
	}
}

// newController builds a controller on the selected driver and reports its
// session as the /ready state.
func newController(h session.Handler, opts ...serial.Option) (*session.Controller, driver.Driver, error) {
	drv, err := selectedDriver()
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := session.New(
		session.WithOpener(driverOpener(drv, opts...)),
		session.WithHandler(h),
		session.WithPollInterval(viper.GetDuration("poll-interval")),
		session.WithLogger(logging.L()),
	)
	if err != nil {
		return nil, nil, err
	}
	metrics.SetReadinessFunc(func() bool { return ctrl.State() == session.StateOpen })
	return ctrl, drv, nil
}
