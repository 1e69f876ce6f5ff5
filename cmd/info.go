/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	serial "github.com/allbin/serialman"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  serialman info /dev/ttyUSB0
  serialman info /dev/ttyACM0 --usb

For USB devices, this displays vendor/product IDs, serial numbers, interface
numbers, and other USB-specific metadata extracted from sysfs. With --usb the
command fails for ports that carry no USB metadata.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		lookup := serial.GetPortInfo
		if viper.GetBool("usb") {
			lookup = serial.GetUSBInfo
		}
		info, err := lookup(portPath)
		if err != nil {
			return fmt.Errorf("getting port info: %w", err)
		}

		drv, err := selectedDriver()
		if err != nil {
			return err
		}
		printPortInfo(os.Stdout, info, drv.Name(), drv.ControlLines())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("usb", false, "Require USB metadata for the port")
}

func printPortInfo(w io.Writer, info *serial.PortInfo, driverName string, controlLines bool) {
	fmt.Fprintf(w, "Port Information: %s\n\n", info.Path)
	fmt.Fprintf(w, "  Name:          %s\n", info.Name)
	fmt.Fprintf(w, "  Type:          %s\n", getPortType(info.Name))
	fmt.Fprintf(w, "  Description:   %s\n", info.Description)
	fmt.Fprintf(w, "  Driver:        %s\n", driverName)
	fmt.Fprintf(w, "  DTR/RTS:       %s\n", yesNo(controlLines))

	if !info.IsUSB() {
		return
	}
	fmt.Fprintln(w, "\nUSB Device Information:")
	fields := []struct{ label, value string }{
		{"Vendor ID", info.VendorID},
		{"Product ID", info.ProductID},
		{"Serial", info.SerialNumber},
		{"Interface", info.InterfaceNumber},
		{"Bus", info.BusNumber},
		{"Device", info.DeviceNumber},
		{"Manufacturer", info.Manufacturer},
		{"Product", info.Product},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(w, "  %-13s %s\n", f.label+":", f.value)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "supported"
	}
	return "not supported"
}
