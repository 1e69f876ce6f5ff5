/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	serial "github.com/allbin/serialman"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports the selected driver can see.

The termios driver scans /dev for communication-capable devices and reads
USB metadata from sysfs:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.
The bugst driver asks go.bug.st/serial's enumerator instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		drv, err := selectedDriver()
		if err != nil {
			return err
		}
		ports, err := drv.List()
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}

		filterType := viper.GetString("filter")
		filtered, err := filterPorts(ports, filterType)
		if err != nil {
			return err
		}

		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return nil
		}

		if viper.GetBool("table") {
			fmt.Printf("Found %d serial port(s):\n\n", len(filtered))
			fmt.Println(renderTable(filtered))
		} else {
			renderSimple(os.Stdout, filtered)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts keeps the ports of one family.
func filterPorts(ports []serial.PortInfo, filterType string) ([]serial.PortInfo, error) {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return ports, nil
	}

	var match func(serial.PortInfo) bool
	switch filterType {
	case "usb":
		match = func(p serial.PortInfo) bool {
			name := strings.ToLower(p.Name)
			return p.IsUSB() || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
		}
	case "standard":
		match = func(p serial.PortInfo) bool { return strings.HasPrefix(strings.ToLower(p.Name), "ttys") }
	case "arm":
		match = func(p serial.PortInfo) bool { return strings.HasPrefix(strings.ToLower(p.Name), "ttyama") }
	default:
		return nil, fmt.Errorf("invalid filter: %s (valid: usb, standard, arm, all)", filterType)
	}

	var filtered []serial.PortInfo
	for _, p := range ports {
		if match(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

const (
	colPort = "port"
	colType = "type"
	colDesc = "desc"
	colUSB  = "usb"
)

// renderTable renders the port list as a static bubble-table.
func renderTable(ports []serial.PortInfo) string {
	columns := []table.Column{
		table.NewColumn(colPort, "Port", 16),
		table.NewColumn(colType, "Type", 16),
		table.NewColumn(colDesc, "Description", 32),
		table.NewColumn(colUSB, "VID:PID", 11),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		usb := "-"
		if p.IsUSB() {
			usb = p.VendorID + ":" + p.ProductID
		}
		rows = append(rows, table.NewRow(table.RowData{
			colPort: p.Path,
			colType: getPortType(p.Name),
			colDesc: p.Description,
			colUSB:  usb,
		}))
	}

	return table.New(columns).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))).
		WithBaseStyle(lipgloss.NewStyle().Align(lipgloss.Left)).
		View()
}

// renderSimple prints one path per line
func renderSimple(w io.Writer, ports []serial.PortInfo) {
	for _, p := range ports {
		fmt.Fprintln(w, p.Path)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
