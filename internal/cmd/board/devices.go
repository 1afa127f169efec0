package board

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/D3h420/janos-app/internal/config"
	"github.com/D3h420/janos-app/internal/privilege"
	"github.com/D3h420/janos-app/internal/serialport"
	"github.com/D3h420/janos-app/internal/session"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List serial devices",
	Long: `List the serial devices attached to this machine. Devices that look like
an ESP32 board (CP210x, CH34x or Espressif USB) are marked and listed first.
Devices held by a running janos session are shown as locked.`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

var devicesJSON bool

func init() {
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "Print devices as JSON")
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	filter, err := PortFilter(cfg)
	if err != nil {
		return err
	}
	ports, err := serialport.List(listPorts, filter)
	if err != nil {
		return fmt.Errorf("listing serial devices: %w", err)
	}

	if devicesJSON {
		if ports == nil {
			ports = []serialport.PortInfo{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ports)
	}

	if len(ports) == 0 {
		fmt.Println("No serial devices found.")
		if st := privilege.Check(); !st.Sufficient() {
			fmt.Println(privilege.CurrentUserHint())
		}
		return nil
	}

	locksDir := session.GetLocksDir(cfg.Paths.ResolveDataDir())
	for i, p := range ports {
		marker := " "
		if p.Probable {
			marker = "*"
		}
		line := fmt.Sprintf("%s %d) %s", marker, i+1, p.Label())
		if lock, locked := session.IsDeviceLocked(locksDir, p.Name); locked {
			line += fmt.Sprintf("  (locked by PID %d)", lock.PID)
		}
		fmt.Println(line)
	}
	fmt.Println()
	fmt.Println("* looks like an ESP32 board")
	return nil
}
