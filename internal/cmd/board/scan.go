package board

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/janos"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Wi-Fi networks",
	Long: `Run scan_networks on the board and print the networks it finds.

With --select the given networks (1-based numbers, or "all") are selected
on the board after the scan.`,
	Example: `  janos scan
  janos scan --select "1 3"
  janos scan --json > networks.json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanSelect string
	scanJSON   bool
)

func init() {
	scanCmd.Flags().StringVar(&scanSelect, "select", "", `Networks to select after the scan ("1 3" or "all")`)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print networks as JSON")
}

type scanOutput struct {
	Networks  []janos.Network `json:"networks"`
	Completed bool            `json:"completed"`
	Duration  string          `json:"duration"`
	Selected  []int           `json:"selected,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	return withController(cmd, func(ctx context.Context, c *bridge.Controller) error {
		var progress func(janos.Network)
		if !scanJSON {
			fmt.Fprintln(os.Stderr, "Scanning...")
			found := 0
			progress = func(janos.Network) {
				found++
				fmt.Fprintf(os.Stderr, "\r%d networks found", found)
			}
		}
		res, err := c.Scan(ctx, progress)
		if err != nil {
			return err
		}
		if !scanJSON {
			fmt.Fprintln(os.Stderr)
		}

		var selected []int
		if scanSelect != "" {
			selected, err = c.Select(ctx, scanSelect)
			if err != nil {
				return err
			}
		}

		if scanJSON {
			out := scanOutput{
				Networks:  res.Networks,
				Completed: res.Completed,
				Duration:  res.Duration.Round(time.Millisecond).String(),
				Selected:  selected,
			}
			if out.Networks == nil {
				out.Networks = []janos.Network{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		printNetworks(res.Networks)
		fmt.Println()
		fmt.Printf("%d networks in %s", len(res.Networks), res.Duration.Round(100*time.Millisecond))
		if !res.Completed {
			fmt.Print(" (timed out before the scan finished)")
		}
		fmt.Println()
		if len(selected) > 0 {
			fmt.Printf("Selected networks: %s\n", janos.FormatSelection(selected))
		}
		return nil
	})
}

func printNetworks(networks []janos.Network) {
	if len(networks) == 0 {
		fmt.Println("No networks found.")
		return
	}
	fmt.Printf("%-3s %-24s %-17s %-3s %-14s %-5s %-6s %s\n", "#", "SSID", "BSSID", "CH", "AUTH", "RSSI", "BAND", "VENDOR")
	for _, n := range networks {
		fmt.Printf("%-3s %-24s %-17s %-3s %-14s %-5s %-6s %s\n",
			n.Index, n.SSID, n.BSSID, n.Channel, n.Auth, n.RSSI, n.Band, n.Vendor)
	}
}
