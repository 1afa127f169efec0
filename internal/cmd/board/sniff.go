package board

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/D3h420/janos-app/internal/bridge"
	"github.com/D3h420/janos-app/internal/config"
	"github.com/D3h420/janos-app/internal/janos"
)

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Run the passive sniffer",
	Long: `Start the passive sniffer, show the live packet counter and stop it after
--duration, or on Ctrl-C when no duration is given. When the board still
holds networks from a scan in this run, the sniffer reuses them.`,
	Example: `  janos sniff --duration 30s
  janos sniff --duration 1m --results`,
	Args: cobra.NoArgs,
	RunE: runSniff,
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show the sniffer results held by the board",
	Args:  cobra.NoArgs,
	RunE:  runResults,
}

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "Show captured probe requests",
	Args:  cobra.NoArgs,
	RunE:  runProbes,
}

var (
	sniffDuration time.Duration
	sniffResults  bool
)

func init() {
	sniffCmd.Flags().DurationVar(&sniffDuration, "duration", 0, "How long to sniff (0 = until interrupted)")
	sniffCmd.Flags().BoolVar(&sniffResults, "results", false, "Print the sniffer results after stopping")
}

func runSniff(cmd *cobra.Command, args []string) error {
	interval := config.Get().Sniffer.UpdateInterval()
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return withController(cmd, func(ctx context.Context, c *bridge.Controller) error {
		noScan, err := c.StartSniffer(ctx)
		if err != nil {
			return err
		}
		if noScan {
			fmt.Fprintln(os.Stderr, "Sniffer started on the scanned networks. Press Ctrl-C to stop.")
		} else {
			fmt.Fprintln(os.Stderr, "Sniffer started. Press Ctrl-C to stop.")
		}

		var deadline <-chan time.Time
		if sniffDuration > 0 {
			timer := time.NewTimer(sniffDuration)
			defer timer.Stop()
			deadline = timer.C
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-deadline:
				break loop
			case <-ticker.C:
				if err := c.Lost(); err != nil {
					fmt.Fprintln(os.Stderr)
					return err
				}
				fmt.Fprintf(os.Stderr, "\r%d packets", c.Packets())
			}
		}
		fmt.Fprintln(os.Stderr)

		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		packets, err := c.StopSniffer(stopCtx)
		if err != nil {
			return err
		}
		fmt.Printf("Sniffer stopped after %d packets.\n", packets)

		if !sniffResults {
			return nil
		}
		res, err := c.SnifferResults(stopCtx)
		if err != nil {
			return err
		}
		fmt.Println()
		printPackets(res)
		return nil
	})
}

func runResults(cmd *cobra.Command, args []string) error {
	return withController(cmd, func(ctx context.Context, c *bridge.Controller) error {
		res, err := c.SnifferResults(ctx)
		if err != nil {
			return err
		}
		printPackets(res)
		return nil
	})
}

func runProbes(cmd *cobra.Command, args []string) error {
	return withController(cmd, func(ctx context.Context, c *bridge.Controller) error {
		probes, err := c.Probes(ctx)
		if err != nil {
			return err
		}
		printProbes(probes)
		return nil
	})
}

func printPackets(res *bridge.SnifferResults) {
	if len(res.Packets) == 0 {
		fmt.Println("No packets.")
	} else {
		fmt.Printf("%-12s %-17s %-17s %-6s %s\n", "TYPE", "SRC", "DST", "SIZE", "INFO")
		for _, p := range res.Packets {
			fmt.Printf("%-12s %-17s %-17s %-6s %s\n", p.Type, p.Src, p.Dst, p.Size, p.Info)
		}
	}
	for _, l := range res.Other {
		fmt.Println(l)
	}
}

func printProbes(probes []janos.Probe) {
	if len(probes) == 0 {
		fmt.Println("No probe requests captured.")
		return
	}
	fmt.Printf("%-17s %-28s %-8s %s\n", "MAC", "SSID", "RSSI", "TIME")
	for _, p := range probes {
		fmt.Printf("%-17s %-28s %-8s %s\n", p.MAC, p.SSID, p.RSSI, p.Timestamp)
	}
}
