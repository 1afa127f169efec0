// Package history provides the CLI commands that browse the scan and probe
// history recorded by earlier sessions.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/D3h420/janos-app/internal/config"
	"github.com/D3h420/janos-app/internal/history"
	"github.com/D3h420/janos-app/internal/session"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded scans and probe requests",
	Long: `Scans and probe captures are recorded to history.db in the data directory
when history is enabled. These commands read it without a board attached.`,
	RunE: runScans,
}

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "List recent scans, newest first",
	Args:  cobra.NoArgs,
	RunE:  runScans,
}

var networksCmd = &cobra.Command{
	Use:   "networks <scan-id>",
	Short: "Show the networks seen by one scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runNetworks,
}

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List recorded probe requests, newest first",
	Args:  cobra.NoArgs,
	RunE:  runProbes,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old history records",
	Long: `Delete scans and probe requests older than --older-than. Without the flag
the configured history.retention_days is used.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

var (
	limit     int
	asJSON    bool
	olderThan time.Duration
)

func init() {
	for _, c := range []*cobra.Command{historyCmd, scansCmd, probesCmd} {
		c.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show (0 for all)")
	}
	for _, c := range []*cobra.Command{historyCmd, scansCmd, networksCmd, probesCmd} {
		c.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	}
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Delete records older than this (e.g. 720h)")

	historyCmd.AddCommand(scansCmd)
	historyCmd.AddCommand(networksCmd)
	historyCmd.AddCommand(probesCmd)
	historyCmd.AddCommand(pruneCmd)
}

// Register adds the history commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(historyCmd)
}

func openStore() (*history.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return history.OpenInDataDir(cfg.Paths.ResolveDataDir())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runScans(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	scans, err := store.RecentScans(context.Background(), limit)
	if err != nil {
		return err
	}
	if asJSON {
		if scans == nil {
			scans = []history.ScanRecord{}
		}
		return printJSON(scans)
	}
	if len(scans) == 0 {
		fmt.Println("No scans recorded.")
		return nil
	}

	fmt.Printf("%-5s %-19s %-16s %-9s %-8s %s\n", "ID", "STARTED", "DEVICE", "NETWORKS", "TOOK", "SESSION")
	for _, s := range scans {
		took := s.Duration.Round(100 * time.Millisecond).String()
		if !s.Completed {
			took += "*"
		}
		fmt.Printf("%-5d %-19s %-16s %-9d %-8s %s\n",
			s.ID, s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.Device, s.NetworkCount, took,
			session.TruncateID(s.SessionID))
	}
	fmt.Println()
	fmt.Println("* timed out before the scan finished")
	return nil
}

func runNetworks(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 0)
	if err != nil {
		return fmt.Errorf("invalid scan id %q", args[0])
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	networks, err := store.Networks(context.Background(), uint(id))
	if err != nil {
		return err
	}
	if asJSON {
		if networks == nil {
			networks = []history.NetworkRecord{}
		}
		return printJSON(networks)
	}
	if len(networks) == 0 {
		fmt.Printf("No networks recorded for scan %d.\n", id)
		return nil
	}

	fmt.Printf("%-3s %-24s %-17s %-3s %-14s %-5s %-6s %s\n", "#", "SSID", "BSSID", "CH", "AUTH", "RSSI", "BAND", "VENDOR")
	for _, n := range networks {
		fmt.Printf("%-3d %-24s %-17s %-3s %-14s %-5d %-6s %s\n",
			n.Position, n.SSID, n.BSSID, n.Channel, n.Auth, n.RSSI, n.Band, n.Vendor)
	}
	return nil
}

func runProbes(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	probes, err := store.Probes(context.Background(), limit)
	if err != nil {
		return err
	}
	if asJSON {
		if probes == nil {
			probes = []history.ProbeRecord{}
		}
		return printJSON(probes)
	}
	if len(probes) == 0 {
		fmt.Println("No probe requests recorded.")
		return nil
	}

	fmt.Printf("%-19s %-17s %-28s %s\n", "CAPTURED", "MAC", "SSID", "RSSI")
	for _, p := range probes {
		fmt.Printf("%-19s %-17s %-28s %s\n", p.CapturedAt.Local().Format("2006-01-02 15:04:05"), p.MAC, p.SSID, p.RSSI)
	}
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	retention := olderThan
	if retention == 0 {
		retention = cfg.History.Retention()
	}
	if retention <= 0 {
		fmt.Println("History retention is unlimited; nothing to prune.")
		return nil
	}

	scans, probes, err := history.PruneDataDir(context.Background(), cfg.Paths.ResolveDataDir(), retention)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d scans and %d probe requests older than %s.\n", scans, probes, retention)
	return nil
}
