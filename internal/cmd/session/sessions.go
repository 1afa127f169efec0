package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/D3h420/janos-app/internal/logging"
	"github.com/D3h420/janos-app/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage bridge sessions",
	Long: `Every connection to a board is recorded as a session under the data
directory, together with its log. Use these commands to list, inspect and
clean them up.`,
	RunE: runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session",
	Long:  `Show one session. A unique prefix of the ID is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale locks and old sessions",
	Long: `Clean up session data.

This command will:
1. Remove device locks left behind by processes that are gone
2. Remove ended sessions older than --older-than, or every ended session with --all

Running sessions are never removed.`,
	Args: cobra.NoArgs,
	RunE: runSessionsClean,
}

var (
	cleanAll       bool
	cleanOlderThan time.Duration
)

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsCleanCmd)

	sessionsCleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every ended session")
	sessionsCleanCmd.Flags().DurationVar(&cleanOlderThan, "older-than", 0, "Remove ended sessions older than this (e.g. 168h)")
}

func status(s *session.Info) string {
	switch {
	case s.IsRunning:
		return "RUNNING"
	case s.EndedAt == nil:
		return "interrupted"
	}
	return "ended"
}

func duration(s *session.Info) time.Duration {
	end := time.Now()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	return end.Sub(s.StartedAt).Round(time.Second)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	sessions, err := session.ListSessions(dir)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	fmt.Println(strings.Repeat("─", 70))
	fmt.Println("janos sessions")
	fmt.Println(strings.Repeat("─", 70))

	if len(sessions) == 0 {
		fmt.Println("\nNo sessions found.")
		fmt.Println("Run 'janos' to connect to a board.")
		return nil
	}

	fmt.Printf("\nFound %d session(s):\n\n", len(sessions))
	for _, s := range sessions {
		fmt.Printf("  Session: %s\n", s.ShortID())
		fmt.Printf("    Device:   %s\n", s.Device)
		fmt.Printf("    Started:  %s (%s)\n", s.StartedAt.Format(time.RFC822), duration(s))
		fmt.Printf("    Activity: %d scans, %d networks, %d probes\n", s.Scans, s.Networks, s.Probes)
		fmt.Printf("    Status:   %s\n", status(s))
		fmt.Println()
	}

	locks, err := session.ListLocks(dir)
	if err == nil {
		stale := 0
		for _, l := range locks {
			if !l.Alive {
				stale++
			}
		}
		if stale > 0 {
			fmt.Printf("%d stale device lock(s). Run 'janos sessions clean' to remove them.\n", stale)
		}
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}
	s, err := findSession(dir, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Session:  %s\n", s.ID)
	fmt.Printf("Device:   %s\n", s.Device)
	fmt.Printf("Started:  %s\n", s.StartedAt.Format(time.RFC3339))
	if s.EndedAt != nil {
		fmt.Printf("Ended:    %s\n", s.EndedAt.Format(time.RFC3339))
	}
	fmt.Printf("Duration: %s\n", duration(s))
	fmt.Printf("Status:   %s\n", status(s))
	fmt.Printf("Scans:    %d (%d networks in the last)\n", s.Scans, s.Networks)
	fmt.Printf("Probes:   %d\n", s.Probes)
	fmt.Printf("Log:      %s\n", filepath.Join(s.SessionDir, logging.LogFileName))
	return nil
}

func runSessionsClean(cmd *cobra.Command, args []string) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}

	freed, err := session.CleanupStaleLocks(dir)
	if err != nil {
		return fmt.Errorf("failed to clean locks: %w", err)
	}
	for _, d := range freed {
		fmt.Printf("Removed stale lock: %s\n", d)
	}

	var removed []string
	switch {
	case cleanAll:
		removed, err = session.RemoveEndedSessions(dir, time.Now())
	case cleanOlderThan > 0:
		removed, err = session.RemoveEndedSessions(dir, time.Now().Add(-cleanOlderThan))
	}
	if err != nil {
		return fmt.Errorf("failed to remove sessions: %w", err)
	}
	for _, id := range removed {
		fmt.Printf("Removed session: %s\n", session.TruncateID(id))
	}

	if len(freed) == 0 && len(removed) == 0 {
		fmt.Println("Nothing to clean up.")
	}
	return nil
}
