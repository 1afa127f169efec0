// Package session provides the CLI commands that inspect and clean up bridge
// sessions and their logs.
package session

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/D3h420/janos-app/internal/config"
	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/session"
)

// Register adds all session-related commands to the given parent command.
func Register(parent *cobra.Command) {
	parent.AddCommand(sessionsCmd)
	parent.AddCommand(logsCmd)
}

func dataDir() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Paths.ResolveDataDir(), nil
}

// findSession resolves a full session ID or a unique prefix of one.
func findSession(dir, id string) (*session.Info, error) {
	if info, err := session.GetSessionInfo(dir, id); err == nil {
		return info, nil
	}
	sessions, err := session.ListSessions(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var match *session.Info
	for _, s := range sessions {
		if !strings.HasPrefix(s.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("session prefix %q is ambiguous", id)
		}
		match = s
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", janoserrors.ErrSessionNotFound, id)
	}
	return match, nil
}
