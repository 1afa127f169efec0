package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/D3h420/janos-app/internal/config"
	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/logging"
	"github.com/D3h420/janos-app/internal/session"
)

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	config.SetDefaults()
	viper.Set("paths.data_dir", dir)
	cleanAll, cleanOlderThan = false, 0
	t.Cleanup(viper.Reset)
	return dir
}

func saveSession(t *testing.T, dir string, ended time.Duration) *session.Session {
	t.Helper()
	store, err := session.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	s := session.New("/dev/ttyUSB0", 115200)
	if ended > 0 {
		s.StartedAt = time.Now().Add(-ended - time.Minute)
		end := time.Now().Add(-ended)
		s.EndedAt = &end
	}
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFindSession(t *testing.T) {
	dir := setup(t)
	s := saveSession(t, dir, time.Hour)

	got, err := findSession(dir, s.ID[:8])
	if err != nil || got.ID != s.ID {
		t.Fatalf("findSession(prefix) = %v, %v", got, err)
	}
	if _, err := findSession(dir, "zzzz"); !errors.Is(err, janoserrors.ErrSessionNotFound) {
		t.Errorf("findSession(unknown) error = %v, want ErrSessionNotFound", err)
	}
}

func TestRunSessionsListAndShow(t *testing.T) {
	dir := setup(t)
	if err := runSessionsList(sessionsListCmd, nil); err != nil {
		t.Fatalf("runSessionsList() empty error = %v", err)
	}

	s := saveSession(t, dir, time.Hour)
	if err := runSessionsList(sessionsListCmd, nil); err != nil {
		t.Errorf("runSessionsList() error = %v", err)
	}
	if err := runSessionsShow(sessionsShowCmd, []string{s.ID}); err != nil {
		t.Errorf("runSessionsShow() error = %v", err)
	}
}

func TestRunSessionsClean(t *testing.T) {
	dir := setup(t)
	old := saveSession(t, dir, 48*time.Hour)
	recent := saveSession(t, dir, time.Minute)
	open := saveSession(t, dir, 0)

	// Without a cutoff only locks are cleaned.
	if err := runSessionsClean(sessionsCleanCmd, nil); err != nil {
		t.Fatalf("runSessionsClean() error = %v", err)
	}
	if sessions, _ := session.ListSessions(dir); len(sessions) != 3 {
		t.Fatalf("sessions = %d, want 3 kept", len(sessions))
	}

	cleanOlderThan = 24 * time.Hour
	if err := runSessionsClean(sessionsCleanCmd, nil); err != nil {
		t.Fatalf("runSessionsClean() error = %v", err)
	}
	if _, err := session.GetSessionInfo(dir, old.ID); err == nil {
		t.Error("old session not removed")
	}
	for _, keep := range []*session.Session{recent, open} {
		if _, err := session.GetSessionInfo(dir, keep.ID); err != nil {
			t.Errorf("session %s removed, want kept", session.TruncateID(keep.ID))
		}
	}

	cleanAll = true
	if err := runSessionsClean(sessionsCleanCmd, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := session.GetSessionInfo(dir, open.ID); err != nil {
		t.Error("unterminated session removed by --all")
	}
}

const logLines = `{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"device connected","component":"bridge"}
{"time":"2026-01-02T10:00:01Z","level":"DEBUG","msg":"command sent","command":"scan_networks"}
not json
{"time":"2026-01-02T10:00:02Z","level":"WARN","msg":"scan timed out","component":"bridge"}
{"time":"2026-01-02T10:00:03Z","level":"ERROR","msg":"device connection lost","component":"tui"}
`

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), logging.LogFileName)
	if err := os.WriteFile(path, []byte(logLines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDisplayLogs(t *testing.T) {
	path := writeLog(t)

	tests := []struct {
		name  string
		q     logQuery
		tail  int
		want  []string
		avoid []string
	}{
		{"all", logQuery{}, 0, []string{"device connected", "command sent", "connection lost"}, nil},
		{"tail", logQuery{}, 1, []string{"connection lost"}, []string{"scan timed out"}},
		{"level", logQuery{filter: logging.Filter{MinLevel: "warn"}}, 0,
			[]string{"scan timed out", "connection lost"}, []string{"device connected"}},
		{"component", logQuery{filter: logging.Filter{Component: "bridge"}}, 0,
			[]string{"device connected", "scan timed out"}, []string{"connection lost"}},
		{"grep fields", logQuery{grep: regexp.MustCompile(`scan_net`)}, 0,
			[]string{"command sent"}, []string{"device connected"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := displayLogs(path, tt.tail, tt.q, &buf); err != nil {
				t.Fatalf("displayLogs() error = %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, a := range tt.avoid {
				if strings.Contains(out, a) {
					t.Errorf("output contains %q:\n%s", a, out)
				}
			}
		})
	}
}

func TestDisplayLogs_NoMatches(t *testing.T) {
	var buf bytes.Buffer
	q := logQuery{grep: regexp.MustCompile("nothing-like-this")}
	if err := displayLogs(writeLog(t), 0, q, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No matching log entries") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFollowLogs(t *testing.T) {
	path := writeLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	var buf syncBuffer
	done := make(chan error, 1)
	go func() { done <- followLogs(ctx, path, logQuery{}, &buf) }()

	// Wait until follow has seeked past the existing content.
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "Following") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"time":"2026-01-02T10:00:04Z","level":"INFO","msg":"sniffer started"}` + "\n")
	_ = f.Close()

	for !strings.Contains(buf.String(), "sniffer started") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("followLogs() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "sniffer started") {
		t.Errorf("appended entry not followed:\n%s", out)
	}
	if strings.Contains(out, "device connected") {
		t.Errorf("existing entries printed in follow mode:\n%s", out)
	}
}
