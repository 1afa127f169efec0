package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/D3h420/janos-app/internal/logging"
	"github.com/D3h420/janos-app/internal/session"
	"github.com/D3h420/janos-app/internal/tui/styles"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View session logs",
	Long: `View the log of a bridge session.

By default shows the last 50 lines of the most recent session.`,
	Example: `  # Show recent logs from the most recent session
  janos logs

  # Show all logs from a specific session
  janos logs -s abc123 -n 0

  # Follow logs in real-time
  janos logs -f

  # Only warnings and errors from the sniffer follower
  janos logs --level warn --component bridge

  # Show logs from the last hour matching a pattern
  janos logs --since 1h --grep "timeout|lost"`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsSessionID string
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsComponent string
	logsSince     time.Duration
	logsGrep      string
)

// followPoll is how often follow mode checks the file for new lines.
const followPoll = 100 * time.Millisecond

func init() {
	logsCmd.Flags().StringVarP(&logsSessionID, "session", "s", "", "Session ID (default: most recent)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only entries from this component")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
}

// logQuery is the parsed set of logs flags.
type logQuery struct {
	filter logging.Filter
	grep   *regexp.Regexp
	color  bool
}

func (q logQuery) match(e logging.Entry) bool {
	if len(q.filter.Apply([]logging.Entry{e})) == 0 {
		return false
	}
	return q.grep == nil || q.grep.MatchString(e.Format())
}

func (q logQuery) format(e logging.Entry) string {
	if !q.color {
		return e.Format()
	}
	s := styles.Active()
	level := fmt.Sprintf("%-5s", e.Level)
	switch logging.ParseLevel(e.Level) {
	case logging.LevelError:
		level = s.Error.Render(level)
	case logging.LevelWarn:
		level = s.Warning.Render(level)
	case logging.LevelDebug:
		level = s.Muted.Render(level)
	}

	var sb strings.Builder
	sb.WriteString(s.Muted.Render(e.Time.Format("15:04:05.000")))
	sb.WriteString(" " + level + " " + e.Message)
	key := lipgloss.NewStyle().Foreground(styles.GetPalette(styles.ThemeDefault).Primary)
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		sb.WriteString(fmt.Sprintf(" %s%v", key.Render(k+"="), e.Fields[k]))
	}
	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}

	var info *session.Info
	if logsSessionID != "" {
		info, err = findSession(dir, logsSessionID)
		if err != nil {
			return err
		}
	} else {
		sessions, err := session.ListSessions(dir)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}
		info = sessions[0]
	}

	logPath := filepath.Join(info.SessionDir, logging.LogFileName)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Printf("No logs found for session %s\n", info.ShortID())
		fmt.Println("Logs are stored at:", logPath)
		return nil
	}

	q := logQuery{
		filter: logging.Filter{MinLevel: logsLevel, Component: logsComponent},
		color:  term.IsTerminal(int(os.Stdout.Fd())),
	}
	if logsLevel != "" && !slices.Contains(logging.ValidLevels(), strings.ToUpper(logsLevel)) {
		return fmt.Errorf("invalid level %q: must be one of %s", logsLevel, strings.Join(logging.ValidLevels(), ", "))
	}
	if logsSince > 0 {
		q.filter.Since = time.Now().Add(-logsSince)
	}
	if logsGrep != "" {
		q.grep, err = regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	if logsFollow {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return followLogs(ctx, logPath, q, os.Stdout)
	}
	return displayLogs(logPath, logsTail, q, os.Stdout)
}

// displayLogs prints the matching entries, keeping only the last tail.
func displayLogs(logPath string, tail int, q logQuery, w io.Writer) error {
	entries, err := logging.ReadEntries(logPath)
	if err != nil {
		return err
	}

	var lines []string
	for _, e := range entries {
		if q.match(e) {
			lines = append(lines, q.format(e))
		}
	}
	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}

	if len(lines) == 0 {
		fmt.Fprintln(w, "No matching log entries found.")
		return nil
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}

// followLogs implements tail -f behavior for the log file. It returns when
// ctx ends.
func followLogs(ctx context.Context, logPath string, q logQuery, w io.Writer) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(w, "Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	var partial string
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			partial += line
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(followPoll):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("error reading log file: %w", err)
		}

		line = strings.TrimSpace(partial + line)
		partial = ""
		if line == "" {
			continue
		}
		e, err := logging.ParseEntry(line)
		if err != nil {
			fmt.Fprintln(w, line)
			continue
		}
		if q.match(e) {
			fmt.Fprintln(w, q.format(e))
		}
	}
}
