package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// Entry is one decoded line of a bridge log.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"-"`
}

// Filter selects entries. Zero values match everything.
type Filter struct {
	// MinLevel drops entries below this level (DEBUG < INFO < WARN < ERROR).
	MinLevel string
	// Component matches the "component" attribute exactly.
	Component string
	// Since drops entries older than this time.
	Since time.Time
	// Contains is a case-insensitive substring match on the message.
	Contains string
}

var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ReadEntries decodes a JSON log file written by Logger. Lines that are not
// valid JSON are skipped.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := ParseEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read log file: %w", err)
	}
	return entries, nil
}

// ParseEntry decodes one JSON log line.
func ParseEntry(line string) (Entry, error) {
	raw := make(map[string]any)
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, err
	}

	var e Entry
	if ts, ok := raw["time"].(string); ok {
		e.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	e.Level, _ = raw["level"].(string)
	e.Message, _ = raw["msg"].(string)
	delete(raw, "time")
	delete(raw, "level")
	delete(raw, "msg")
	e.Fields = raw
	return e, nil
}

// Apply returns the entries that match f, preserving order.
func (f Filter) Apply(entries []Entry) []Entry {
	if f == (Filter{}) {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f Filter) matches(e Entry) bool {
	if f.MinLevel != "" && levelRank[ParseLevel(e.Level)] < levelRank[ParseLevel(f.MinLevel)] {
		return false
	}
	if f.Component != "" {
		if c, _ := e.Fields["component"].(string); c != f.Component {
			return false
		}
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if f.Contains != "" && !strings.Contains(strings.ToLower(e.Message), strings.ToLower(f.Contains)) {
		return false
	}
	return true
}

// Format renders an entry as a single human-readable line.
func (e Entry) Format() string {
	var sb strings.Builder
	sb.WriteString(e.Time.Format("15:04:05.000"))
	sb.WriteString(fmt.Sprintf(" %-5s %s", e.Level, e.Message))
	for _, k := range sortedKeys(e.Fields) {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, e.Fields[k]))
	}
	return sb.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
