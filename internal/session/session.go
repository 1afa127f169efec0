// Package session models one bridge connection: which board was opened, by
// which process, when, and what it did. Sessions are persisted as JSON under
// <data_dir>/sessions/<id>/session.json, and each serial device is guarded by
// a lock file so two bridges never talk to the same board.
package session

import (
	"os"
	"time"

	"github.com/google/uuid"
)

// Session is the connection entity: one process driving one device.
type Session struct {
	ID        string     `json:"id"`
	Device    string     `json:"device"`
	BaudRate  int        `json:"baud_rate"`
	Hostname  string     `json:"hostname"`
	PID       int        `json:"pid"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	Scans     int    `json:"scans"`
	Networks  int    `json:"networks"` // networks seen in the most recent scan
	Probes    int    `json:"probes"`
	Commands  int    `json:"commands"`
	LastError string `json:"last_error,omitempty"`
}

// New creates a Session for device with a fresh UUID.
func New(device string, baudRate int) *Session {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Session{
		ID:        uuid.NewString(),
		Device:    device,
		BaudRate:  baudRate,
		Hostname:  hostname,
		PID:       os.Getpid(),
		StartedAt: time.Now(),
	}
}

// Active reports whether the session has not been ended.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// End marks the session finished. Calling it again keeps the first time.
func (s *Session) End() {
	if s.EndedAt != nil {
		return
	}
	now := time.Now()
	s.EndedAt = &now
}

// Duration returns how long the session ran (or has been running).
func (s *Session) Duration() time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// TruncateID shortens a session ID for display.
func TruncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
