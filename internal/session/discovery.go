package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info contains summary information about a session
type Info struct {
	ID         string     `json:"id"`
	Device     string     `json:"device"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Scans      int        `json:"scans"`
	Networks   int        `json:"networks"`
	Probes     int        `json:"probes"`
	IsRunning  bool       `json:"is_running"`
	SessionDir string     `json:"session_dir"`
}

// ShortID returns the first 8 characters of the ID for display.
func (i *Info) ShortID() string {
	return TruncateID(i.ID)
}

// GetSessionsDir returns the sessions directory for a data dir
func GetSessionsDir(dataDir string) string {
	return filepath.Join(dataDir, SessionsDir)
}

// GetSessionDir returns the path to a specific session's directory
func GetSessionDir(dataDir, sessionID string) string {
	return filepath.Join(GetSessionsDir(dataDir), sessionID)
}

// ListSessions returns every readable session under dataDir, newest first.
// Directories without a parseable session.json are skipped.
func ListSessions(dataDir string) ([]*Info, error) {
	entries, err := os.ReadDir(GetSessionsDir(dataDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sessions []*Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if info, err := GetSessionInfo(dataDir, e.Name()); err == nil {
			sessions = append(sessions, info)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}

// GetSessionInfo reads one session. A session is running when it has not
// ended and a live process holds the lock on its device for this session.
func GetSessionInfo(dataDir, sessionID string) (*Info, error) {
	sessionDir := GetSessionDir(dataDir, sessionID)
	data, err := os.ReadFile(filepath.Join(sessionDir, SessionFileName))
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	running := false
	if s.EndedAt == nil {
		if lock, alive := IsDeviceLocked(GetLocksDir(dataDir), s.Device); alive && lock.SessionID == s.ID {
			running = true
		}
	}

	return &Info{
		ID:         s.ID,
		Device:     s.Device,
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		Scans:      s.Scans,
		Networks:   s.Networks,
		Probes:     s.Probes,
		IsRunning:  running,
		SessionDir: sessionDir,
	}, nil
}

// LockState pairs a device lock with whether its owner is still running.
type LockState struct {
	*Lock
	Alive bool
}

// lockFiles returns the paths of the *.lock files under dataDir.
func lockFiles(dataDir string) ([]string, error) {
	locksDir := GetLocksDir(dataDir)
	entries, err := os.ReadDir(locksDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lock" {
			paths = append(paths, filepath.Join(locksDir, e.Name()))
		}
	}
	return paths, nil
}

// ListLocks returns every readable device lock under dataDir.
func ListLocks(dataDir string) ([]LockState, error) {
	paths, err := lockFiles(dataDir)
	if err != nil {
		return nil, err
	}
	var locks []LockState
	for _, p := range paths {
		if lock, err := ReadLock(p); err == nil {
			locks = append(locks, LockState{Lock: lock, Alive: isProcessAlive(lock.PID)})
		}
	}
	return locks, nil
}

// CleanupStaleLocks removes device locks whose owner is gone, and lock files
// that cannot be parsed, returning the devices that were freed.
func CleanupStaleLocks(dataDir string) ([]string, error) {
	paths, err := lockFiles(dataDir)
	if err != nil {
		return nil, err
	}
	var freed []string
	for _, p := range paths {
		lock, err := ReadLock(p)
		if err != nil {
			if os.Remove(p) == nil {
				freed = append(freed, strings.TrimSuffix(filepath.Base(p), ".lock"))
			}
			continue
		}
		if ok, err := CleanStaleLock(p, nil); err == nil && ok {
			freed = append(freed, lock.Device)
		}
	}
	return freed, nil
}

// RemoveEndedSessions deletes ended sessions that finished before cutoff and
// returns their IDs. Running or unterminated sessions are never removed.
func RemoveEndedSessions(dataDir string, cutoff time.Time) ([]string, error) {
	sessions, err := ListSessions(dataDir)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, s := range sessions {
		if s.EndedAt == nil || s.IsRunning || s.EndedAt.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(s.SessionDir); err != nil {
			continue
		}
		removed = append(removed, s.ID)
	}
	return removed, nil
}
