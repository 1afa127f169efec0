package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
	"github.com/D3h420/janos-app/internal/logging"
)

// LocksDir is the directory under the data dir that holds device lock files
const LocksDir = "locks"

// Lock records which process owns a serial device.
type Lock struct {
	Device    string    `json:"device"`
	SessionID string    `json:"session_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	lockFile string
	logger   *logging.Logger
}

// unreadableLockGrace is how long an empty or unparseable lock file is taken
// to be mid-write by another process before it is treated as stale.
const unreadableLockGrace = 5 * time.Second

// GetLocksDir returns the lock directory for a data dir
func GetLocksDir(dataDir string) string {
	return filepath.Join(dataDir, LocksDir)
}

// LockPath returns the lock file used for device. "/dev/ttyUSB0" maps to
// "dev_ttyUSB0.lock", so the same board reached through the same path always
// collides.
func LockPath(locksDir, device string) string {
	name := strings.Trim(filepath.ToSlash(filepath.Clean(device)), "/")
	name = strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
	if name == "" || name == "." {
		name = "unnamed"
	}
	return filepath.Join(locksDir, name+".lock")
}

// AcquireDeviceLock takes the exclusive lock on device for sessionID.
// A lock held by a live process fails with ErrDeviceLocked; a lock left by a
// dead process is reclaimed. logger may be nil.
func AcquireDeviceLock(locksDir, device, sessionID string, logger *logging.Logger) (*Lock, error) {
	if err := os.MkdirAll(locksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	lockPath := LockPath(locksDir, device)

	existing, err := ReadLock(lockPath)
	switch {
	case err == nil:
		if isProcessAlive(existing.PID) {
			if logger != nil {
				logger.Error("failed to acquire device lock",
					"device", device,
					"holder_pid", existing.PID,
					"holder_session", existing.SessionID,
				)
			}
			return nil, lockedError(device, sessionID, existing)
		}
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		if logger != nil {
			logger.Warn("stale device lock cleaned",
				"device", device,
				"old_pid", existing.PID,
			)
		}
	case !os.IsNotExist(err):
		removed, rmErr := removeUnreadableLock(lockPath)
		if rmErr != nil {
			return nil, rmErr
		}
		if removed && logger != nil {
			logger.Warn("unreadable device lock cleaned", "device", device, "error", err)
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	lock := &Lock{
		Device:    device,
		SessionID: sessionID,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		lockFile:  lockPath,
		logger:    logger,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL closes the window between the stale check above and the create
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := ReadLock(lockPath); readErr == nil {
				return nil, lockedError(device, sessionID, existing)
			}
			return nil, janoserrors.NewSessionError(
				fmt.Sprintf("lock file %s is unreadable; if no other janos is running, run 'janos sessions clean'", lockPath),
				janoserrors.ErrDeviceLocked).
				WithSessionID(sessionID).WithDevice(device)
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	if logger != nil {
		logger.Info("device lock acquired", "device", device, "pid", lock.PID)
	}
	return lock, nil
}

func lockedError(device, sessionID string, holder *Lock) error {
	return janoserrors.NewSessionError(
		fmt.Sprintf("held by PID %d on %s (session %s)", holder.PID, holder.Hostname, TruncateID(holder.SessionID)),
		janoserrors.ErrDeviceLocked,
	).WithSessionID(sessionID).WithDevice(device)
}

// Release removes the lock file if this process still owns it.
// Safe to call multiple times and on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.lockFile == "" {
		return nil
	}

	existing, err := ReadLock(l.lockFile)
	if err != nil {
		return nil
	}
	if existing.PID != l.PID || existing.SessionID != l.SessionID {
		return nil
	}

	if err := os.Remove(l.lockFile); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Info("device lock released", "device", l.Device)
	}
	return nil
}

// ReadLock reads a lock file.
func ReadLock(lockPath string) (*Lock, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.lockFile = lockPath
	return &lock, nil
}

// IsDeviceLocked reports whether a live process holds device. The lock is
// returned even when stale so callers can show who left it.
func IsDeviceLocked(locksDir, device string) (*Lock, bool) {
	lock, err := ReadLock(LockPath(locksDir, device))
	if err != nil {
		return nil, false
	}
	return lock, isProcessAlive(lock.PID)
}

// CleanStaleLock removes the lock file at lockPath if its owner is gone.
// Returns true if a stale lock was cleaned. logger may be nil.
func CleanStaleLock(lockPath string, logger *logging.Logger) (bool, error) {
	lock, err := ReadLock(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		removed, rmErr := removeUnreadableLock(lockPath)
		if removed && logger != nil {
			logger.Warn("unreadable device lock cleaned", "path", lockPath, "error", err)
		}
		return removed, rmErr
	}
	if isProcessAlive(lock.PID) {
		return false, nil
	}

	if err := os.Remove(lockPath); err != nil {
		return false, fmt.Errorf("failed to remove stale lock: %w", err)
	}
	if logger != nil {
		logger.Warn("stale device lock cleaned", "device", lock.Device, "old_pid", lock.PID)
	}
	return true, nil
}

// removeUnreadableLock deletes a lock file that could not be parsed once it
// is older than unreadableLockGrace. A younger file may still be being
// written by the process that created it.
func removeUnreadableLock(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, nil
	}
	if time.Since(info.ModTime()) < unreadableLockGrace {
		return false, nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to remove unreadable lock: %w", err)
	}
	return true, nil
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	// On Unix, signal 0 checks existence without affecting the process
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	// EPERM means the process exists but belongs to another user (e.g. a sudo'd bridge)
	return err == nil || errors.Is(err, syscall.EPERM)
}
