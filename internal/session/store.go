package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	janoserrors "github.com/D3h420/janos-app/internal/errors"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when attempting to create a key that already exists.
var ErrAlreadyExists = errors.New("already exists")

// -----------------------------------------------------------------------------
// FileStore - Generic Key-Value File Storage
// -----------------------------------------------------------------------------

// FileStore maps keys to files under a base directory, with "/" as the key
// path separator.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a new FileStore rooted at the given directory.
// The directory will be created if it doesn't exist.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Save persists data with the given key using atomic write.
func (fs *FileStore) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.keyToPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return atomicWriteFile(path, data, 0644)
}

// Load retrieves data for the given key.
func (fs *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Delete removes the file for key and, if it leaves its directory empty,
// the directory too.
func (fs *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.keyToPath(key)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if dir := filepath.Dir(path); dir != fs.baseDir {
		os.Remove(dir) // fails harmlessly when not empty
	}
	return nil
}

// List returns all keys under prefix.
func (fs *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	searchDir := fs.baseDir
	if prefix != "" {
		searchDir = filepath.Join(fs.baseDir, prefix)
	}

	var keys []string
	err := filepath.WalkDir(searchDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(fs.baseDir, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// Exists checks if a key exists without loading its data.
func (fs *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := os.Stat(fs.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}

// SaveIfNotExists saves data only if the key does not already exist.
func (fs *FileStore) SaveIfNotExists(ctx context.Context, key string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.keyToPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// BaseDir returns the store's root directory.
func (fs *FileStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FileStore) keyToPath(key string) string {
	// Strip leading separators and parent references so keys stay inside baseDir
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	return filepath.Join(fs.baseDir, clean)
}

// -----------------------------------------------------------------------------
// Store - Session persistence
// -----------------------------------------------------------------------------

// SessionsDir is the directory under the data dir that holds all sessions
const SessionsDir = "sessions"

// SessionFileName is the name of the session data file within a session directory
const SessionFileName = "session.json"

// Store persists Session records in <data_dir>/sessions/<id>/session.json.
type Store struct {
	files *FileStore
}

// NewStore opens (creating if needed) the session store under dataDir.
func NewStore(dataDir string) (*Store, error) {
	fs, err := NewFileStore(GetSessionsDir(dataDir))
	if err != nil {
		return nil, err
	}
	return &Store{files: fs}, nil
}

func sessionKey(id string) string {
	return id + "/" + SessionFileName
}

// Create writes the first record of a new session. It fails with
// ErrAlreadyExists rather than overwrite a session with the same ID.
func (st *Store) Create(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return janoserrors.NewValidationError("session ID is required").WithField("id")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := st.files.SaveIfNotExists(ctx, sessionKey(s.ID), data); err != nil {
		return janoserrors.NewSessionError("failed to create session", err).WithSessionID(s.ID).WithDevice(s.Device)
	}
	return nil
}

// Save writes s, replacing any previous copy.
func (st *Store) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return janoserrors.NewValidationError("session ID is required").WithField("id")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := st.files.Save(ctx, sessionKey(s.ID), data); err != nil {
		return janoserrors.NewSessionError("failed to save session", err).WithSessionID(s.ID).WithDevice(s.Device)
	}
	return nil
}

// Load reads the session with the given ID.
func (st *Store) Load(ctx context.Context, id string) (*Session, error) {
	data, err := st.files.Load(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, janoserrors.NewSessionError("failed to load session", janoserrors.ErrSessionNotFound).WithSessionID(id)
		}
		return nil, janoserrors.NewSessionError("failed to load session", err).WithSessionID(id)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, janoserrors.NewSessionError("failed to parse session", janoserrors.ErrSessionCorrupted).WithSessionID(id)
	}
	if s.ID != id {
		return nil, janoserrors.NewSessionError(
			fmt.Sprintf("session file holds ID %q", s.ID), janoserrors.ErrSessionCorrupted).WithSessionID(id)
	}
	return &s, nil
}

// Delete removes a session's record and directory.
func (st *Store) Delete(ctx context.Context, id string) error {
	if err := st.files.Delete(ctx, sessionKey(id)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return janoserrors.NewSessionError("failed to delete session", janoserrors.ErrSessionNotFound).WithSessionID(id)
		}
		return janoserrors.NewSessionError("failed to delete session", err).WithSessionID(id)
	}
	os.RemoveAll(st.SessionDir(id))
	return nil
}

// SessionDir returns the directory holding a session's record and log.
func (st *Store) SessionDir(id string) string {
	return filepath.Join(st.files.BaseDir(), id)
}

// Exists reports whether a session record exists.
func (st *Store) Exists(ctx context.Context, id string) bool {
	ok, err := st.files.Exists(ctx, sessionKey(id))
	return err == nil && ok
}

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// atomicWriteFile writes data to a temporary file in the same directory and
// renames it over path, so readers never see a partial file.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
