package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"frostgreet/pkg/domain"
)

// FileStore persists the session as a single JSON file. Writes go through a
// temp file plus rename so the token and profile land atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates the parent directory if missing.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("session file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// SetSession writes the session file.
func (f *FileStore) SetSession(token string, user domain.UserProfile) error {
	u := user
	data, err := json.Marshal(domain.Session{Token: token, User: &u})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// Session reads the session file. A missing or unreadable file is an empty
// session, never an error.
func (f *FileStore) Session() domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("session file unreadable", "path", f.path, "err", err)
		}
		return domain.Session{}
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		slog.Warn("session file corrupt", "path", f.path, "err", err)
		return domain.Session{}
	}
	if sess.Token == "" || sess.User == nil {
		// Half a session is no session.
		return domain.Session{}
	}
	return sess
}

// Clear removes the session file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
