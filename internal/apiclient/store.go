package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Session is the persisted login state, the client analogue of what the
// browser keeps in storage.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Score    int    `json:"score"`
}

// SessionStore persists the session as a JSON file under the user config
// directory. Lifecycle is explicit: Load at start, Set on login, Clear on
// logout.
type SessionStore struct {
	path string
}

// NewSessionStore places the session file under the user config directory.
func NewSessionStore() (*SessionStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("apiclient: resolve config dir: %w", err)
	}
	return NewSessionStoreAt(filepath.Join(dir, "vereinsverwaltung", "session.json")), nil
}

// NewSessionStoreAt uses an explicit file path, used by tests.
func NewSessionStoreAt(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load reads the stored session. The second result is false when no session
// file exists.
func (s *SessionStore) Load() (Session, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("apiclient: read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, false, fmt.Errorf("apiclient: decode session: %w", err)
	}
	if session.Token == "" {
		return Session{}, false, nil
	}
	return session, true, nil
}

// Set writes the session, creating the parent directory when needed.
func (s *SessionStore) Set(session Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("apiclient: create config dir: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("apiclient: encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("apiclient: write session: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing an absent session is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("apiclient: remove session: %w", err)
	}
	return nil
}
