// Package agentstate persists what the operator's desktop agent must
// remember between runs: the API token, the notification permission
// answer and the push subscription registered for this device.
package agentstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
)

type State struct {
	DeviceID         string                  `json:"device_id"`
	APIToken         string                  `json:"api_token,omitempty"`
	TokenExpiresAt   time.Time               `json:"token_expires_at,omitempty"`
	OperatorID       string                  `json:"operator_id,omitempty"`
	OperatorEmail    string                  `json:"operator_email,omitempty"`
	Permission       string                  `json:"notification_permission,omitempty"`
	PushSubscription *model.PushSubscription `json:"push_subscription,omitempty"`
}

// Store is a JSON file guarded by a mutex. Writes go through a temp file and
// a rename so a crash never leaves a truncated file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath is clinicctl/state.json under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "clinicctl", "state.json"), nil
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the saved state. A missing file yields a fresh state with a
// new device id.
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &State{DeviceID: uuid.NewString()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state %s: %w", s.path, err)
	}
	if st.DeviceID == "" {
		st.DeviceID = uuid.NewString()
	}
	return &st, nil
}

// Update loads the state, applies fn and saves the result. Nothing is
// written if fn returns an error.
func (s *Store) Update(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return s.saveLocked(st)
}

func (s *Store) saveLocked(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// LoadPermission returns the stored notification permission answer.
func (s *Store) LoadPermission() (string, error) {
	st, err := s.Load()
	if err != nil {
		return "", err
	}
	return st.Permission, nil
}

func (s *Store) SavePermission(permission string) error {
	return s.Update(func(st *State) error {
		st.Permission = permission
		return nil
	})
}
