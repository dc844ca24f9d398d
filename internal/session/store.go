package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Store persists State as a TOML file readable only by the owner.
type Store struct {
	path string
}

// NewStore creates a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (st *Store) Path() string {
	return st.path
}

// Load reads the persisted state. A missing file is the signed-out state.
func (st *Store) Load() (State, error) {
	var state State
	_, err := toml.DecodeFile(st.path, &state)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read session file %s: %w", st.path, err)
	}
	return state, nil
}

// Save writes state atomically: readers see either the old or the new file.
func (st *Store) Save(state State) error {
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict session file: %w", err)
	}
	if err := toml.NewEncoder(tmp).Encode(state); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmpPath, st.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Remove deletes the persisted state. Removing a missing file is not an error.
func (st *Store) Remove() error {
	if err := os.Remove(st.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Restore loads the persisted state into a new Session.
func (st *Store) Restore() (*Session, error) {
	state, err := st.Load()
	if err != nil {
		return nil, err
	}
	return New(state), nil
}
