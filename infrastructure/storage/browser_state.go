package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"noet_automation/domain/interfaces"
)

const browserStateFile = "browser_state.json"

type browserState struct {
	statePath string
}

// NewBrowserState - creates new browser state storage in dir
func NewBrowserState(dir string) (interfaces.Storage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &browserState{
		statePath: filepath.Join(dir, browserStateFile),
	}, nil
}

// SaveState - saves browser session state (cookies, local storage). The file
// is replaced atomically so a crash never leaves a truncated state behind.
func (s *browserState) SaveState(state []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.statePath), browserStateFile+".*")
	if err != nil {
		return fmt.Errorf("failed to save browser state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(state); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save browser state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save browser state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.statePath); err != nil {
		return fmt.Errorf("failed to save browser state: %w", err)
	}
	return nil
}

// LoadState - loads browser session state. A missing file yields nil.
func (s *browserState) LoadState() ([]byte, error) {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load browser state: %w", err)
	}
	return data, nil
}
