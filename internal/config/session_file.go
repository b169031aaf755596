package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SessionState is what the CLI keeps between invocations: the access token and the refresh cookie
type SessionState struct {
	APIURL        string `yaml:"api_url"`
	Token         string `yaml:"token,omitempty"`
	RefreshCookie string `yaml:"refresh_cookie,omitempty"`
}

// LoadSession reads the session file. A missing file yields an empty state.
func LoadSession(path string) (*SessionState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &SessionState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var state SessionState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &state, nil
}

// SaveSession writes the session file with owner-only permissions
func SaveSession(path string, state *SessionState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// RemoveSession deletes the session file; a missing file is not an error
func RemoveSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
