package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	sessionFile  = "session.json"
	sessionLabel = "fxterm-session"
)

var ErrNoSession = errors.New("no saved session")

type Storage struct {
	dataDir string
}

// NewStorage prepares dataDir with owner-only permissions.
func NewStorage(dataDir string) (*Storage, error) {
	if dataDir == "" {
		return nil, errors.New("data directory must not be empty")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Storage{dataDir: dataDir}, nil
}

func (s *Storage) DataDir() string {
	return s.dataDir
}

func (s *Storage) SessionPath() string {
	return filepath.Join(s.dataDir, sessionFile)
}

// SaveSession seals payload with passphrase and replaces any saved session.
func (s *Storage) SaveSession(payload []byte, passphrase string) error {
	sealed, err := Seal(payload, passphrase, sessionLabel)
	if err != nil {
		return fmt.Errorf("failed to seal session: %w", err)
	}

	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp := s.SessionPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.SessionPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

func (s *Storage) LoadSession(passphrase string) ([]byte, error) {
	data, err := os.ReadFile(s.SessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sealed SealedData
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sealed.Label != sessionLabel {
		return nil, ErrInvalidPassphrase
	}

	payload, err := Open(&sealed, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return payload, nil
}

func (s *Storage) HasSession() bool {
	_, err := os.Stat(s.SessionPath())
	return err == nil
}

// DeleteSession removes the saved session. A missing file is not an error.
func (s *Storage) DeleteSession() error {
	if err := os.Remove(s.SessionPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
