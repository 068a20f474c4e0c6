package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
)

// FileCredentialStore keeps the admin credential in a private JSON file
type FileCredentialStore struct {
	path string
}

// NewFileCredentialStore creates a credential store backed by path
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Load returns the stored credential, or nil if the file does not exist
func (s *FileCredentialStore) Load(ctx context.Context) (*core.Credential, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var cred core.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential file: %w", err)
	}
	if cred.SessionToken == "" {
		return nil, nil
	}
	return &cred, nil
}

// Save writes the credential atomically with owner-only permissions
func (s *FileCredentialStore) Save(ctx context.Context, cred core.Credential) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

// Clear deletes the credential file
func (s *FileCredentialStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

var _ ports.CredentialStore = (*FileCredentialStore)(nil)
