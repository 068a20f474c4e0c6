package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
)

// MemoryStore is an in-memory implementation of the ReplayStore interface
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.ReplayStore {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
	}
}

// InvalidateToken marks a token or challenge id as used until expiry passes
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.invalidatedTokens[tokenID] = now.Add(expiry)
	s.sweep(now)

	return nil
}

// Claim records id unless a live entry for it already exists
func (s *MemoryStore) Claim(ctx context.Context, id string, expiry time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if until, exists := s.invalidatedTokens[id]; exists && !now.After(until) {
		return false, nil
	}
	s.invalidatedTokens[id] = now.Add(expiry)
	s.sweep(now)

	return true, nil
}

// sweep drops lapsed entries instead of spawning a timer per token.
// Callers hold the write lock.
func (s *MemoryStore) sweep(now time.Time) {
	for id, until := range s.invalidatedTokens {
		if now.After(until) {
			delete(s.invalidatedTokens, id)
		}
	}
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	return !time.Now().After(expiryTime), nil
}

// MemoryCredentialStore keeps the admin credential for the life of the process
type MemoryCredentialStore struct {
	mu   sync.RWMutex
	cred *core.Credential
}

// NewMemoryCredentialStore creates an empty credential store
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

// Load returns the stored credential, or nil if none
func (s *MemoryCredentialStore) Load(ctx context.Context) (*core.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cred == nil {
		return nil, nil
	}
	cred := *s.cred
	return &cred, nil
}

// Save replaces the stored credential
func (s *MemoryCredentialStore) Save(ctx context.Context, cred core.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = &cred
	return nil
}

// Clear removes the stored credential
func (s *MemoryCredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = nil
	return nil
}

var _ ports.CredentialStore = (*MemoryCredentialStore)(nil)
