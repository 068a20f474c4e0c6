package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
)

// Sessions keeps the caller's side of a login: it stores the credential
// returned by Authenticate and announces logins and logouts.
type Sessions struct {
	auth    *AuthClient
	store   ports.CredentialStore
	events  ports.EventPublisher
	revoker ports.SessionRevoker
	logger  *slog.Logger
}

// NewSessions creates a session keeper. events and revoker may be nil.
func NewSessions(auth *AuthClient, store ports.CredentialStore, events ports.EventPublisher, revoker ports.SessionRevoker, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		auth:    auth,
		store:   store,
		events:  events,
		revoker: revoker,
		logger:  logger,
	}
}

// Login authenticates and persists the resulting credential
func (s *Sessions) Login(ctx context.Context) (*core.AuthResult, error) {
	result, err := s.auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	cred := core.Credential{
		SessionToken: result.SessionToken,
		Pubkey:       result.Admin.Pubkey,
	}
	if err := s.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishLogin(ctx, result.Admin.Pubkey, result.IsNew); err != nil {
			// The credential is stored, which is what matters
			s.logger.Warn("failed to publish login event", "error", err)
		}
	}

	return result, nil
}

// Logout revokes the stored session (best effort) and clears it locally
func (s *Sessions) Logout(ctx context.Context) error {
	cred, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		return nil
	}

	if s.revoker != nil {
		if err := s.revoker.Logout(ctx, cred.SessionToken); err != nil {
			s.logger.Warn("backend logout failed, clearing local credential anyway", "error", err)
		}
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishLogout(ctx, cred.Pubkey, "user logout"); err != nil {
			s.logger.Warn("failed to publish logout event", "error", err)
		}
	}
	return nil
}

// Current returns the stored credential, or nil when logged out
func (s *Sessions) Current(ctx context.Context) (*core.Credential, error) {
	return s.store.Load(ctx)
}
