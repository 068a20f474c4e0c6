package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
	"github.com/nbd-wtf/go-nostr"
)

// AuthService is the backend half of admin login: it verifies signed
// challenges, keeps the single-admin registry and issues session tokens.
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.ReplayStore
	eventPub  ports.EventPublisher
	logger    *slog.Logger
	now       func() time.Time

	challengeWindow time.Duration
	sessionTTL      time.Duration

	mu    sync.RWMutex
	admin *core.Admin
}

// AuthServiceOption configures an AuthService
type AuthServiceOption func(*AuthService)

// WithChallengeWindow sets how far created_at may drift from server time
func WithChallengeWindow(d time.Duration) AuthServiceOption {
	return func(s *AuthService) { s.challengeWindow = d }
}

// WithSessionTTL sets the lifetime of issued sessions
func WithSessionTTL(d time.Duration) AuthServiceOption {
	return func(s *AuthService) { s.sessionTTL = d }
}

// WithServiceClock overrides the service's time source
func WithServiceClock(now func() time.Time) AuthServiceOption {
	return func(s *AuthService) { s.now = now }
}

// WithServiceLogger sets the logger
func WithServiceLogger(l *slog.Logger) AuthServiceOption {
	return func(s *AuthService) { s.logger = l }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.ReplayStore,
	eventPub ports.EventPublisher,
	opts ...AuthServiceOption,
) *AuthService {
	s := &AuthService{
		tokenizer:       tokenizer,
		store:           store,
		eventPub:        eventPub,
		logger:          slog.Default(),
		now:             time.Now,
		challengeWindow: 5 * time.Minute,
		sessionTTL:      24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status reports whether an admin has been registered
func (s *AuthService) Status() core.InstanceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.InstanceStatus{Initialized: s.admin != nil}
}

// Admin returns the registered admin, if any
func (s *AuthService) Admin() *core.Admin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.admin == nil {
		return nil
	}
	a := *s.admin
	return &a
}

// Login verifies a signed challenge and opens a session. The first pubkey
// to log in becomes the instance admin.
func (s *AuthService) Login(ctx context.Context, evt nostr.Event) (*core.AuthResult, error) {
	if err := s.verifyChallenge(evt); err != nil {
		return nil, err
	}

	// Claim the challenge id before touching the admin registry. The id is
	// kept long enough to cover both sides of the window.
	claimed, err := s.store.Claim(ctx, evt.ID, 2*s.challengeWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to record challenge: %w", err)
	}
	if !claimed {
		return nil, core.ErrChallengeReplay
	}

	admin, isNew, err := s.admit(evt.PubKey)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		AdminID:   admin.ID,
		Pubkey:    admin.Pubkey,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, admin.Pubkey, isNew); err != nil {
		// The session is issued regardless
		s.logger.Warn("failed to publish login event", "error", err)
	}

	s.logger.Info("admin session opened", "pubkey", core.ShortKey(admin.Pubkey), "is_new", isNew)

	return &core.AuthResult{
		Admin:               *admin,
		IsNew:               isNew,
		InstanceInitialized: true,
		SessionToken:        token,
	}, nil
}

func (s *AuthService) verifyChallenge(evt nostr.Event) error {
	if !core.IsChallenge(evt) {
		return core.ErrInvalidChallenge
	}

	created := evt.CreatedAt.Time()
	drift := s.now().Sub(created)
	if drift < 0 {
		drift = -drift
	}
	if drift > s.challengeWindow {
		return core.ErrChallengeExpired
	}

	ok, err := evt.CheckSignature()
	if err != nil || !ok {
		return core.ErrInvalidSignature
	}
	return nil
}

// admit returns the admin for pubkey, registering it if the instance has none
func (s *AuthService) admit(pubkey string) (*core.Admin, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.admin == nil {
		s.admin = &core.Admin{
			ID:        uuid.New().String(),
			Pubkey:    pubkey,
			CreatedAt: s.now(),
		}
		a := *s.admin
		return &a, true, nil
	}

	if s.admin.Pubkey != pubkey {
		return nil, false, core.ErrNotAdmin
	}
	a := *s.admin
	return &a, false, nil
}

// ValidateSession resolves a session token to its admin
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*core.Admin, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}

	// Check if the token has expired
	if s.now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	invalidated, err := s.store.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	admin := s.Admin()
	if admin == nil || admin.Pubkey != session.Pubkey {
		return nil, core.ErrNotAdmin
	}
	return admin, nil
}

// Logout revokes a session token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return err
	}

	// Expired sessions are still recorded briefly so clock skew cannot revive them
	remaining := time.Hour
	if s.now().Before(session.ExpiresAt) {
		remaining = session.ExpiresAt.Sub(s.now())
	}

	if err := s.store.InvalidateToken(ctx, session.ID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	if err := s.eventPub.PublishLogout(ctx, session.Pubkey, "session revoked"); err != nil {
		// The session is already revoked in the store, which is the critical part
		s.logger.Warn("failed to publish logout event", "error", err)
	}

	return nil
}
