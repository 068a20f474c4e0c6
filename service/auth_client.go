package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
	"github.com/nbd-wtf/go-nostr"
)

const (
	// DefaultSignerGrace is how long Authenticate waits for a signer to attach
	DefaultSignerGrace = 3 * time.Second

	signerPollInterval = 100 * time.Millisecond
)

// AuthClient performs the challenge/response admin login
type AuthClient struct {
	signers    ports.SignerSource
	backend    ports.AuthBackend
	translator ports.Translator
	logger     *slog.Logger
	now        func() time.Time
	grace      time.Duration
}

// AuthClientOption configures an AuthClient
type AuthClientOption func(*AuthClient)

// WithTranslator resolves backend error keys into messages
func WithTranslator(t ports.Translator) AuthClientOption {
	return func(c *AuthClient) {
		c.translator = t
	}
}

// WithSignerGrace sets how long to wait for a late-attaching signer
func WithSignerGrace(d time.Duration) AuthClientOption {
	return func(c *AuthClient) {
		c.grace = d
	}
}

// WithClock overrides the challenge timestamp source
func WithClock(now func() time.Time) AuthClientOption {
	return func(c *AuthClient) {
		c.now = now
	}
}

// WithAuthLogger sets the client's logger
func WithAuthLogger(logger *slog.Logger) AuthClientOption {
	return func(c *AuthClient) {
		c.logger = logger
	}
}

// NewAuthClient creates a new auth client
func NewAuthClient(signers ports.SignerSource, backend ports.AuthBackend, opts ...AuthClientOption) *AuthClient {
	c := &AuthClient{
		signers: signers,
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
		grace:   DefaultSignerGrace,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildChallenge returns the unsigned admin login event for now
func BuildChallenge(now time.Time) nostr.Event {
	return nostr.Event{
		Kind:      core.ChallengeKind,
		CreatedAt: nostr.Timestamp(now.Unix()),
		Tags:      nostr.Tags{{core.ActionTag, core.ActionAdminAuth}},
		Content:   "",
	}
}

// Sign asks signer to sign evt. Rejections by the user keep
// core.ErrUserRejected; any other failure becomes core.ErrSignerError.
func (c *AuthClient) Sign(ctx context.Context, signer ports.Signer, evt nostr.Event) (nostr.Event, error) {
	if signer == nil {
		return nostr.Event{}, core.ErrNoSignerAvailable
	}

	signed, err := signer.SignEvent(ctx, evt)
	if err != nil {
		if errors.Is(err, core.ErrUserRejected) {
			return nostr.Event{}, err
		}
		return nostr.Event{}, fmt.Errorf("%w: %w", core.ErrSignerError, err)
	}
	return signed, nil
}

// Submit sends the signed challenge to the backend for verification
func (c *AuthClient) Submit(ctx context.Context, signed nostr.Event) (*core.AuthResult, error) {
	result, err := c.backend.VerifyAuth(ctx, signed)
	if err != nil {
		var apiErr *core.APIError
		if errors.As(err, &apiErr) {
			return nil, &core.AuthError{
				StatusCode: apiErr.StatusCode,
				Message:    c.message(apiErr.Detail),
			}
		}
		return nil, fmt.Errorf("failed to submit challenge: %w", err)
	}
	return result, nil
}

// Authenticate waits for a signer, then builds, signs and submits a fresh
// challenge. Storing the returned session token is up to the caller.
func (c *AuthClient) Authenticate(ctx context.Context) (*core.AuthResult, error) {
	signer, err := AwaitSigner(ctx, c.signers, c.grace)
	if err != nil {
		return nil, err
	}

	challenge := BuildChallenge(c.now())

	signed, err := c.Sign(ctx, signer, challenge)
	if err != nil {
		c.logger.Info("admin challenge not signed", "error", err)
		return nil, err
	}

	result, err := c.Submit(ctx, signed)
	if err != nil {
		c.logger.Warn("admin challenge rejected", "pubkey", core.ShortKey(signed.PubKey), "error", err)
		return nil, err
	}

	c.logger.Info("admin authenticated",
		"pubkey", core.ShortKey(result.Admin.Pubkey),
		"is_new", result.IsNew,
		"instance_initialized", result.InstanceInitialized,
	)
	return result, nil
}

// message maps a backend detail to display text. Known keys are translated,
// anything else is shown as sent.
func (c *AuthClient) message(detail string) string {
	if detail == "" {
		return "authentication failed"
	}
	if c.translator != nil {
		if msg, ok := c.translator.Translate(detail); ok {
			return msg
		}
	}
	return detail
}

// AwaitSigner returns the source's signer, polling for up to grace
// for one to attach. It fails with core.ErrNoSignerAvailable.
func AwaitSigner(ctx context.Context, src ports.SignerSource, grace time.Duration) (ports.Signer, error) {
	if src == nil {
		return nil, core.ErrNoSignerAvailable
	}
	if s, ok := src.Signer(); ok {
		return s, nil
	}
	if grace <= 0 {
		return nil, core.ErrNoSignerAvailable
	}

	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	ticker := time.NewTicker(signerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", core.ErrNoSignerAvailable, ctx.Err())
		case <-deadline.C:
			if s, ok := src.Signer(); ok {
				return s, nil
			}
			return nil, core.ErrNoSignerAvailable
		case <-ticker.C:
			if s, ok := src.Signer(); ok {
				return s, nil
			}
		}
	}
}
