package ports

import (
	"context"
	"time"

	"github.com/layer-3/warden/core"
)

// CredentialStore holds the admin credential between runs.
// Load returns (nil, nil) when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (*core.Credential, error)
	Save(ctx context.Context, cred core.Credential) error
	Clear(ctx context.Context) error
}

// ReplayStore remembers used challenge ids and revoked sessions.
// Claim records id only if it is not already recorded, and reports whether
// this call recorded it. Concurrent claims of one id succeed at most once.
type ReplayStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
	Claim(ctx context.Context, id string, expiry time.Duration) (bool, error)
}
