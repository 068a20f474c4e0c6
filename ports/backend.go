package ports

import (
	"context"

	"github.com/layer-3/warden/core"
	"github.com/nbd-wtf/go-nostr"
)

// AuthBackend verifies signed login challenges
type AuthBackend interface {
	VerifyAuth(ctx context.Context, signed nostr.Event) (*core.AuthResult, error)
}

// SessionBackend validates a stored session token. A definitive rejection
// must wrap core.ErrSessionUnauthenticated; every other failure must not.
type SessionBackend interface {
	ValidateSession(ctx context.Context, token string) (*core.Admin, error)
}

// StatusBackend reports whether the instance has an admin
type StatusBackend interface {
	InstanceStatus(ctx context.Context) (*core.InstanceStatus, error)
}

// RowsBackend fetches pages of admin data
type RowsBackend interface {
	FetchRows(ctx context.Context, token, table string, page, pageSize int) (*core.RowPage, error)
}

// SessionRevoker ends a session on the backend
type SessionRevoker interface {
	Logout(ctx context.Context, token string) error
}
