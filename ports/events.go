package ports

import "context"

// EventPublisher publishes session lifecycle events
type EventPublisher interface {
	PublishLogin(ctx context.Context, pubkey string, isNew bool) error
	PublishLogout(ctx context.Context, pubkey string, reason string) error
}
