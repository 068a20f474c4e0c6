package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/warden/ports"
)

const (
	// DefaultTopic is where session events are published
	DefaultTopic = "warden.session"

	EventLogin  = "login"
	EventLogout = "logout"
)

// SessionEvent represents a login or logout
type SessionEvent struct {
	Type   string    `json:"type"`
	Pubkey string    `json:"pubkey"`
	IsNew  bool      `json:"is_new,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher, topic string) ports.EventPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
	}
}

// PublishLogin publishes a login event
func (p *WatermillPublisher) PublishLogin(ctx context.Context, pubkey string, isNew bool) error {
	return p.publish(ctx, SessionEvent{
		Type:   EventLogin,
		Pubkey: pubkey,
		IsNew:  isNew,
		At:     time.Now().UTC(),
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, pubkey string, reason string) error {
	return p.publish(ctx, SessionEvent{
		Type:   EventLogout,
		Pubkey: pubkey,
		Reason: reason,
		At:     time.Now().UTC(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, event SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", event.Type)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Nop discards all events
type Nop struct{}

func (Nop) PublishLogin(context.Context, string, bool) error { return nil }
func (Nop) PublishLogout(context.Context, string, string) error { return nil }

var _ ports.EventPublisher = Nop{}
