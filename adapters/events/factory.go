package events

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/warden/config"
	"github.com/layer-3/warden/ports"
	"github.com/redis/go-redis/v9"
)

// NewPublisher builds the session event publisher selected by cfg.
// The returned close func releases the underlying transport.
func NewPublisher(cfg config.EventsConfig, logger *slog.Logger) (ports.EventPublisher, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(logger)

	var publisher message.Publisher
	closeFn := func() error { return nil }

	switch cfg.Driver {
	case "", "none":
		return Nop{}, closeFn, nil

	case "gochannel":
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		publisher = pubSub
		closeFn = pubSub.Close

	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse events redis url: %w", err)
		}
		client := redis.NewClient(opts)

		pub, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: client,
			},
			wmLogger,
		)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		publisher = pub
		closeFn = func() error {
			if err := pub.Close(); err != nil {
				return err
			}
			return client.Close()
		}

	default:
		return nil, nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}

	return NewWatermillPublisher(publisher, cfg.Topic), closeFn, nil
}
