package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/layer-3/warden/adapters/backend"
	"github.com/layer-3/warden/adapters/events"
	"github.com/layer-3/warden/adapters/i18n"
	"github.com/layer-3/warden/adapters/signer"
	"github.com/layer-3/warden/adapters/store"
	"github.com/layer-3/warden/config"
	"github.com/layer-3/warden/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/redis/go-redis/v9"
)

// app holds the adapters a command works with
type app struct {
	client  *backend.Client
	creds   ports.CredentialStore
	slot    *signer.Slot
	local   *signer.LocalSigner
	catalog *i18n.Catalog
	events  ports.EventPublisher
	closers []func() error
}

func newApp() (*app, error) {
	a := &app{
		client: backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger),
		slot:   signer.NewSlot(nil),
	}

	catalog, err := i18n.Load(cfg.I18n.Language)
	if err != nil {
		return nil, err
	}
	a.catalog = catalog

	creds, closeCreds, err := newCredentialStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	a.creds = creds
	a.closers = append(a.closers, closeCreds)

	pub, closePub, err := events.NewPublisher(cfg.Events, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.events = pub
	a.closers = append(a.closers, closePub)

	if cfg.Signer.SecretKey != "" {
		var opts []signer.Option
		if cfg.Signer.Confirm {
			opts = append(opts, signer.WithConfirm(confirmOnTerminal))
		}
		local, err := signer.NewLocalSigner(cfg.Signer.SecretKey, opts...)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("signer.secret_key: %w", err)
		}
		a.local = local
		a.slot.Attach(local)
	}

	return a, nil
}

func (a *app) close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			logger.Warn("failed to close adapter", "error", err)
		}
	}
}

func newCredentialStore(sc config.StoreConfig) (ports.CredentialStore, func() error, error) {
	noop := func() error { return nil }

	switch sc.Driver {
	case "memory":
		return store.NewMemoryCredentialStore(), noop, nil
	case "file":
		return store.NewFileCredentialStore(sc.Path), noop, nil
	case "redis":
		opts, err := redis.ParseURL(sc.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse store redis url: %w", err)
		}
		client := redis.NewClient(opts)
		return store.NewRedisCredentialStore(client, sc.Key), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// confirmOnTerminal asks before each signature, like an extension popup
func confirmOnTerminal(evt nostr.Event) bool {
	fmt.Fprintf(os.Stderr, "Sign admin login challenge (kind %d)? [y/N] ", evt.Kind)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
