package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
)

const defaultUnavailableMessage = "Could not verify your session. The server may be unreachable. This is not treated as a logout."

// SessionGuard gates admin-only views. Only a definitive rejection from the
// backend logs the admin out; an unreachable or failing backend leaves the
// stored credential alone and offers a retry.
type SessionGuard struct {
	store      ports.CredentialStore
	backend    ports.SessionBackend
	events     ports.EventPublisher
	translator ports.Translator
	logger     *slog.Logger
	onChange   func(core.GuardState)

	mu      sync.Mutex
	state   core.GuardState
	err     error
	admin   *core.Admin
	mounted bool
	gen     uint64
	cancel  context.CancelFunc
}

// GuardOption configures a SessionGuard or InitiationGate
type GuardOption func(*guardOptions)

type guardOptions struct {
	events     ports.EventPublisher
	translator ports.Translator
	logger     *slog.Logger
	onGuard    func(core.GuardState)
	onGate     func(core.GateState)
}

// WithEvents publishes a logout when the guard evicts a rejected session
func WithEvents(p ports.EventPublisher) GuardOption {
	return func(o *guardOptions) { o.events = p }
}

// WithMessages translates the guard's retry message
func WithMessages(t ports.Translator) GuardOption {
	return func(o *guardOptions) { o.translator = t }
}

// WithGuardLogger sets the logger
func WithGuardLogger(l *slog.Logger) GuardOption {
	return func(o *guardOptions) { o.logger = l }
}

// OnGuardChange is called after every applied SessionGuard transition
func OnGuardChange(fn func(core.GuardState)) GuardOption {
	return func(o *guardOptions) { o.onGuard = fn }
}

// OnGateChange is called after every applied InitiationGate transition
func OnGateChange(fn func(core.GateState)) GuardOption {
	return func(o *guardOptions) { o.onGate = fn }
}

func collectGuardOptions(opts []GuardOption) guardOptions {
	o := guardOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSessionGuard creates a guard in the checking state
func NewSessionGuard(store ports.CredentialStore, backend ports.SessionBackend, opts ...GuardOption) *SessionGuard {
	o := collectGuardOptions(opts)
	return &SessionGuard{
		store:      store,
		backend:    backend,
		events:     o.events,
		translator: o.translator,
		logger:     o.logger,
		onChange:   o.onGuard,
		state:      core.GuardChecking,
	}
}

// Mount activates the guard and runs the session check. It blocks until
// the check finishes and returns the state in effect afterwards.
func (g *SessionGuard) Mount(ctx context.Context) core.GuardState {
	g.mu.Lock()
	g.mounted = true
	g.mu.Unlock()

	return g.check(ctx)
}

// Retry re-runs the check from the unavailable state without touching the
// stored credential. In any other state it is a no-op.
func (g *SessionGuard) Retry(ctx context.Context) core.GuardState {
	g.mu.Lock()
	state := g.state
	g.mu.Unlock()

	if state != core.GuardUnavailable {
		return state
	}
	return g.check(ctx)
}

// Unmount deactivates the guard. A check still in flight is cancelled and
// its result discarded.
func (g *SessionGuard) Unmount() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.mounted = false
	g.gen++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

// State returns the current state
func (g *SessionGuard) State() core.GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns why the guard is unavailable, if it is
func (g *SessionGuard) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Admin returns the admin confirmed by the last successful check
func (g *SessionGuard) Admin() *core.Admin {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admin
}

// Render maps the current state to what the host should display
func (g *SessionGuard) Render() core.View {
	switch g.State() {
	case core.GuardAuthenticated:
		return core.View{Kind: core.ViewChildren}
	case core.GuardUnauthenticated:
		return core.View{Kind: core.ViewRedirect, Target: core.LoginPath}
	case core.GuardUnavailable:
		return core.View{Kind: core.ViewRetry, Message: g.unavailableMessage()}
	default:
		return core.View{Kind: core.ViewLoading}
	}
}

func (g *SessionGuard) unavailableMessage() string {
	if g.translator != nil {
		if msg, ok := g.translator.Translate(core.MessageSessionUnavailable); ok {
			return msg
		}
	}
	return defaultUnavailableMessage
}

type guardVerdict struct {
	state core.GuardState
	cred  *core.Credential
	admin *core.Admin
	err   error
}

func (g *SessionGuard) check(parent context.Context) core.GuardState {
	g.mu.Lock()
	if !g.mounted {
		state := g.state
		g.mu.Unlock()
		return state
	}
	if g.cancel != nil {
		g.cancel()
	}
	g.gen++
	gen := g.gen
	ctx, cancel := context.WithCancel(parent)
	g.cancel = cancel
	g.state = core.GuardChecking
	g.err = nil
	g.mu.Unlock()
	defer cancel()

	return g.apply(ctx, gen, g.evaluate(ctx))
}

func (g *SessionGuard) evaluate(ctx context.Context) guardVerdict {
	cred, err := g.store.Load(ctx)
	if err != nil {
		return guardVerdict{
			state: core.GuardUnavailable,
			err:   fmt.Errorf("%w: %w", core.ErrSessionUnavailable, err),
		}
	}
	if cred == nil || cred.SessionToken == "" {
		return guardVerdict{state: core.GuardUnauthenticated}
	}

	admin, err := g.backend.ValidateSession(ctx, cred.SessionToken)
	switch {
	case err == nil:
		return guardVerdict{state: core.GuardAuthenticated, cred: cred, admin: admin}
	case errors.Is(err, core.ErrSessionUnauthenticated):
		return guardVerdict{state: core.GuardUnauthenticated, cred: cred, err: err}
	default:
		return guardVerdict{
			state: core.GuardUnavailable,
			cred:  cred,
			err:   fmt.Errorf("%w: %w", core.ErrSessionUnavailable, err),
		}
	}
}

// apply commits v unless the guard was unmounted or re-checked meanwhile
func (g *SessionGuard) apply(ctx context.Context, gen uint64, v guardVerdict) core.GuardState {
	g.mu.Lock()
	if !g.mounted || gen != g.gen {
		state := g.state
		g.mu.Unlock()
		g.logger.Debug("discarding stale session check", "verdict", v.state)
		return state
	}
	g.state = v.state
	g.err = v.err
	g.admin = v.admin
	onChange := g.onChange
	g.mu.Unlock()

	switch v.state {
	case core.GuardUnauthenticated:
		if v.cred != nil {
			g.evict(context.WithoutCancel(ctx), v.cred, v.err)
		}
	case core.GuardUnavailable:
		g.logger.Warn("session check unavailable, keeping credential", "error", v.err)
	}

	if onChange != nil {
		onChange(v.state)
	}
	return v.state
}

// evict clears a credential the backend definitively rejected
func (g *SessionGuard) evict(ctx context.Context, cred *core.Credential, reason error) {
	g.logger.Info("session rejected, logging out", "pubkey", core.ShortKey(cred.Pubkey), "reason", reason)

	if err := g.store.Clear(ctx); err != nil {
		g.logger.Error("failed to clear rejected credential", "error", err)
	}
	if g.events != nil {
		if err := g.events.PublishLogout(ctx, cred.Pubkey, "session rejected"); err != nil {
			g.logger.Warn("failed to publish logout event", "error", err)
		}
	}
}
