package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
)

// InitiationGate keeps public onboarding views closed until the instance
// has an admin. When the status query itself fails the gate opens: an
// unreachable status endpoint must not take the public pages down.
type InitiationGate struct {
	backend  ports.StatusBackend
	logger   *slog.Logger
	onChange func(core.GateState)

	mu      sync.Mutex
	state   core.GateState
	err     error
	mounted bool
	gen     uint64
	cancel  context.CancelFunc
}

// NewInitiationGate creates a gate in the checking state
func NewInitiationGate(backend ports.StatusBackend, opts ...GuardOption) *InitiationGate {
	o := collectGuardOptions(opts)
	return &InitiationGate{
		backend:  backend,
		logger:   o.logger,
		onChange: o.onGate,
		state:    core.GateChecking,
	}
}

// Mount activates the gate and queries instance status. It blocks until the
// query finishes and returns the state in effect afterwards.
func (g *InitiationGate) Mount(ctx context.Context) core.GateState {
	g.mu.Lock()
	g.mounted = true
	if g.cancel != nil {
		g.cancel()
	}
	g.gen++
	gen := g.gen
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.state = core.GateChecking
	g.err = nil
	g.mu.Unlock()
	defer cancel()

	next := core.GateInitiated
	var checkErr error

	status, err := g.backend.InstanceStatus(ctx)
	switch {
	case err != nil:
		checkErr = fmt.Errorf("%w: %w", core.ErrStatusCheckFailed, err)
	case status == nil:
		checkErr = fmt.Errorf("%w: empty status", core.ErrStatusCheckFailed)
	case !status.Initialized:
		next = core.GateUninitiated
	}

	g.mu.Lock()
	if !g.mounted || gen != g.gen {
		state := g.state
		g.mu.Unlock()
		return state
	}
	g.state = next
	g.err = checkErr
	onChange := g.onChange
	g.mu.Unlock()

	if checkErr != nil {
		g.logger.Warn("instance status unavailable, letting page through", "error", checkErr)
	}
	if onChange != nil {
		onChange(next)
	}
	return next
}

// Unmount deactivates the gate and discards any in-flight result
func (g *InitiationGate) Unmount() {
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
func (g *InitiationGate) State() core.GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the status failure the gate opened over, if any
func (g *InitiationGate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Render maps the current state to what the host should display
func (g *InitiationGate) Render() core.View {
	switch g.State() {
	case core.GateInitiated:
		return core.View{Kind: core.ViewChildren}
	case core.GateUninitiated:
		return core.View{Kind: core.ViewRedirect, Target: core.InitiatePath}
	default:
		return core.View{Kind: core.ViewLoading}
	}
}
