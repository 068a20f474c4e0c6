package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/layer-3/warden/core"
	"github.com/stretchr/testify/assert"
)

func TestInitiationGate(t *testing.T) {
	tests := []struct {
		name     string
		status   *core.InstanceStatus
		err      error
		want     core.GateState
		wantView core.View
	}{
		{
			name:     "initialized",
			status:   &core.InstanceStatus{Initialized: true},
			want:     core.GateInitiated,
			wantView: core.View{Kind: core.ViewChildren},
		},
		{
			name:     "not initialized",
			status:   &core.InstanceStatus{Initialized: false},
			want:     core.GateUninitiated,
			wantView: core.View{Kind: core.ViewRedirect, Target: core.InitiatePath},
		},
		{
			name:     "status failure fails open",
			err:      errors.New("connection refused"),
			want:     core.GateInitiated,
			wantView: core.View{Kind: core.ViewChildren},
		},
		{
			name:     "empty status fails open",
			want:     core.GateInitiated,
			wantView: core.View{Kind: core.ViewChildren},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{status: func(ctx context.Context) (*core.InstanceStatus, error) {
				return tt.status, tt.err
			}}
			gate := NewInitiationGate(backend)

			assert.Equal(t, tt.want, gate.Mount(context.Background()))
			assert.Equal(t, tt.wantView, gate.Render())
			if tt.err != nil || tt.status == nil {
				assert.ErrorIs(t, gate.Err(), core.ErrStatusCheckFailed)
			} else {
				assert.NoError(t, gate.Err())
			}
		})
	}
}

func TestInitiationGate_UnmountDiscardsLateResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{status: func(ctx context.Context) (*core.InstanceStatus, error) {
		close(started)
		<-release
		return &core.InstanceStatus{Initialized: false}, nil
	}}

	var changes int
	gate := NewInitiationGate(backend, OnGateChange(func(core.GateState) { changes++ }))

	result := make(chan core.GateState, 1)
	go func() { result <- gate.Mount(context.Background()) }()

	<-started
	gate.Unmount()
	close(release)

	select {
	case <-result:
	case <-time.After(2 * time.Second):
		t.Fatal("mount did not return")
	}
	assert.Equal(t, core.GateChecking, gate.State())
	assert.Equal(t, core.ViewLoading, gate.Render().Kind)
	assert.Zero(t, changes)
}
