package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/layer-3/warden/adapters/signer"
	"github.com/layer-3/warden/core"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalSigner(t *testing.T, opts ...signer.Option) *signer.LocalSigner {
	t.Helper()
	s, err := signer.NewLocalSigner(nostr.GeneratePrivateKey(), opts...)
	require.NoError(t, err)
	return s
}

func acceptingBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{verify: func(ctx context.Context, evt nostr.Event) (*core.AuthResult, error) {
		ok, err := evt.CheckSignature()
		require.NoError(t, err)
		require.True(t, ok)
		return &core.AuthResult{
			Admin:               core.Admin{ID: "1", Pubkey: evt.PubKey},
			IsNew:               true,
			InstanceInitialized: true,
			SessionToken:        "session-token",
		}, nil
	}}
}

func TestBuildChallenge(t *testing.T) {
	now := time.Unix(1700000000, 0)
	evt := BuildChallenge(now)

	assert.Equal(t, core.ChallengeKind, evt.Kind)
	assert.Equal(t, nostr.Timestamp(1700000000), evt.CreatedAt)
	assert.Empty(t, evt.Content)
	assert.True(t, core.IsChallenge(evt))
	assert.Empty(t, evt.Sig)
}

func TestAuthClient_Authenticate(t *testing.T) {
	local := newLocalSigner(t)
	now := time.Unix(1700000000, 0)

	var submitted nostr.Event
	backend := acceptingBackend(t)
	verify := backend.verify
	backend.verify = func(ctx context.Context, evt nostr.Event) (*core.AuthResult, error) {
		submitted = evt
		return verify(ctx, evt)
	}

	client := NewAuthClient(fakeSource{signer: local}, backend, WithClock(func() time.Time { return now }))
	result, err := client.Authenticate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, local.PublicKey(), result.Admin.Pubkey)
	assert.True(t, result.IsNew)
	assert.Equal(t, "session-token", result.SessionToken)
	assert.Equal(t, nostr.Timestamp(now.Unix()), submitted.CreatedAt)
	assert.True(t, core.IsChallenge(submitted))
}

func TestAuthClient_NoSigner(t *testing.T) {
	backend := &fakeBackend{}
	client := NewAuthClient(fakeSource{}, backend, WithSignerGrace(0))

	_, err := client.Authenticate(context.Background())
	assert.ErrorIs(t, err, core.ErrNoSignerAvailable)
	assert.Zero(t, backend.calls.Load())
}

func TestAuthClient_WaitsForLateSigner(t *testing.T) {
	slot := signer.NewSlot(nil)
	local := newLocalSigner(t)

	go func() {
		time.Sleep(150 * time.Millisecond)
		slot.Attach(local)
	}()

	client := NewAuthClient(slot, acceptingBackend(t), WithSignerGrace(2*time.Second))
	result, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, local.PublicKey(), result.Admin.Pubkey)
}

func TestAuthClient_UserRejects(t *testing.T) {
	local := newLocalSigner(t, signer.WithConfirm(func(nostr.Event) bool { return false }))
	backend := &fakeBackend{}
	client := NewAuthClient(fakeSource{signer: local}, backend)

	_, err := client.Authenticate(context.Background())
	assert.ErrorIs(t, err, core.ErrUserRejected)
	assert.NotErrorIs(t, err, core.ErrSignerError)
	assert.Zero(t, backend.calls.Load())
}

type brokenSigner struct{}

func (brokenSigner) SignEvent(ctx context.Context, evt nostr.Event) (nostr.Event, error) {
	return nostr.Event{}, errors.New("extension crashed")
}

func (brokenSigner) Nip44Decrypt(ctx context.Context, ciphertext, ephemeralPubkey string) (string, error) {
	return "", errors.New("extension crashed")
}

func TestAuthClient_SignerFailure(t *testing.T) {
	client := NewAuthClient(fakeSource{signer: brokenSigner{}}, &fakeBackend{})

	_, err := client.Authenticate(context.Background())
	assert.ErrorIs(t, err, core.ErrSignerError)
}

func TestAuthClient_BackendRejection(t *testing.T) {
	tests := []struct {
		name    string
		detail  string
		want    string
		catalog mapTranslator
	}{
		{
			name:    "translated key",
			detail:  "auth.errors.not_admin",
			catalog: mapTranslator{"auth.errors.not_admin": "This key is not the instance admin"},
			want:    "This key is not the instance admin",
		},
		{
			name:   "raw detail",
			detail: "challenge too old",
			want:   "challenge too old",
		},
		{
			name: "no detail",
			want: "authentication failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{verify: func(ctx context.Context, evt nostr.Event) (*core.AuthResult, error) {
				return nil, &core.APIError{StatusCode: 403, Detail: tt.detail}
			}}
			client := NewAuthClient(fakeSource{signer: newLocalSigner(t)}, backend, WithTranslator(tt.catalog))

			_, err := client.Authenticate(context.Background())
			require.ErrorIs(t, err, core.ErrAuthVerificationFailed)

			var authErr *core.AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, 403, authErr.StatusCode)
			assert.Equal(t, tt.want, authErr.Message)
		})
	}
}

func TestAuthClient_TransportFailure(t *testing.T) {
	backend := &fakeBackend{verify: func(ctx context.Context, evt nostr.Event) (*core.AuthResult, error) {
		return nil, errors.New("connection reset")
	}}
	client := NewAuthClient(fakeSource{signer: newLocalSigner(t)}, backend)

	_, err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrAuthVerificationFailed)
}

func TestAwaitSigner_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AwaitSigner(ctx, fakeSource{}, time.Second)
	assert.ErrorIs(t, err, core.ErrNoSignerAvailable)
	assert.ErrorIs(t, err, context.Canceled)
}
