package signer

import (
	"context"
	"testing"

	"github.com/layer-3/warden/core"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T, opts ...Option) *LocalSigner {
	t.Helper()
	s, err := NewLocalSigner(nostr.GeneratePrivateKey(), opts...)
	require.NoError(t, err)
	return s
}

func TestNewLocalSigner_AcceptsNsec(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	nsec, err := nip19.EncodePrivateKey(sk)
	require.NoError(t, err)

	fromHex, err := NewLocalSigner(sk)
	require.NoError(t, err)
	fromNsec, err := NewLocalSigner(nsec)
	require.NoError(t, err)

	assert.Equal(t, fromHex.PublicKey(), fromNsec.PublicKey())
}

func TestNewLocalSigner_RejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "abc", "nsec1notvalid", "zz" + nostr.GeneratePrivateKey()[2:]} {
		_, err := NewLocalSigner(input)
		assert.Error(t, err, input)
	}
}

func TestLocalSigner_SignEvent(t *testing.T) {
	s := newTestSigner(t)
	evt := nostr.Event{
		Kind:      core.ChallengeKind,
		CreatedAt: nostr.Now(),
		Tags:      nostr.Tags{{core.ActionTag, core.ActionAdminAuth}},
	}

	signed, err := s.SignEvent(context.Background(), evt)
	require.NoError(t, err)

	assert.Equal(t, s.PublicKey(), signed.PubKey)
	assert.NotEmpty(t, signed.ID)
	ok, err := signed.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalSigner_ConfirmRejects(t *testing.T) {
	s := newTestSigner(t, WithConfirm(func(nostr.Event) bool { return false }))

	_, err := s.SignEvent(context.Background(), nostr.Event{Kind: core.ChallengeKind})
	assert.ErrorIs(t, err, core.ErrUserRejected)
}

func TestLocalSigner_SealRoundTrip(t *testing.T) {
	s := newTestSigner(t)

	ct, eph, err := SealTo(s.PublicKey(), "alice@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, s.PublicKey(), eph)

	plain, err := s.Nip44Decrypt(context.Background(), ct, eph)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", plain)

	// second call is served from the conversation key cache
	plain, err = s.Nip44Decrypt(context.Background(), ct, eph)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", plain)
}

func TestLocalSigner_DecryptForSomeoneElse(t *testing.T) {
	alice := newTestSigner(t)
	mallory := newTestSigner(t)

	ct, eph, err := SealTo(alice.PublicKey(), "secret")
	require.NoError(t, err)

	_, err = mallory.Nip44Decrypt(context.Background(), ct, eph)
	assert.Error(t, err)
}

func TestLocalSigner_CancelledContext(t *testing.T) {
	s := newTestSigner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SignEvent(ctx, nostr.Event{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Nip44Decrypt(ctx, "x", s.PublicKey())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSlot(t *testing.T) {
	slot := NewSlot(nil)
	_, ok := slot.Signer()
	assert.False(t, ok)

	s := newTestSigner(t)
	slot.Attach(s)
	got, ok := slot.Signer()
	require.True(t, ok)
	assert.Same(t, s, got)

	slot.Detach()
	_, ok = slot.Signer()
	assert.False(t, ok)
}
