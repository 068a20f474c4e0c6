package service

import (
	"context"
	"errors"
	"testing"

	"github.com/layer-3/warden/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_LoginStoresCredential(t *testing.T) {
	local := newLocalSigner(t)
	store := &fakeCredentialStore{}
	events := &fakePublisher{}
	auth := NewAuthClient(fakeSource{signer: local}, acceptingBackend(t))

	sessions := NewSessions(auth, store, events, nil, nil)
	result, err := sessions.Login(context.Background())
	require.NoError(t, err)
	assert.True(t, result.IsNew)

	cred, err := sessions.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "session-token", cred.SessionToken)
	assert.Equal(t, local.PublicKey(), cred.Pubkey)

	recorded := events.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, recordedEvent{kind: "login", pubkey: local.PublicKey(), isNew: true}, recorded[0])
}

func TestSessions_FailedLoginStoresNothing(t *testing.T) {
	store := &fakeCredentialStore{}
	auth := NewAuthClient(fakeSource{}, &fakeBackend{}, WithSignerGrace(0))

	_, err := NewSessions(auth, store, nil, nil, nil).Login(context.Background())
	assert.ErrorIs(t, err, core.ErrNoSignerAvailable)
	assert.Nil(t, store.stored())
}

func TestSessions_LogoutClearsEvenIfBackendFails(t *testing.T) {
	store := storedCredential()
	events := &fakePublisher{}
	var revoked string
	revoker := &fakeBackend{logout: func(ctx context.Context, token string) error {
		revoked = token
		return errors.New("backend down")
	}}

	sessions := NewSessions(nil, store, events, revoker, nil)
	require.NoError(t, sessions.Logout(context.Background()))

	assert.Equal(t, "tok", revoked)
	assert.Nil(t, store.stored())
	recorded := events.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, "user logout", recorded[0].reason)
}

func TestSessions_LogoutWithoutCredential(t *testing.T) {
	revoker := &fakeBackend{}
	sessions := NewSessions(nil, &fakeCredentialStore{}, nil, revoker, nil)

	require.NoError(t, sessions.Logout(context.Background()))
	assert.Zero(t, revoker.calls.Load())
}
