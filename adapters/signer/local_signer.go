package signer

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/nbd-wtf/go-nostr/nip44"
)

// ConfirmFunc is asked before every signature; returning false rejects it
type ConfirmFunc func(evt nostr.Event) bool

// LocalSigner signs and decrypts with a secret key held in process.
// It stands in for a NIP-07 browser extension.
type LocalSigner struct {
	secretKey string
	pubkey    string
	confirm   ConfirmFunc

	mu       sync.Mutex
	convKeys map[string][32]byte
}

// Option configures a LocalSigner
type Option func(*LocalSigner)

// WithConfirm installs a confirmation prompt in front of SignEvent
func WithConfirm(fn ConfirmFunc) Option {
	return func(s *LocalSigner) {
		s.confirm = fn
	}
}

// NewLocalSigner creates a signer from an nsec or 64-hex secret key
func NewLocalSigner(secret string, opts ...Option) (*LocalSigner, error) {
	sk, err := decodeSecretKey(secret)
	if err != nil {
		return nil, err
	}

	pub, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}

	s := &LocalSigner{
		secretKey: sk,
		pubkey:    pub,
		convKeys:  make(map[string][32]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PublicKey returns the signer's hex pubkey
func (s *LocalSigner) PublicKey() string {
	return s.pubkey
}

// SignEvent signs evt with the local key
func (s *LocalSigner) SignEvent(ctx context.Context, evt nostr.Event) (nostr.Event, error) {
	if err := ctx.Err(); err != nil {
		return nostr.Event{}, err
	}
	if s.confirm != nil && !s.confirm(evt) {
		return nostr.Event{}, core.ErrUserRejected
	}

	if err := evt.Sign(s.secretKey); err != nil {
		return nostr.Event{}, fmt.Errorf("failed to sign event: %w", err)
	}
	return evt, nil
}

// Nip44Decrypt decrypts a payload encrypted to this signer's pubkey
func (s *LocalSigner) Nip44Decrypt(ctx context.Context, ciphertext, ephemeralPubkey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	convKey, err := s.conversationKey(ephemeralPubkey)
	if err != nil {
		return "", err
	}

	plaintext, err := nip44.Decrypt(ciphertext, convKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt payload: %w", err)
	}
	return plaintext, nil
}

// conversationKey derives (and caches) the ECDH conversation key for peer
func (s *LocalSigner) conversationKey(peer string) ([32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.convKeys[peer]; ok {
		return key, nil
	}

	key, err := nip44.GenerateConversationKey(peer, s.secretKey)
	if err != nil {
		return [32]byte{}, fmt.Errorf("failed to derive conversation key: %w", err)
	}
	s.convKeys[peer] = key
	return key, nil
}

func decodeSecretKey(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if strings.HasPrefix(secret, "nsec") {
		prefix, value, err := nip19.Decode(secret)
		if err != nil {
			return "", fmt.Errorf("failed to decode nsec: %w", err)
		}
		sk, ok := value.(string)
		if prefix != "nsec" || !ok {
			return "", fmt.Errorf("unexpected secret key encoding %q", prefix)
		}
		return sk, nil
	}

	if _, err := hex.DecodeString(secret); err != nil || len(secret) != 64 {
		return "", fmt.Errorf("secret key must be nsec or 64 hex characters")
	}
	return strings.ToLower(secret), nil
}

var _ ports.Signer = (*LocalSigner)(nil)
