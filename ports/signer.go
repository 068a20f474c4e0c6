package ports

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// Signer is the key-holding capability (a NIP-07 extension or a local key).
// Implementations may prompt the user, so callers must not assume either
// call returns promptly.
type Signer interface {
	Decryptor

	// SignEvent fills in pubkey, id and sig of an unsigned event
	SignEvent(ctx context.Context, evt nostr.Event) (nostr.Event, error)
}

// Decryptor is the decryption half of a Signer
type Decryptor interface {
	// Nip44Decrypt decrypts a NIP-44 payload sent by ephemeralPubkey
	Nip44Decrypt(ctx context.Context, ciphertext, ephemeralPubkey string) (string, error)
}

// SignerSource reports whether a signer is currently attached.
// Browser extensions may attach some time after start-up.
type SignerSource interface {
	Signer() (Signer, bool)
}
