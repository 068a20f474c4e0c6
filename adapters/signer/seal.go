package signer

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
)

// SealTo encrypts plaintext to recipient with a one-time ephemeral key.
// The ephemeral secret is discarded; only the recipient can decrypt.
func SealTo(recipientPubkey, plaintext string) (ciphertext, ephemeralPubkey string, err error) {
	ephemeralSecret := nostr.GeneratePrivateKey()
	ephemeralPubkey, err = nostr.GetPublicKey(ephemeralSecret)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive ephemeral key: %w", err)
	}

	convKey, err := nip44.GenerateConversationKey(recipientPubkey, ephemeralSecret)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive conversation key: %w", err)
	}

	ciphertext, err = nip44.Encrypt(plaintext, convKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to encrypt: %w", err)
	}
	return ciphertext, ephemeralPubkey, nil
}
