package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nbd-wtf/go-nostr/nip19"
)

var hexPubkeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// NormalizeIdentifier converts a hex or npub public key into lowercase 64-hex.
// It never guesses: anything that is not a well-formed key is an error.
func NormalizeIdentifier(input string) (string, error) {
	trimmed := strings.TrimSpace(input)

	if hexPubkeyPattern.MatchString(trimmed) {
		return strings.ToLower(trimmed), nil
	}

	if strings.HasPrefix(strings.ToLower(trimmed), "npub") {
		prefix, value, err := nip19.Decode(trimmed)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
		}
		if prefix != "npub" {
			return "", fmt.Errorf("%w: decoded type %q", ErrInvalidIdentifier, prefix)
		}
		pubkey, ok := value.(string)
		if !ok || !hexPubkeyPattern.MatchString(pubkey) {
			return "", fmt.Errorf("%w: unexpected npub payload", ErrInvalidIdentifier)
		}
		return strings.ToLower(pubkey), nil
	}

	return "", ErrInvalidIdentifierFormat
}

// EncodeNpub renders a hex pubkey in its npub form
func EncodeNpub(pubkey string) (string, error) {
	hex, err := NormalizeIdentifier(pubkey)
	if err != nil {
		return "", err
	}
	return nip19.EncodePublicKey(hex)
}

// ShortKey truncates a pubkey for log output
func ShortKey(pubkey string) string {
	if len(pubkey) <= 12 {
		return pubkey
	}
	return pubkey[:12]
}
