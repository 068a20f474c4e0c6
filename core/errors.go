package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoSignerAvailable       = errors.New("no signer available")
	ErrUserRejected            = errors.New("signing rejected by user")
	ErrSignerError             = errors.New("signer error")
	ErrAuthVerificationFailed  = errors.New("auth verification failed")
	ErrInvalidIdentifier       = errors.New("invalid identifier")
	ErrInvalidIdentifierFormat = errors.New("invalid identifier format")
	ErrSessionUnauthenticated  = errors.New("session unauthenticated")
	ErrSessionUnavailable      = errors.New("session check unavailable")
	ErrStatusCheckFailed       = errors.New("instance status check failed")
	ErrDecryptMissingKey       = errors.New("missing ephemeral key")
	ErrDecrypt                 = errors.New("decryption failed")

	// Backend-side errors used by the contract server
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrChallengeExpired = errors.New("challenge outside the accepted window")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrChallengeReplay  = errors.New("challenge already used")
	ErrNotAdmin         = errors.New("pubkey is not an admin")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
)

// APIError is a non-2xx response from the backend
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// AuthError is a rejected login. Message is already translated for display.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return "auth verification failed: " + e.Message
}

func (e *AuthError) Unwrap() error {
	return ErrAuthVerificationFailed
}
