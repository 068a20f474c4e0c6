package core

import (
	"time"

	"github.com/nbd-wtf/go-nostr"
)

const (
	// ChallengeKind is the event kind of an admin login challenge
	ChallengeKind = 22242

	// ActionTag is the tag name carrying the challenge's purpose
	ActionTag = "action"

	// ActionAdminAuth marks a challenge as an admin login
	ActionAdminAuth = "admin_auth"
)

// Admin represents an administrator as reported by the backend
type Admin struct {
	ID        string    `json:"id"`
	Pubkey    string    `json:"pubkey"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult is the backend's verdict on a signed challenge
type AuthResult struct {
	Admin               Admin  `json:"admin"`
	IsNew               bool   `json:"is_new"`
	InstanceInitialized bool   `json:"instance_initialized"`
	SessionToken        string `json:"session_token"`
}

// Credential is what the caller keeps after a successful login
type Credential struct {
	SessionToken string `json:"session_token"`
	Pubkey       string `json:"pubkey"`
}

// InstanceStatus reports whether initial admin setup has completed
type InstanceStatus struct {
	Initialized bool `json:"initialized"`
}

// Session represents an authenticated admin session on the backend side
type Session struct {
	ID        string    // Unique session identifier
	AdminID   string    // Identifier of the admin owning the session
	Pubkey    string    // Hex pubkey of the admin
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session stops being valid
}

// IsChallenge reports whether evt carries the admin login marker and kind
func IsChallenge(evt nostr.Event) bool {
	if evt.Kind != ChallengeKind {
		return false
	}
	tag := evt.Tags.GetFirst([]string{ActionTag, ActionAdminAuth})
	return tag != nil
}
