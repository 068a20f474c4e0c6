package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with admin-session ones.
// Subject carries the admin pubkey and ID the session id.
type SessionClaims struct {
	jwt.RegisteredClaims
	AdminID string `json:"aid"`
}
