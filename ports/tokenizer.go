package ports

import "github.com/layer-3/warden/core"

// Tokenizer converts between sessions and session tokens
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
