package ports

// Translator resolves message keys sent by the backend
type Translator interface {
	// Translate returns the message for key and whether key is known
	Translate(key string) (string, bool)
}
