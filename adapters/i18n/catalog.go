package i18n

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

// Keys shared between the contract backend and the client catalog
const (
	KeyInvalidEvent       = "auth.errors.invalid_event"
	KeyInvalidSignature   = "auth.errors.invalid_signature"
	KeyExpiredChallenge   = "auth.errors.expired_challenge"
	KeyReplayedChallenge  = "auth.errors.replayed_challenge"
	KeyNotAdmin           = "auth.errors.not_admin"
	KeySessionUnavailable = core.MessageSessionUnavailable
	KeySessionExpired     = core.MessageSessionExpired
)

// Catalog is a flat key → message table
type Catalog struct {
	language string
	messages map[string]string
}

// Load reads the embedded catalog for language, falling back to English
// for keys the language does not define.
func Load(language string) (*Catalog, error) {
	messages, err := readLocale("en")
	if err != nil {
		return nil, err
	}

	if language != "" && language != "en" {
		localized, err := readLocale(language)
		if err != nil {
			return nil, err
		}
		for k, v := range localized {
			messages[k] = v
		}
	}

	return &Catalog{language: language, messages: messages}, nil
}

// Translate implements ports.Translator
func (c *Catalog) Translate(key string) (string, bool) {
	msg, ok := c.messages[key]
	return msg, ok
}

// Message returns the translation for key, or key itself when unknown
func (c *Catalog) Message(key string) string {
	if msg, ok := c.messages[key]; ok {
		return msg
	}
	return key
}

func readLocale(language string) (map[string]string, error) {
	raw, err := fs.ReadFile(locales, "locales/"+language+".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown language %q: %w", language, err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse %s catalog: %w", language, err)
	}

	messages := make(map[string]string)
	flatten("", tree, messages)
	return messages, nil
}

// flatten turns nested YAML maps into dotted keys
func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

var _ ports.Translator = (*Catalog)(nil)
