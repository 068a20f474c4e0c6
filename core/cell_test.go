package core

import (
	"errors"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
)

func TestCellValue_Display(t *testing.T) {
	tests := []struct {
		name  string
		value CellValue
		want  string
	}{
		{"zero value is pending", CellValue{}, SentinelPending},
		{"decrypted", Decrypted("alice@example.com"), "alice@example.com"},
		{"decrypted text that looks like a sentinel", Decrypted(SentinelError), SentinelError},
		{"empty", EmptyCell(), SentinelEmpty},
		{"missing key", MissingKeyCell(), SentinelMissingKey},
		{"failed", FailedCell(errors.New("boom")), SentinelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Display())
		})
	}
}

func TestCellValue_StatusDistinguishesLiteralSentinels(t *testing.T) {
	literal := Decrypted(SentinelMissingKey)
	missing := MissingKeyCell()

	assert.Equal(t, literal.Display(), missing.Display())
	assert.NotEqual(t, literal.Status, missing.Status)
	assert.ErrorIs(t, missing.Err, ErrDecryptMissingKey)
}

func TestRow_EphemeralKey(t *testing.T) {
	tests := []struct {
		name   string
		row    Row
		want   string
		wantOK bool
	}{
		{"field specific", Row{"ephemeral_pubkey_email": "pk1", "ephemeral_pubkey": "generic"}, "pk1", true},
		{"generic fallback", Row{"ephemeral_pubkey": "generic"}, "generic", true},
		{"empty field key falls back", Row{"ephemeral_pubkey_email": "", "ephemeral_pubkey": "generic"}, "generic", true},
		{"none", Row{"encrypted_email": "ct"}, "", false},
		{"non-string", Row{"ephemeral_pubkey_email": 42}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.row.EphemeralKey("email")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsChallenge(t *testing.T) {
	evt := nostr.Event{Kind: ChallengeKind, Tags: nostr.Tags{{ActionTag, ActionAdminAuth}}}
	assert.True(t, IsChallenge(evt))

	evt.Kind = 1
	assert.False(t, IsChallenge(evt))

	evt = nostr.Event{Kind: ChallengeKind, Tags: nostr.Tags{{ActionTag, "other"}}}
	assert.False(t, IsChallenge(evt))
}

func TestFieldName(t *testing.T) {
	assert.True(t, IsEncryptedColumn("encrypted_email"))
	assert.False(t, IsEncryptedColumn("email"))
	assert.Equal(t, "email", FieldName("encrypted_email"))
}
