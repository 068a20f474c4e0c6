package core

import "strings"

const (
	// EncryptedPrefix marks a column holding ciphertext
	EncryptedPrefix = "encrypted_"

	// EphemeralKeyPrefix marks the column holding a field's ephemeral pubkey
	EphemeralKeyPrefix = "ephemeral_pubkey_"

	// EphemeralKeyColumn is the row-wide fallback ephemeral pubkey column
	EphemeralKeyColumn = "ephemeral_pubkey"
)

// Display strings for cells that have no plaintext to show
const (
	SentinelPending    = "[Decrypting...]"
	SentinelEmpty      = "[Encrypted]"
	SentinelMissingKey = "[Encrypted - Missing Key]"
	SentinelError      = "[Encrypted - Error]"
)

// CellStatus tags the state of a protected cell
type CellStatus int

const (
	CellPending CellStatus = iota
	CellDecrypted
	CellEmpty
	CellMissingKey
	CellFailed
)

// CellValue is the decryption outcome for one protected cell. Text is only
// meaningful when Status is CellDecrypted.
type CellValue struct {
	Status CellStatus
	Text   string
	Err    error
}

func Decrypted(text string) CellValue { return CellValue{Status: CellDecrypted, Text: text} }

func EmptyCell() CellValue { return CellValue{Status: CellEmpty} }

func MissingKeyCell() CellValue {
	return CellValue{Status: CellMissingKey, Err: ErrDecryptMissingKey}
}

func FailedCell(err error) CellValue { return CellValue{Status: CellFailed, Err: err} }

// Display returns what a table should show for the cell
func (v CellValue) Display() string {
	switch v.Status {
	case CellDecrypted:
		return v.Text
	case CellEmpty:
		return SentinelEmpty
	case CellMissingKey:
		return SentinelMissingKey
	case CellFailed:
		return SentinelError
	default:
		return SentinelPending
	}
}

// IsEncryptedColumn reports whether column holds ciphertext
func IsEncryptedColumn(column string) bool {
	return strings.HasPrefix(column, EncryptedPrefix)
}

// FieldName strips the encrypted_ prefix from column
func FieldName(column string) string {
	return strings.TrimPrefix(column, EncryptedPrefix)
}
