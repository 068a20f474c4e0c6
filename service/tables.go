package service

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/layer-3/warden/core"
)

// ErrUnknownTable is returned when reading a table that has no rows
var ErrUnknownTable = errors.New("unknown table")

// ErrReservedColumn is returned when a field name collides with a column the
// table manages itself
var ErrReservedColumn = errors.New("reserved column name")

var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// SealFunc encrypts plaintext to recipient, returning the ciphertext and the
// ephemeral pubkey needed to decrypt it
type SealFunc func(recipientPubkey, plaintext string) (ciphertext, ephemeralPubkey string, err error)

// Tables is the contract backend's in-memory row storage. Protected fields
// are sealed to the admin pubkey on write and never stored in the clear.
type Tables struct {
	seal SealFunc

	mu     sync.RWMutex
	tables map[string]*table
}

type table struct {
	columns []string
	rows    []core.Row
}

// NewTables creates empty storage that seals protected fields with seal
func NewTables(seal SealFunc) *Tables {
	return &Tables{
		seal:   seal,
		tables: make(map[string]*table),
	}
}

// Insert appends a row to name. Each field listed in protected is stored as
// encrypted_<field> with its own ephemeral_pubkey_<field>.
func (t *Tables) Insert(name string, values map[string]string, protected []string, recipientPubkey string) (core.Row, error) {
	if !tableNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid table name %q", name)
	}

	for field := range values {
		if isReservedColumn(field) {
			return nil, fmt.Errorf("%w: %q", ErrReservedColumn, field)
		}
	}

	sealed := make(map[string]bool, len(protected))
	for _, f := range protected {
		sealed[f] = true
	}

	row := make(core.Row, len(values))
	for field, value := range values {
		if !sealed[field] {
			row[field] = value
			continue
		}
		ct, eph, err := t.seal(recipientPubkey, value)
		if err != nil {
			return nil, fmt.Errorf("failed to seal field %q: %w", field, err)
		}
		row[core.EncryptedPrefix+field] = ct
		row[core.EphemeralKeyPrefix+field] = eph
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, ok := t.tables[name]
	if !ok {
		tbl = &table{}
		t.tables[name] = tbl
	}
	row["id"] = len(tbl.rows) + 1
	tbl.rows = append(tbl.rows, row)
	tbl.columns = mergeColumns(tbl.columns, row)

	return row, nil
}

// isReservedColumn reports whether field would shadow the row id or a
// ciphertext or ephemeral key column
func isReservedColumn(field string) bool {
	return field == "" ||
		field == "id" ||
		core.IsEncryptedColumn(field) ||
		strings.HasPrefix(field, core.EphemeralKeyColumn)
}

// Page returns one page of name. Pages are 1-based.
func (t *Tables) Page(name string, page, pageSize int) (*core.RowPage, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tbl, ok := t.tables[name]
	if !ok {
		return nil, ErrUnknownTable
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 25
	}

	start := (page - 1) * pageSize
	if start > len(tbl.rows) {
		start = len(tbl.rows)
	}
	end := start + pageSize
	if end > len(tbl.rows) {
		end = len(tbl.rows)
	}

	rows := make([]core.Row, 0, end-start)
	for _, r := range tbl.rows[start:end] {
		cp := make(core.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		rows = append(rows, cp)
	}

	return &core.RowPage{
		Table:    name,
		Columns:  append([]string(nil), tbl.columns...),
		Rows:     rows,
		Page:     page,
		PageSize: pageSize,
		Total:    len(tbl.rows),
	}, nil
}

// mergeColumns adds row's new columns in sorted order, keeping id first
func mergeColumns(columns []string, row core.Row) []string {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	var added []string
	for c := range row {
		if !known[c] {
			added = append(added, c)
		}
	}
	sort.Strings(added)

	for _, c := range added {
		if c == "id" {
			columns = append([]string{"id"}, columns...)
			continue
		}
		columns = append(columns, c)
	}
	return columns
}
