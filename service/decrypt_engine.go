package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
)

// CellKey addresses one cell of the displayed page
type CellKey struct {
	Row    int
	Column string
}

// DecryptEngine decrypts the protected cells of a page of rows, one cell at
// a time, through the signer's NIP-44 primitive.
type DecryptEngine struct {
	decryptor ports.Decryptor
	logger    *slog.Logger
}

// NewDecryptEngine creates an engine. A nil logger means slog.Default().
func NewDecryptEngine(decryptor ports.Decryptor, logger *slog.Logger) *DecryptEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecryptEngine{decryptor: decryptor, logger: logger}
}

// Columns returns the encrypted columns of columns, keeping their order.
// When columns is empty they are taken from the rows' keys in sorted order.
func Columns(rows []core.Row, columns []string) []string {
	if len(columns) == 0 {
		seen := make(map[string]struct{})
		for _, row := range rows {
			for col := range row {
				seen[col] = struct{}{}
			}
		}
		for col := range seen {
			columns = append(columns, col)
		}
		sort.Strings(columns)
	}

	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if core.IsEncryptedColumn(col) {
			out = append(out, col)
		}
	}
	return out
}

// Run walks rows then encrypted columns in order and hands every outcome to
// sink. It returns early when ctx is done or sink returns false. Cells with
// no ciphertext produce no outcome.
func (e *DecryptEngine) Run(ctx context.Context, rows []core.Row, columns []string, sink func(CellKey, core.CellValue) bool) {
	cols := Columns(rows, columns)

	for i, row := range rows {
		for _, col := range cols {
			if ctx.Err() != nil {
				return
			}

			ciphertext, ok := row.StringValue(col)
			if !ok {
				continue
			}

			value := e.decryptCell(ctx, row, col, ciphertext)

			if ctx.Err() != nil {
				return
			}
			if !sink(CellKey{Row: i, Column: col}, value) {
				return
			}
		}
	}
}

func (e *DecryptEngine) decryptCell(ctx context.Context, row core.Row, column, ciphertext string) core.CellValue {
	ephemeral, ok := row.EphemeralKey(core.FieldName(column))
	if !ok {
		return core.MissingKeyCell()
	}

	plaintext, err := e.decryptor.Nip44Decrypt(ctx, ciphertext, ephemeral)
	if err != nil {
		e.logger.Debug("cell decryption failed", "column", column, "error", err)
		return core.FailedCell(fmt.Errorf("%w: %w", core.ErrDecrypt, err))
	}
	if plaintext == "" {
		return core.EmptyCell()
	}
	return core.Decrypted(plaintext)
}

// DecryptCache holds the outcomes of the current pass only. Writes stamped
// with an older generation are dropped.
type DecryptCache struct {
	mu     sync.RWMutex
	gen    uint64
	values map[CellKey]core.CellValue
}

// NewDecryptCache creates an empty cache
func NewDecryptCache() *DecryptCache {
	return &DecryptCache{values: make(map[CellKey]core.CellValue)}
}

// Reset discards every entry and returns the new generation
func (c *DecryptCache) Reset() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.values = make(map[CellKey]core.CellValue)
	return c.gen
}

// Put stores v under key if gen is still current
func (c *DecryptCache) Put(gen uint64, key CellKey, v core.CellValue) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}
	c.values[key] = v
	return true
}

// Get returns the cell's outcome, Pending when there is none yet
func (c *DecryptCache) Get(key CellKey) core.CellValue {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.values[key]; ok {
		return v
	}
	return core.CellValue{Status: core.CellPending}
}

// Len returns the number of settled cells
func (c *DecryptCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Snapshot copies the current entries
func (c *DecryptCache) Snapshot() map[CellKey]core.CellValue {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[CellKey]core.CellValue, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// DecryptView binds an engine to the page being displayed. Every Load
// supersedes the previous one: its pass is cancelled and its late results
// never reach the cache.
type DecryptView struct {
	engine *DecryptEngine
	cache  *DecryptCache
	parent context.Context

	mu     sync.Mutex
	rows   []core.Row
	cancel context.CancelFunc
}

// NewDecryptView creates a view whose passes derive from ctx
func NewDecryptView(ctx context.Context, engine *DecryptEngine) *DecryptView {
	return &DecryptView{
		engine: engine,
		cache:  NewDecryptCache(),
		parent: ctx,
	}
}

// Load replaces the displayed rows and starts decrypting them. The cache is
// emptied before Load returns; the returned channel closes when the pass
// finishes or is cancelled.
func (v *DecryptView) Load(rows []core.Row, columns []string) <-chan struct{} {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(v.parent)
	v.cancel = cancel
	v.rows = rows
	gen := v.cache.Reset()
	v.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()

		v.engine.Run(ctx, rows, columns, func(key CellKey, value core.CellValue) bool {
			return v.cache.Put(gen, key, value)
		})
	}()
	return done
}

// Cell returns the outcome for a protected cell
func (v *DecryptView) Cell(row int, column string) core.CellValue {
	return v.cache.Get(CellKey{Row: row, Column: column})
}

// Display returns the text to render for a cell of the loaded page
func (v *DecryptView) Display(row int, column string) string {
	v.mu.Lock()
	rows := v.rows
	v.mu.Unlock()

	var raw any
	if row >= 0 && row < len(rows) {
		raw = rows[row][column]
	}

	if core.IsEncryptedColumn(column) {
		if _, ok := raw.(string); ok && raw != "" {
			return v.Cell(row, column).Display()
		}
	}
	if raw == nil {
		return ""
	}
	return fmt.Sprint(raw)
}

// Cache exposes the view's cache
func (v *DecryptView) Cache() *DecryptCache {
	return v.cache
}

// Close cancels the running pass. Results still in flight are discarded.
func (v *DecryptView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.cache.Reset()
}
