package signer

import (
	"sync"

	"github.com/layer-3/warden/ports"
)

// Slot is a SignerSource whose signer can attach or detach at any time,
// the way a browser extension injects itself after page load.
type Slot struct {
	mu     sync.RWMutex
	signer ports.Signer
}

// NewSlot creates a slot, optionally pre-attached
func NewSlot(s ports.Signer) *Slot {
	return &Slot{signer: s}
}

// Attach installs s as the current signer
func (sl *Slot) Attach(s ports.Signer) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.signer = s
}

// Detach removes the current signer
func (sl *Slot) Detach() {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.signer = nil
}

// Signer implements ports.SignerSource
func (sl *Slot) Signer() (ports.Signer, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.signer, sl.signer != nil
}

var _ ports.SignerSource = (*Slot)(nil)
