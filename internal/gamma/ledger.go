package gamma

import "github.com/google/uuid"

// Ledger is the identity-to-disclosure-tensor mapping consumed by Publish.
// From this package's perspective it is write-only: nodes are inserted
// before a release executes so auditors observe a consistent graph snapshot.
//
// The ledger provides no synchronization. Registering the same identity
// concurrently, or publishing the same tensor twice, double-deducts budget;
// at-most-once publish per released value must be enforced by the caller.
type Ledger struct {
	entries map[uuid.UUID]*Tensor
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[uuid.UUID]*Tensor)}
}

// Insert registers a disclosure tensor under its identity. Re-inserting the
// same identity overwrites (single registration per identity).
func (l *Ledger) Insert(id uuid.UUID, t *Tensor) {
	l.entries[id] = t
}

// Len returns the number of registered identities.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Has reports whether an identity is registered.
func (l *Ledger) Has(id uuid.UUID) bool {
	_, ok := l.entries[id]
	return ok
}
