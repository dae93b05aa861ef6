// Package intern maps element identities to dense uint32 surrogates.
package intern

import (
	"fmt"
	"sync"

	"github.com/hupe1980/octogo/ident"
)

// Table is a bijective identity/surrogate cache. Surrogates are assigned in
// first-seen order starting at zero and never evicted. It is safe for
// concurrent use; concurrent interning of the same identity yields the
// surrogate of whichever caller got there first.
type Table struct {
	mu   sync.RWMutex
	ids  []ident.ID
	byID map[ident.ID]uint32
}

// New returns an empty table.
func New() *Table {
	return &Table{byID: make(map[ident.ID]uint32)}
}

// Intern returns the surrogate of id, assigning the next free one if needed.
func (t *Table) Intern(id ident.ID) uint32 {
	t.mu.RLock()
	s, ok := t.byID[id]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.byID[id]; ok {
		return s
	}
	if uint64(len(t.ids)) > uint64(^uint32(0)) {
		panic("intern: surrogate space exhausted")
	}
	s = uint32(len(t.ids))
	t.ids = append(t.ids, id)
	t.byID[id] = s
	return s
}

// Resolve returns the identity of a surrogate.
func (t *Table) Resolve(s uint32) (ident.ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(s) >= len(t.ids) {
		return ident.Nil, false
	}
	return t.ids[s], true
}

// MustResolve is like Resolve but panics on unknown surrogates.
func (t *Table) MustResolve(s uint32) ident.ID {
	id, ok := t.Resolve(s)
	if !ok {
		panic(fmt.Sprintf("intern: unknown surrogate %d", s))
	}
	return id
}

// Lookup returns the surrogate of id without assigning one.
func (t *Table) Lookup(id ident.ID) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.byID[id]
	return s, ok
}

// Len returns the number of interned identities.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}
