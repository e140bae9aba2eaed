// Package world tracks live characters in a generational arena. Other
// systems hold Refs instead of pointers: once a character leaves the
// arena, every outstanding Ref to it resolves to nil — safely stale,
// without a garbage-collected back-reference.
package world

import (
	"sync"

	"github.com/galeforge/tdrpg/internal/model"
)

// Ref is a generation-checked index into an Arena. The zero value never
// resolves.
type Ref struct {
	index uint32
	gen   uint32
}

// Valid reports whether r was ever issued by an arena. A valid Ref can
// still be stale; only Resolve tells whether the character is alive.
func (r Ref) Valid() bool { return r.gen != 0 }

type slot struct {
	gen  uint32
	char *model.Character
}

// Arena owns the live character table for one simulation instance.
// Thread-safe.
type Arena struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
}

// NewArena creates an empty arena.
func NewArena() *Arena { return &Arena{} }

// Add inserts c and returns its Ref. Slots are recycled with a bumped
// generation so stale Refs keep resolving to nil.
func (a *Arena) Add(c *model.Character) Ref {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx].gen++
		a.slots[idx].char = c
		return Ref{index: idx, gen: a.slots[idx].gen}
	}

	a.slots = append(a.slots, slot{gen: 1, char: c})
	return Ref{index: uint32(len(a.slots) - 1), gen: 1}
}

// Remove deletes the character behind r. Returns false when r is already
// stale.
func (a *Arena) Remove(r Ref) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.liveLocked(r) {
		return false
	}
	a.slots[r.index].char = nil
	a.slots[r.index].gen++ // invalidate outstanding refs immediately
	a.free = append(a.free, r.index)
	return true
}

// Resolve returns the character behind r, or nil once the slot was
// recycled or the character removed.
func (a *Arena) Resolve(r Ref) *model.Character {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.liveLocked(r) {
		return nil
	}
	return a.slots[r.index].char
}

// Characters returns all live characters (unordered snapshot).
func (a *Arena) Characters() []*model.Character {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*model.Character, 0, len(a.slots))
	for _, s := range a.slots {
		if s.char != nil {
			out = append(out, s.char)
		}
	}
	return out
}

// Len returns the number of live characters.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := 0
	for _, s := range a.slots {
		if s.char != nil {
			n++
		}
	}
	return n
}

func (a *Arena) liveLocked(r Ref) bool {
	return r.gen != 0 &&
		int(r.index) < len(a.slots) &&
		a.slots[r.index].gen == r.gen &&
		a.slots[r.index].char != nil
}
