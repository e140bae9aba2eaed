// Package attribute implements per-character named numeric attributes with
// persisted base and derived current values, resource↔capacity pairing and
// a clamp/round pipeline that keeps every write path inside its valid range.
package attribute

import "sync"

// ID is an interned attribute identifier. The zero value is invalid.
// IDs are process-wide, assigned at startup by the data loaders, and are
// never recycled; they are passed by value everywhere instead of strings.
type ID uint32

// Invalid is returned by Lookup for names that were never interned.
const Invalid ID = 0

var interner = struct {
	mu     sync.RWMutex
	byName map[string]ID
	names  []string
}{
	byName: make(map[string]ID),
	names:  []string{""}, // index 0 reserved for Invalid
}

// Intern returns the ID for name, registering the name on first use.
func Intern(name string) ID {
	interner.mu.RLock()
	id, ok := interner.byName[name]
	interner.mu.RUnlock()
	if ok {
		return id
	}

	interner.mu.Lock()
	defer interner.mu.Unlock()
	if id, ok := interner.byName[name]; ok {
		return id
	}
	id = ID(len(interner.names))
	interner.names = append(interner.names, name)
	interner.byName[name] = id
	return id
}

// Lookup returns the ID for name, or Invalid if it was never interned.
func Lookup(name string) ID {
	interner.mu.RLock()
	defer interner.mu.RUnlock()
	return interner.byName[name]
}

// Name returns the interned name for id, or "" for Invalid.
func (id ID) Name() string {
	interner.mu.RLock()
	defer interner.mu.RUnlock()
	if int(id) >= len(interner.names) {
		return ""
	}
	return interner.names[id]
}

// String implements fmt.Stringer so IDs log as their names.
func (id ID) String() string { return id.Name() }
