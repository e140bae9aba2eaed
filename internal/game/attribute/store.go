package attribute

import (
	"log/slog"
	"sync"
)

// Listener receives every committed attribute write. Writes are never
// batched or deduplicated: a re-clamp that rewrites the same value still
// fires, matching the replication contract (observers must see corrections
// even when numerically a no-op on their side).
type Listener func(id ID, value float64)

type attrData struct {
	base     float64
	current  float64
	decimals int
}

// Store owns the attribute values for one character.
//
// Every mutation routes through one of three interception points:
//
//   - before-current-write (SetCurrent): clamps to [0, capacity.current]
//     for registered resources, then rounds. The clamp is visible-only —
//     it does not rewrite the additive modifiers that produced an
//     out-of-range value, so a later capacity increase can resurface a
//     previously hidden excess.
//   - before-base-write (SetBase): clamps base to [0, capacity.current]
//     for resources, then rounds, so no permanent buffer above capacity
//     can persist.
//   - after-effect-execute (PostExecute): the authoritative step — when a
//     capacity changed, the paired resource is re-clamped and written back
//     through SetCurrent so the correction itself is observable.
//
// None of the three points can fail; invalid input is silently corrected.
//
// Thread-safe: value state is guarded by sync.RWMutex. Listeners are
// invoked outside the lock, in subscription order.
type Store struct {
	mu        sync.RWMutex
	attrs     map[ID]*attrData
	capacity  map[ID]ID // resource → capacity
	resource  map[ID]ID // capacity → resource
	listeners []Listener
}

// NewStore creates an empty attribute store.
func NewStore() *Store {
	return &Store{
		attrs:    make(map[ID]*attrData),
		capacity: make(map[ID]ID),
		resource: make(map[ID]ID),
	}
}

// RegisterAttribute adds an attribute with its designer default and
// rounding policy (decimals ≤ 0 means whole numbers). Re-registering an
// existing id overwrites its value. Current starts equal to base.
func (s *Store) RegisterAttribute(id ID, base float64, decimals int) {
	if id == Invalid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rounded := RoundToDecimals(base, decimals)
	s.attrs[id] = &attrData{base: rounded, current: rounded, decimals: decimals}
}

// RegisterPair declares resource as clamped to [0, capacity]. Idempotent
// for a given pair; a no-op (with a warning) if either id is unregistered.
// Pairs must be registered before any effect application that uses them.
func (s *Store) RegisterPair(resource, capacity ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attrs[resource] == nil || s.attrs[capacity] == nil {
		slog.Warn("ignoring pair with unregistered attribute",
			"resource", resource, "capacity", capacity)
		return
	}
	s.capacity[resource] = capacity
	s.resource[capacity] = resource
}

// CapacityFor returns the capacity attribute paired with resource.
func (s *Store) CapacityFor(resource ID) (ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cap, ok := s.capacity[resource]
	return cap, ok
}

// ResourceFor returns the resource attribute paired with capacity.
func (s *Store) ResourceFor(capacity ID) (ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resource[capacity]
	return res, ok
}

// Has reports whether id is registered on this store.
func (s *Store) Has(id ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attrs[id] != nil
}

// IDs returns all registered attribute ids (unordered).
func (s *Store) IDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ID, 0, len(s.attrs))
	for id := range s.attrs {
		ids = append(ids, id)
	}
	return ids
}

// Current returns the derived current value, or 0.0 for an unregistered id
// so UI-facing queries stay total.
func (s *Store) Current(id ID) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a := s.attrs[id]; a != nil {
		return a.current
	}
	return 0
}

// Base returns the persisted base value, or 0.0 for an unregistered id.
func (s *Store) Base(id ID) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a := s.attrs[id]; a != nil {
		return a.base
	}
	return 0
}

// Subscribe registers a change listener. Listeners are invoked for every
// committed write, in registration order, at least once per write.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// SetCurrent writes the derived current value through the
// before-current-write interception point, then commits and notifies.
// Unregistered ids are ignored.
func (s *Store) SetCurrent(id ID, value float64) {
	s.mu.Lock()
	a := s.attrs[id]
	if a == nil {
		s.mu.Unlock()
		return
	}
	if cap, ok := s.capacity[id]; ok {
		value = clamp(value, 0, s.attrs[cap].current)
	}
	value = RoundToDecimals(value, a.decimals)
	a.current = value
	listeners := s.listeners
	s.mu.Unlock()

	for _, l := range listeners {
		l(id, value)
	}
}

// SetBase writes the persisted base value through the before-base-write
// interception point, then commits and notifies. Used for permanent
// (instant and periodic) changes only; duration-bound modifiers go through
// SetCurrent instead.
func (s *Store) SetBase(id ID, value float64) {
	s.mu.Lock()
	a := s.attrs[id]
	if a == nil {
		s.mu.Unlock()
		return
	}
	if cap, ok := s.capacity[id]; ok {
		value = clamp(value, 0, s.attrs[cap].current)
	}
	value = RoundToDecimals(value, a.decimals)
	a.base = value
	listeners := s.listeners
	s.mu.Unlock()

	for _, l := range listeners {
		l(id, value)
	}
}

// PostExecute is the after-effect-execute interception point, invoked once
// a permanent write to changed has fully committed. If changed is a
// capacity attribute, the paired resource is re-clamped to the new range
// and written back through SetCurrent unconditionally — the write-back
// fires a notification even when the value did not move, because the
// correction itself must replicate.
func (s *Store) PostExecute(changed ID) {
	s.mu.RLock()
	res, ok := s.resource[changed]
	var cur float64
	if ok {
		cur = s.attrs[res].current
	}
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.SetCurrent(res, cur)
}
