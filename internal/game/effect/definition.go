// Package effect implements effect definitions, magnitude evaluation, the
// application engine and per-character tracking of active effects.
//
// An effect definition is immutable, shared data: many applications
// reference one definition. Instant definitions mutate persisted base
// values once; HasDuration and Infinite definitions contribute to derived
// current values for as long as they stay active and can be reversed
// precisely through the handle returned at application time.
package effect

import (
	"sync"
	"time"

	"github.com/galeforge/tdrpg/internal/game/attribute"
)

// ID is an interned effect identifier. The zero value is invalid.
type ID uint32

// InvalidID is returned by LookupID for names that were never interned.
const InvalidID ID = 0

var interner = struct {
	mu     sync.RWMutex
	byName map[string]ID
	names  []string
}{
	byName: make(map[string]ID),
	names:  []string{""},
}

// InternID returns the ID for name, registering the name on first use.
func InternID(name string) ID {
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

// LookupID returns the ID for name, or InvalidID if it was never interned.
func LookupID(name string) ID {
	interner.mu.RLock()
	defer interner.mu.RUnlock()
	return interner.byName[name]
}

// String implements fmt.Stringer so effect ids log as their names.
func (id ID) String() string {
	interner.mu.RLock()
	defer interner.mu.RUnlock()
	if int(id) >= len(interner.names) {
		return ""
	}
	return interner.names[id]
}

// DurationClass classifies how long an effect outlives its application.
type DurationClass uint8

const (
	// ClassInstant executes once against base values and is finished.
	ClassInstant DurationClass = iota
	// ClassHasDuration contributes to current values until its duration
	// elapses or it is removed.
	ClassHasDuration
	// ClassInfinite contributes to current values until removed.
	ClassInfinite
)

func (c DurationClass) String() string {
	switch c {
	case ClassInstant:
		return "instant"
	case ClassHasDuration:
		return "duration"
	case ClassInfinite:
		return "infinite"
	}
	return "unknown"
}

// Op is how a modifier combines with an attribute value.
type Op uint8

const (
	OpAdd Op = iota
	OpMul
)

func (o Op) String() string {
	if o == OpMul {
		return "mul"
	}
	return "add"
}

// Modifier targets one attribute with one magnitude source.
type Modifier struct {
	Attribute attribute.ID
	Op        Op
	Magnitude Magnitude
}

// Definition is an immutable effect descriptor.
//
// Period is orthogonal to Class: a periodic Infinite effect re-executes its
// modifiers against base values every Period while it stays active.
type Definition struct {
	ID        ID
	Class     DurationClass
	Duration  time.Duration // only meaningful for ClassHasDuration
	Period    time.Duration // > 0 marks the effect periodic
	Modifiers []Modifier
}

// Periodic reports whether the effect re-executes on an interval.
func (d *Definition) Periodic() bool { return d.Period > 0 }
