package effect

import (
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/galeforge/tdrpg/internal/game/attribute"
)

type modValue struct {
	attr  attribute.ID
	op    Op
	value float64
}

// activeApplication is one live non-instant application. Magnitudes are
// evaluated once at apply time; the captured values are what periodic
// executions and current-value aggregation replay.
type activeApplication struct {
	handle      Handle
	def         *Definition
	ctx         Context
	stacks      int
	remaining   time.Duration // ClassHasDuration only
	untilPeriod time.Duration
	values      []modValue
}

// ActiveSet tracks the non-instant effects currently influencing one
// character and keeps the store's current values in sync with them.
//
// current(attr) = (base(attr) + Σ additive) × Π multiplicative, written
// through the store's before-current-write clamp on every change. Periodic
// applications do not appear in the aggregation; they re-execute their
// modifiers against base instead.
//
// Thread-safe; the simulation drives Tick from a single goroutine but
// trigger actors and the engine may touch the set from host callbacks.
type ActiveSet struct {
	mu       sync.Mutex
	store    *attribute.Store
	apps     []*activeApplication // authored order, oldest first
	byHandle map[Handle]*activeApplication
}

// NewActiveSet creates an empty set writing through store.
func NewActiveSet(store *attribute.Store) *ActiveSet {
	return &ActiveSet{
		store:    store,
		byHandle: make(map[Handle]*activeApplication),
	}
}

// add registers a non-instant application and returns its fresh handle.
// Each application gets its own handle, even for the same definition.
func (s *ActiveSet) add(def *Definition, ctx Context, values []modValue) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	app := &activeApplication{
		handle:      nextHandle(),
		def:         def,
		ctx:         ctx,
		stacks:      1,
		remaining:   def.Duration,
		untilPeriod: def.Period,
		values:      values,
	}
	s.apps = append(s.apps, app)
	s.byHandle[app.handle] = app
	s.recomputeLocked(affectedAttrs(values))
	return app.handle
}

// Contains reports whether h still backs an active application.
func (s *ActiveSet) Contains(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byHandle[h] != nil
}

// Count returns the number of active applications.
func (s *ActiveSet) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.apps)
}

// Remove takes stacks off the application behind h (-1 removes all) and
// returns the number actually removed. Stale handles return 0; removing
// an already-removed handle is a harmless no-op.
func (s *ActiveSet) Remove(h Handle, stacks int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	app := s.byHandle[h]
	if app == nil {
		return 0
	}

	removed := stacks
	if removed < 0 || removed > app.stacks {
		removed = app.stacks
	}
	app.stacks -= removed
	if app.stacks <= 0 {
		s.dropLocked(app)
	}
	if removed > 0 {
		s.recomputeLocked(affectedAttrs(app.values))
	}
	return removed
}

// Tick advances all applications by delta: runs due periodic executions
// against base values and expires finished durations. Natural expiry does
// not notify handle holders; they detect staleness at the next removal.
func (s *ActiveSet) Tick(delta time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*activeApplication
	for _, app := range s.apps {
		if app.def.Periodic() {
			app.untilPeriod -= delta
			for app.untilPeriod <= 0 {
				s.executeBaseLocked(app.values)
				app.untilPeriod += app.def.Period
			}
		}
		if app.def.Class == ClassHasDuration {
			app.remaining -= delta
			if app.remaining <= 0 {
				expired = append(expired, app)
			}
		}
	}

	for _, app := range expired {
		s.dropLocked(app)
		s.recomputeLocked(affectedAttrs(app.values))
		slog.Debug("effect expired", "effect", app.def.ID, "target", app.ctx.TargetID)
	}
}

// ExecuteBase applies captured modifier values permanently: each write
// goes through before-base-write, refreshes the derived current value and
// runs the authoritative after-effect-execute step.
func (s *ActiveSet) ExecuteBase(values []modValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executeBaseLocked(values)
}

func (s *ActiveSet) executeBaseLocked(values []modValue) {
	for _, v := range values {
		base := s.store.Base(v.attr)
		switch v.op {
		case OpAdd:
			base += v.value
		case OpMul:
			base *= v.value
		}
		s.store.SetBase(v.attr, base)
		s.recomputeLocked([]attribute.ID{v.attr})
		s.store.PostExecute(v.attr)
	}
}

// dropLocked removes app from the ordered slice and the handle index.
func (s *ActiveSet) dropLocked(app *activeApplication) {
	delete(s.byHandle, app.handle)
	for i, a := range s.apps {
		if a == app {
			s.apps = append(s.apps[:i], s.apps[i+1:]...)
			break
		}
	}
}

// recomputeLocked rewrites current values for the given attributes from
// base plus all active contributions. Periodic applications are excluded:
// their modifiers execute against base on every interval and contribute
// nothing ongoing to the derived current value.
//
// When a recomputed attribute is a capacity, its paired resource is
// re-derived too: the new range must hold after every mutation, and a
// capacity increase lets contributions hidden by an earlier clamp
// resurface (the clamp is visible-only and never rewrites modifiers).
func (s *ActiveSet) recomputeLocked(attrs []attribute.ID) {
	for i := 0; i < len(attrs); i++ {
		attr := attrs[i]
		add := 0.0
		mul := 1.0
		for _, app := range s.apps {
			if app.def.Periodic() {
				continue
			}
			for _, v := range app.values {
				if v.attr != attr {
					continue
				}
				switch v.op {
				case OpAdd:
					add += v.value * float64(app.stacks)
				case OpMul:
					mul *= math.Pow(v.value, float64(app.stacks))
				}
			}
		}
		s.store.SetCurrent(attr, (s.store.Base(attr)+add)*mul)

		if res, ok := s.store.ResourceFor(attr); ok && !slices.Contains(attrs, res) {
			attrs = append(attrs, res)
		}
	}
}

// affectedAttrs returns the distinct attributes touched by values.
func affectedAttrs(values []modValue) []attribute.ID {
	attrs := make([]attribute.ID, 0, len(values))
	for _, v := range values {
		seen := false
		for _, a := range attrs {
			if a == v.attr {
				seen = true
				break
			}
		}
		if !seen {
			attrs = append(attrs, v.attr)
		}
	}
	return attrs
}
