package trigger

import (
	"log/slog"
	"slices"

	"github.com/galeforge/tdrpg/internal/game/effect"
	"github.com/galeforge/tdrpg/internal/world"
)

// tracked is the per-handle removal metadata recorded at application time.
// Stacks and the destroy intent are captured per handle, not re-read from
// the row at removal time.
type tracked struct {
	target           world.Ref
	effectID         effect.ID
	stacks           int
	destroyOnRemoval bool
}

// Actor is one trigger-driven effect source: an area, a pickup, a shrine.
//
// The actor owns the registry of handles it created — no other actor reads
// or mutates it — so it removes exactly the applications it is responsible
// for, even when the same target carries modifiers from other sources.
type Actor struct {
	name   string
	rows   []Row
	engine *effect.Engine
	arena  *world.Arena

	tracked   map[effect.Handle]tracked
	destroyed bool
	onDestroy func() // host hook, fired at most once
}

// NewActor builds a trigger actor from its authored rows. The rows are
// copied; authored configuration stays immutable even when shared between
// actors. Rows referencing the same Infinite effect identity cannot be
// told apart at removal time; that configuration is warned about here and
// behaves as first-match.
func NewActor(name string, rows []Row, engine *effect.Engine, arena *world.Arena, onDestroy func()) *Actor {
	rows = slices.Clone(rows)
	seen := make(map[effect.ID]bool)
	for i := range rows {
		if rows[i].StacksToRemove <= 0 {
			rows[i].StacksToRemove = -1
		}
		def := rows[i].Effect
		if def == nil || def.Class != effect.ClassInfinite {
			continue
		}
		if seen[def.ID] {
			slog.Warn("duplicate infinite effect identity across trigger rows; removal cannot disambiguate",
				"actor", name, "effect", def.ID)
		}
		seen[def.ID] = true
	}
	return &Actor{
		name:      name,
		rows:      rows,
		engine:    engine,
		arena:     arena,
		tracked:   make(map[effect.Handle]tracked),
		onDestroy: onDestroy,
	}
}

// Name returns the authored actor name.
func (a *Actor) Name() string { return a.name }

// Destroyed reports whether the actor has signalled its own destruction.
// A destroyed actor ignores further events.
func (a *Actor) Destroyed() bool { return a.destroyed }

// TrackedCount returns the number of live tracked handles.
func (a *Actor) TrackedCount() int { return len(a.tracked) }

// OnEnter handles a spatial enter event for target: first every row with
// Apply=OnEnter, then every row with Remove=OnEnter. Row order is authored
// order; apply-then-remove within one event is fixed.
func (a *Actor) OnEnter(target world.Ref) {
	if a.destroyed {
		return
	}
	a.applyAll(OnEnter, target)
	a.removeAll(OnEnter, target)
}

// OnExit handles a spatial exit event for target, symmetrically to
// OnEnter. Removal on exit is the common case for area effects.
func (a *Actor) OnExit(target world.Ref) {
	if a.destroyed {
		return
	}
	a.applyAll(OnExit, target)
	a.removeAll(OnExit, target)
}

func (a *Actor) applyAll(policy Policy, target world.Ref) {
	for i := range a.rows {
		// DestroySelfOnApply forecloses the remaining rows of the batch;
		// documented behavior, not a bug.
		if a.destroyed {
			return
		}
		if a.rows[i].Apply == policy {
			a.applyRow(&a.rows[i], target)
		}
	}
}

func (a *Actor) removeAll(policy Policy, target world.Ref) {
	for i := range a.rows {
		if a.rows[i].Remove == policy {
			a.removeRow(&a.rows[i], target)
		}
	}
}

func (a *Actor) applyRow(row *Row, target world.Ref) {
	c := a.arena.Resolve(target)
	if c == nil {
		return
	}

	h, applied := a.engine.Apply(nil, c.EffectTarget(), row.Effect, row.Level)
	if !applied {
		return
	}

	// Track non-instant applications that a removal policy will come back
	// for. "Do not remove" rows are fire-and-forget.
	if h.Valid() && row.Remove != Never {
		a.tracked[h] = tracked{
			target:           target,
			effectID:         row.Effect.ID,
			stacks:           row.StacksToRemove,
			destroyOnRemoval: row.DestroySelfOnRemoval,
		}
	}

	if row.DestroySelfOnApply {
		a.destroy()
	}
}

// removeRow reverses the applications this actor made of row's effect on
// the resolved target:
//
//  1. collect tracked handles whose Ref still resolves to the event's
//     target and whose effect identity matches,
//  2. remove the recorded stack count from each (−1 = all),
//  3. purge every collected handle whose backing application is gone —
//     covers both successful removal and pre-existing staleness,
//  4. signal actor destruction at most once if any removing handle carried
//     the destroy intent and stacks actually came off.
func (a *Actor) removeRow(row *Row, target world.Ref) {
	c := a.arena.Resolve(target)
	if c == nil {
		a.purgeStale()
		return
	}

	var handles []effect.Handle
	for h, t := range a.tracked {
		resolved := a.arena.Resolve(t.target)
		if resolved == nil || resolved != c {
			// Stale ref, or a recycled slot now holding someone else.
			continue
		}
		if t.effectID == row.Effect.ID {
			handles = append(handles, h)
		}
	}
	// Handles are monotonic, so ascending order is application order. When
	// several rows share one effect identity this makes the pick
	// deterministic: oldest application first.
	slices.Sort(handles)

	removedAny := false
	wantDestroy := false
	for _, h := range handles {
		t := a.tracked[h]
		removed := c.Effects().Remove(h, t.stacks)
		if removed != 0 {
			removedAny = true
			if t.destroyOnRemoval {
				wantDestroy = true
			}
			// A finite stack request is satisfied by the first handle that
			// gave up stacks; -1 keeps sweeping every matched handle.
			if t.stacks > 0 {
				break
			}
		}
	}

	for _, h := range handles {
		if !c.Effects().Contains(h) {
			delete(a.tracked, h)
		}
	}

	if removedAny && wantDestroy {
		a.destroy()
	}
}

// purgeStale drops tracked entries whose target no longer resolves; their
// applications died with the character.
func (a *Actor) purgeStale() {
	for h, t := range a.tracked {
		if a.arena.Resolve(t.target) == nil {
			delete(a.tracked, h)
		}
	}
}

func (a *Actor) destroy() {
	if a.destroyed {
		return
	}
	a.destroyed = true
	slog.Debug("trigger actor destroyed", "actor", a.name)
	if a.onDestroy != nil {
		a.onDestroy()
	}
}
