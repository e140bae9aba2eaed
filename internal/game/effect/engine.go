package effect

import (
	"log/slog"

	"github.com/galeforge/tdrpg/internal/game/attribute"
)

// Target is the receiving side of one application: a character's attribute
// store and active effect set.
type Target struct {
	ObjectID uint32
	Store    *attribute.Store
	Active   *ActiveSet
}

// Engine executes one (source, target, definition, level) application at a
// time. It decides nothing about trigger policy; callers own when to apply
// and when to remove.
type Engine struct{}

// NewEngine creates the application engine.
func NewEngine() *Engine { return &Engine{} }

// Apply builds the application context, evaluates magnitudes and performs
// the write.
//
// Instant definitions execute against base values immediately and return
// an invalid handle ("already finished"). HasDuration and Infinite
// definitions register with the target's active set and return a fresh
// handle for later removal.
//
// Misconfigured applications — nil definition, negative level, or a
// magnitude referencing an attribute the target lacks — log a warning and
// leave the target untouched. The second return value reports whether the
// application took effect.
func (e *Engine) Apply(source *Target, target Target, def *Definition, level float64) (Handle, bool) {
	if def == nil {
		slog.Warn("apply with nil effect definition", "target", target.ObjectID)
		return 0, false
	}
	if target.Store == nil || target.Active == nil {
		slog.Warn("apply to incomplete target", "effect", def.ID)
		return 0, false
	}
	if level < 0 {
		slog.Warn("rejecting effect with negative level",
			"effect", def.ID, "level", level, "target", target.ObjectID)
		return 0, false
	}
	for _, m := range def.Modifiers {
		if !target.Store.Has(m.Attribute) {
			slog.Warn("target lacks attribute referenced by effect",
				"effect", def.ID, "attribute", m.Attribute, "target", target.ObjectID)
			return 0, false
		}
	}

	ctx := Context{
		TargetID: target.ObjectID,
		Level:    level,
		Target:   target.Store,
	}
	if source != nil {
		ctx.SourceID = source.ObjectID
		ctx.Source = source.Store
	}

	values := make([]modValue, len(def.Modifiers))
	for i, m := range def.Modifiers {
		values[i] = modValue{attr: m.Attribute, op: m.Op, value: m.Magnitude(ctx)}
	}

	if def.Class == ClassInstant {
		target.Active.ExecuteBase(values)
		slog.Debug("instant effect executed",
			"effect", def.ID, "level", level, "target", target.ObjectID)
		return 0, true
	}

	h := target.Active.add(def, ctx, values)
	slog.Debug("effect applied",
		"effect", def.ID, "class", def.Class, "level", level,
		"target", target.ObjectID, "handle", uint64(h))
	return h, true
}
