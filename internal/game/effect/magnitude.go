package effect

import "github.com/galeforge/tdrpg/internal/game/attribute"

// Context carries the evaluation inputs for one application: the numeric
// level, object identities and captured attribute stores of both sides.
// Source may be nil when the applier is not a character (area actors).
type Context struct {
	SourceID uint32
	TargetID uint32
	Level    float64
	Source   *attribute.Store
	Target   *attribute.Store
}

// Magnitude supplies a numeric value for one modifier. The engine treats
// it as an opaque function; the helpers below cover the authored kinds.
type Magnitude func(Context) float64

// Flat returns a level-independent magnitude.
func Flat(v float64) Magnitude {
	return func(Context) float64 { return v }
}

// PerLevel returns base + perLevel×level.
func PerLevel(base, perLevel float64) Magnitude {
	return func(ctx Context) float64 { return base + perLevel*ctx.Level }
}

// AttributeBased captures an attribute from the source (or the target when
// the source store is absent) and returns coefficient×(captured + preAdd).
func AttributeBased(id attribute.ID, coefficient, preAdd float64) Magnitude {
	return func(ctx Context) float64 {
		store := ctx.Source
		if store == nil {
			store = ctx.Target
		}
		var captured float64
		if store != nil {
			captured = store.Current(id)
		}
		return coefficient * (captured + preAdd)
	}
}
