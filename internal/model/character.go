// Package model holds the runtime entities of the simulation.
package model

import (
	"github.com/galeforge/tdrpg/internal/game/attribute"
	"github.com/galeforge/tdrpg/internal/game/effect"
)

// Character is a living entity: a set of named attributes plus the active
// effects influencing them. The character owns its attribute store
// exclusively; cross-character effect application always goes through the
// target's own store API.
type Character struct {
	objectID uint32
	name     string
	level    int32

	attrs   *attribute.Store
	effects *effect.ActiveSet
}

// NewCharacter creates a character with an empty attribute store.
// Attributes and pairs come from the designer catalog afterwards.
func NewCharacter(objectID uint32, name string, level int32) *Character {
	st := attribute.NewStore()
	return &Character{
		objectID: objectID,
		name:     name,
		level:    level,
		attrs:    st,
		effects:  effect.NewActiveSet(st),
	}
}

// ObjectID returns the world-unique object id.
func (c *Character) ObjectID() uint32 { return c.objectID }

// Name returns the character name.
func (c *Character) Name() string { return c.name }

// Level returns the character level.
func (c *Character) Level() int32 { return c.level }

// Attributes returns the character's attribute store.
func (c *Character) Attributes() *attribute.Store { return c.attrs }

// Effects returns the character's active effect set.
func (c *Character) Effects() *effect.ActiveSet { return c.effects }

// EffectTarget adapts the character for the effect application engine.
func (c *Character) EffectTarget() effect.Target {
	return effect.Target{ObjectID: c.objectID, Store: c.attrs, Active: c.effects}
}

// Current returns the current value of the named attribute, 0.0 when the
// character does not have it.
func (c *Character) Current(name string) float64 {
	return c.attrs.Current(attribute.Lookup(name))
}

// Base returns the persisted base value of the named attribute.
func (c *Character) Base(name string) float64 {
	return c.attrs.Base(attribute.Lookup(name))
}
