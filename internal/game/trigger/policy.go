// Package trigger maps spatial enter/exit events onto effect applications
// and removals according to authored policy rows. The spatial detection
// itself (overlap volumes) lives outside this core; hosts call OnEnter and
// OnExit with an arena Ref for the character that crossed the boundary.
package trigger

import (
	"fmt"

	"github.com/galeforge/tdrpg/internal/game/effect"
)

// Policy decides on which event an effect row applies or removes.
type Policy uint8

const (
	Never Policy = iota
	OnEnter
	OnExit
)

func (p Policy) String() string {
	switch p {
	case OnEnter:
		return "on_enter"
	case OnExit:
		return "on_exit"
	}
	return "never"
}

// ParsePolicy parses the authored form used in the trigger tables.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "on_enter":
		return OnEnter, nil
	case "on_exit":
		return OnExit, nil
	case "never", "":
		return Never, nil
	}
	return Never, fmt.Errorf("unknown trigger policy %q", s)
}

// Row is one authored trigger configuration entry. Immutable at runtime;
// an actor holds an ordered list of rows.
type Row struct {
	Effect *effect.Definition
	Apply  Policy
	Remove Policy
	Level  float64

	// StacksToRemove for a matched handle at removal time; values ≤ 0 are
	// normalized to -1 (remove all stacks).
	StacksToRemove int

	DestroySelfOnApply   bool
	DestroySelfOnRemoval bool
}
