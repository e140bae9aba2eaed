package data

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/galeforge/tdrpg/internal/game/attribute"
	"github.com/galeforge/tdrpg/internal/game/effect"
)

// EffectTable holds the loaded, shared effect definitions.
type EffectTable struct {
	byID map[effect.ID]*effect.Definition
}

// Get returns the definition for id, or nil when unknown.
func (t *EffectTable) Get(id effect.ID) *effect.Definition {
	return t.byID[id]
}

// GetByName returns the definition for the authored name, or nil.
func (t *EffectTable) GetByName(name string) *effect.Definition {
	return t.byID[effect.LookupID(name)]
}

// Len returns the number of loaded definitions.
func (t *EffectTable) Len() int { return len(t.byID) }

type effectsYAML struct {
	Effects []struct {
		ID          string  `yaml:"id"`
		Duration    string  `yaml:"duration"` // instant | duration | infinite
		DurationSec float64 `yaml:"duration_seconds"`
		PeriodMs    int     `yaml:"period_ms"`
		Modifiers   []struct {
			Attribute string `yaml:"attribute"`
			Op        string `yaml:"op"` // add (default) | mul

			// Magnitude kinds, exactly one of:
			Value         *float64 `yaml:"value"`          // flat
			PerLevel      *float64 `yaml:"per_level"`      // value + per_level×level
			FromAttribute string   `yaml:"from_attribute"` // attribute-based
			Coefficient   float64  `yaml:"coefficient"`
			PreAdd        float64  `yaml:"pre_add"`
		} `yaml:"modifiers"`
	} `yaml:"effects"`
}

// LoadEffectTable reads effect definitions from path. Every referenced
// attribute must already be interned by the attribute catalog; unknown
// names are an error so broken references surface at startup, not at
// apply time.
func LoadEffectTable(path string) (*EffectTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading effect table: %w", err)
	}

	var doc effectsYAML
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing effect table %s: %w", path, err)
	}

	table := &EffectTable{byID: make(map[effect.ID]*effect.Definition, len(doc.Effects))}
	for _, e := range doc.Effects {
		if e.ID == "" {
			return nil, fmt.Errorf("effect table %s: effect with empty id", path)
		}
		id := effect.InternID(e.ID)
		if table.byID[id] != nil {
			return nil, fmt.Errorf("effect table %s: duplicate effect %q", path, e.ID)
		}

		def := &effect.Definition{
			ID:     id,
			Period: time.Duration(e.PeriodMs) * time.Millisecond,
		}
		switch e.Duration {
		case "instant", "":
			def.Class = effect.ClassInstant
		case "duration":
			def.Class = effect.ClassHasDuration
			def.Duration = time.Duration(e.DurationSec * float64(time.Second))
			if def.Duration <= 0 {
				return nil, fmt.Errorf("effect table %s: effect %q has duration class without duration_seconds", path, e.ID)
			}
		case "infinite":
			def.Class = effect.ClassInfinite
		default:
			return nil, fmt.Errorf("effect table %s: effect %q has unknown duration class %q", path, e.ID, e.Duration)
		}

		for _, m := range e.Modifiers {
			attrID := attribute.Lookup(m.Attribute)
			if attrID == attribute.Invalid {
				return nil, fmt.Errorf("effect table %s: effect %q references unknown attribute %q", path, e.ID, m.Attribute)
			}

			var op effect.Op
			switch m.Op {
			case "add", "":
				op = effect.OpAdd
			case "mul":
				op = effect.OpMul
			default:
				return nil, fmt.Errorf("effect table %s: effect %q has unknown op %q", path, e.ID, m.Op)
			}

			var mag effect.Magnitude
			switch {
			case m.FromAttribute != "":
				srcID := attribute.Lookup(m.FromAttribute)
				if srcID == attribute.Invalid {
					return nil, fmt.Errorf("effect table %s: effect %q captures unknown attribute %q", path, e.ID, m.FromAttribute)
				}
				mag = effect.AttributeBased(srcID, m.Coefficient, m.PreAdd)
			case m.PerLevel != nil:
				base := 0.0
				if m.Value != nil {
					base = *m.Value
				}
				mag = effect.PerLevel(base, *m.PerLevel)
			case m.Value != nil:
				mag = effect.Flat(*m.Value)
			default:
				return nil, fmt.Errorf("effect table %s: effect %q modifier on %q has no magnitude", path, e.ID, m.Attribute)
			}

			def.Modifiers = append(def.Modifiers, effect.Modifier{
				Attribute: attrID,
				Op:        op,
				Magnitude: mag,
			})
		}
		if len(def.Modifiers) == 0 {
			return nil, fmt.Errorf("effect table %s: effect %q has no modifiers", path, e.ID)
		}

		table.byID[id] = def
	}

	slog.Info("loaded effect table", "effects", table.Len())
	return table, nil
}
