package data

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/galeforge/tdrpg/internal/game/trigger"
)

// ActorConfig is one authored trigger actor: a name and its ordered rows.
type ActorConfig struct {
	Name string
	Rows []trigger.Row
}

type triggersYAML struct {
	Actors []struct {
		Name string `yaml:"name"`
		Rows []struct {
			Effect               string  `yaml:"effect"`
			Apply                string  `yaml:"apply"`
			Remove               string  `yaml:"remove"`
			Level                float64 `yaml:"level"`
			StacksToRemove       int     `yaml:"stacks_to_remove"`
			DestroySelfOnApply   bool    `yaml:"destroy_self_on_apply"`
			DestroySelfOnRemoval bool    `yaml:"destroy_self_on_removal"`
		} `yaml:"rows"`
	} `yaml:"actors"`
}

// LoadTriggerTable reads trigger actor configurations from path, resolving
// effect references against the already-loaded effect table.
func LoadTriggerTable(path string, effects *EffectTable) ([]ActorConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trigger table: %w", err)
	}

	var doc triggersYAML
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing trigger table %s: %w", path, err)
	}

	var actors []ActorConfig
	for _, a := range doc.Actors {
		if a.Name == "" {
			return nil, fmt.Errorf("trigger table %s: actor with empty name", path)
		}

		cfg := ActorConfig{Name: a.Name}
		for i, r := range a.Rows {
			def := effects.GetByName(r.Effect)
			if def == nil {
				return nil, fmt.Errorf("trigger table %s: actor %q row %d references unknown effect %q",
					path, a.Name, i, r.Effect)
			}
			apply, err := trigger.ParsePolicy(r.Apply)
			if err != nil {
				return nil, fmt.Errorf("trigger table %s: actor %q row %d: %w", path, a.Name, i, err)
			}
			remove, err := trigger.ParsePolicy(r.Remove)
			if err != nil {
				return nil, fmt.Errorf("trigger table %s: actor %q row %d: %w", path, a.Name, i, err)
			}
			cfg.Rows = append(cfg.Rows, trigger.Row{
				Effect:               def,
				Apply:                apply,
				Remove:               remove,
				Level:                r.Level,
				StacksToRemove:       r.StacksToRemove,
				DestroySelfOnApply:   r.DestroySelfOnApply,
				DestroySelfOnRemoval: r.DestroySelfOnRemoval,
			})
		}
		actors = append(actors, cfg)
	}

	slog.Info("loaded trigger table", "actors", len(actors))
	return actors, nil
}
