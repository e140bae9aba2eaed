// Package data loads the designer-authored YAML tables: the attribute
// catalog with resource↔capacity pairs, effect definitions and trigger
// actor configurations. Tables are loaded once at startup; identities are
// interned and definitions shared from then on.
package data

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/galeforge/tdrpg/internal/game/attribute"
)

// AttributeDefault is one catalog row applied to every new character.
type AttributeDefault struct {
	ID       attribute.ID
	Default  float64
	Decimals int
}

// AttributePair declares a resource clamped to [0, capacity].
type AttributePair struct {
	Resource attribute.ID
	Capacity attribute.ID
}

// AttributeTable is the loaded attribute catalog.
type AttributeTable struct {
	Defaults []AttributeDefault
	Pairs    []AttributePair
}

type attributeCatalogYAML struct {
	Attributes []struct {
		Name     string  `yaml:"name"`
		Default  float64 `yaml:"default"`
		Decimals int     `yaml:"decimals"`
	} `yaml:"attributes"`
	Pairs []struct {
		Resource string `yaml:"resource"`
		Capacity string `yaml:"capacity"`
	} `yaml:"pairs"`
}

// LoadAttributeTable reads the attribute catalog from path, interning
// every attribute name. Pairs referencing unknown attributes are an error:
// the catalog must be self-contained.
func LoadAttributeTable(path string) (*AttributeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attribute catalog: %w", err)
	}

	var doc attributeCatalogYAML
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing attribute catalog %s: %w", path, err)
	}

	table := &AttributeTable{}
	known := make(map[string]bool, len(doc.Attributes))
	for _, a := range doc.Attributes {
		if a.Name == "" {
			return nil, fmt.Errorf("attribute catalog %s: attribute with empty name", path)
		}
		if known[a.Name] {
			return nil, fmt.Errorf("attribute catalog %s: duplicate attribute %q", path, a.Name)
		}
		known[a.Name] = true
		table.Defaults = append(table.Defaults, AttributeDefault{
			ID:       attribute.Intern(a.Name),
			Default:  a.Default,
			Decimals: a.Decimals,
		})
	}

	for _, p := range doc.Pairs {
		if !known[p.Resource] || !known[p.Capacity] {
			return nil, fmt.Errorf("attribute catalog %s: pair (%s, %s) references unknown attribute",
				path, p.Resource, p.Capacity)
		}
		table.Pairs = append(table.Pairs, AttributePair{
			Resource: attribute.Intern(p.Resource),
			Capacity: attribute.Intern(p.Capacity),
		})
	}

	slog.Info("loaded attribute catalog",
		"attributes", len(table.Defaults), "pairs", len(table.Pairs))
	return table, nil
}

// Apply registers the catalog's defaults and pairs on a fresh store.
// Pairs go in after all attributes so registration order cannot matter.
func (t *AttributeTable) Apply(store *attribute.Store) {
	for _, d := range t.Defaults {
		store.RegisterAttribute(d.ID, d.Default, d.Decimals)
	}
	for _, p := range t.Pairs {
		store.RegisterPair(p.Resource, p.Capacity)
	}
}

// ApplyWithBases registers the catalog on a fresh store with persisted
// base values ({name: base}) overriding the defaults; attributes absent
// from bases keep their catalog default. Resources are rewritten through
// their clamp afterwards so the in-range invariant holds from the start.
func (t *AttributeTable) ApplyWithBases(store *attribute.Store, bases map[string]float64) {
	for _, d := range t.Defaults {
		base := d.Default
		if v, ok := bases[d.ID.Name()]; ok {
			base = v
		}
		store.RegisterAttribute(d.ID, base, d.Decimals)
	}
	for _, p := range t.Pairs {
		store.RegisterPair(p.Resource, p.Capacity)
		store.SetCurrent(p.Resource, store.Current(p.Resource))
	}
}
