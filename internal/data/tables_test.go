package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galeforge/tdrpg/internal/game/attribute"
	"github.com/galeforge/tdrpg/internal/game/effect"
	"github.com/galeforge/tdrpg/internal/game/trigger"
)

func writeTable(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testAttributeCatalog = `
attributes:
  - name: health
    default: 100
  - name: maxHealth
    default: 100
  - name: critChance
    default: 0.05
    decimals: 2
pairs:
  - resource: health
    capacity: maxHealth
`

func TestLoadAttributeTable(t *testing.T) {
	path := writeTable(t, "attributes.yaml", testAttributeCatalog)

	table, err := LoadAttributeTable(path)
	require.NoError(t, err)
	require.Len(t, table.Defaults, 3)
	require.Len(t, table.Pairs, 1)

	store := attribute.NewStore()
	table.Apply(store)

	health := attribute.Lookup("health")
	maxHealth := attribute.Lookup("maxHealth")
	assert.Equal(t, 100.0, store.Current(health))
	if cap, ok := store.CapacityFor(health); assert.True(t, ok) {
		assert.Equal(t, maxHealth, cap)
	}

	// Two decimals survive the write pipeline.
	crit := attribute.Lookup("critChance")
	store.SetCurrent(crit, 0.125)
	assert.Equal(t, 0.13, store.Current(crit))
}

func TestAttributeTable_ApplyWithBases(t *testing.T) {
	path := writeTable(t, "attributes.yaml", testAttributeCatalog)
	table, err := LoadAttributeTable(path)
	require.NoError(t, err)

	// Persisted bases override defaults; missing entries keep the default;
	// a resource persisted above its capacity is pushed back in range.
	store := attribute.NewStore()
	table.ApplyWithBases(store, map[string]float64{
		"health":    180,
		"maxHealth": 120,
	})

	maxHealth := attribute.Lookup("maxHealth")
	assert.Equal(t, 120.0, store.Current(maxHealth))
	health := attribute.Lookup("health")
	assert.LessOrEqual(t, store.Current(health), 120.0)
	assert.Equal(t, 0.05, store.Current(attribute.Lookup("critChance")))

	// Nil bases behave exactly like Apply.
	fresh := attribute.NewStore()
	table.ApplyWithBases(fresh, nil)
	assert.Equal(t, 100.0, fresh.Current(health))
}

func TestLoadAttributeTable_Errors(t *testing.T) {
	for name, content := range map[string]string{
		"duplicate name": `
attributes:
  - name: health
  - name: health
`,
		"empty name": `
attributes:
  - name: ""
`,
		"pair references unknown": `
attributes:
  - name: health
pairs:
  - resource: health
    capacity: maxMana
`,
	} {
		path := writeTable(t, "bad.yaml", content)
		_, err := LoadAttributeTable(path)
		assert.Error(t, err, name)
	}

	_, err := LoadAttributeTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

const testEffectTable = `
effects:
  - id: Potion
    modifiers:
      - attribute: health
        value: 30
  - id: FireDot
    duration: infinite
    period_ms: 1000
    modifiers:
      - attribute: health
        value: -5
  - id: Haste
    duration: duration
    duration_seconds: 8.5
    modifiers:
      - attribute: critChance
        op: mul
        value: 1.5
  - id: ScalingHeal
    modifiers:
      - attribute: health
        value: 10
        per_level: 5
  - id: SpellHeal
    modifiers:
      - attribute: health
        from_attribute: critChance
        coefficient: 200
`

func loadTestEffects(t *testing.T) *EffectTable {
	t.Helper()
	attrPath := writeTable(t, "attributes.yaml", testAttributeCatalog)
	_, err := LoadAttributeTable(attrPath)
	require.NoError(t, err)

	effPath := writeTable(t, "effects.yaml", testEffectTable)
	table, err := LoadEffectTable(effPath)
	require.NoError(t, err)
	return table
}

func TestLoadEffectTable(t *testing.T) {
	table := loadTestEffects(t)
	require.Equal(t, 5, table.Len())

	potion := table.GetByName("Potion")
	require.NotNil(t, potion)
	assert.Equal(t, effect.ClassInstant, potion.Class)
	assert.False(t, potion.Periodic())

	dot := table.GetByName("FireDot")
	require.NotNil(t, dot)
	assert.Equal(t, effect.ClassInfinite, dot.Class)
	assert.Equal(t, time.Second, dot.Period)
	assert.True(t, dot.Periodic())

	haste := table.GetByName("Haste")
	require.NotNil(t, haste)
	assert.Equal(t, effect.ClassHasDuration, haste.Class)
	assert.Equal(t, 8500*time.Millisecond, haste.Duration)
	assert.Equal(t, effect.OpMul, haste.Modifiers[0].Op)

	assert.Nil(t, table.GetByName("NoSuchEffect"))

	// Magnitudes evaluate as authored.
	ctx := effect.Context{Level: 3}
	scaling := table.GetByName("ScalingHeal")
	assert.Equal(t, 25.0, scaling.Modifiers[0].Magnitude(ctx)) // 10 + 5×3
}

func TestLoadEffectTable_Errors(t *testing.T) {
	attrPath := writeTable(t, "attributes.yaml", testAttributeCatalog)
	_, err := LoadAttributeTable(attrPath)
	require.NoError(t, err)

	for name, content := range map[string]string{
		"unknown attribute": `
effects:
  - id: Broken
    modifiers:
      - attribute: never-authored
        value: 1
`,
		"duration class without seconds": `
effects:
  - id: Broken
    duration: duration
    modifiers:
      - attribute: health
        value: 1
`,
		"unknown duration class": `
effects:
  - id: Broken
    duration: forever
    modifiers:
      - attribute: health
        value: 1
`,
		"no magnitude": `
effects:
  - id: Broken
    modifiers:
      - attribute: health
`,
		"no modifiers": `
effects:
  - id: Broken
`,
		"duplicate id": `
effects:
  - id: Twin
    modifiers:
      - attribute: health
        value: 1
  - id: Twin
    modifiers:
      - attribute: health
        value: 1
`,
	} {
		path := writeTable(t, "bad.yaml", content)
		_, err := LoadEffectTable(path)
		assert.Error(t, err, name)
	}
}

func TestLoadTriggerTable(t *testing.T) {
	effects := loadTestEffects(t)

	path := writeTable(t, "triggers.yaml", `
actors:
  - name: PotionPickup
    rows:
      - effect: Potion
        apply: on_enter
        level: 1
        destroy_self_on_apply: true
  - name: FirePit
    rows:
      - effect: FireDot
        apply: on_enter
        remove: on_exit
        level: 1
        stacks_to_remove: -1
`)
	actors, err := LoadTriggerTable(path, effects)
	require.NoError(t, err)
	require.Len(t, actors, 2)

	pickup := actors[0]
	assert.Equal(t, "PotionPickup", pickup.Name)
	require.Len(t, pickup.Rows, 1)
	assert.Equal(t, trigger.OnEnter, pickup.Rows[0].Apply)
	assert.Equal(t, trigger.Never, pickup.Rows[0].Remove)
	assert.True(t, pickup.Rows[0].DestroySelfOnApply)
	assert.Same(t, effects.GetByName("Potion"), pickup.Rows[0].Effect)

	pit := actors[1]
	assert.Equal(t, trigger.OnExit, pit.Rows[0].Remove)
	assert.Equal(t, -1, pit.Rows[0].StacksToRemove)
}

func TestLoadTriggerTable_Errors(t *testing.T) {
	effects := loadTestEffects(t)

	for name, content := range map[string]string{
		"unknown effect": `
actors:
  - name: Broken
    rows:
      - effect: NoSuchEffect
        apply: on_enter
`,
		"bad policy": `
actors:
  - name: Broken
    rows:
      - effect: Potion
        apply: whenever
`,
		"empty actor name": `
actors:
  - name: ""
`,
	} {
		path := writeTable(t, "bad.yaml", content)
		_, err := LoadTriggerTable(path, effects)
		assert.Error(t, err, name)
	}
}
