package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AttributeRepository persists per-character attribute base values.
// Only base values are stored; current values are derived state and are
// rebuilt from base plus active effects after load.
type AttributeRepository struct {
	db *pgxpool.Pool
}

// NewAttributeRepository creates an AttributeRepository.
func NewAttributeRepository(db *pgxpool.Pool) *AttributeRepository {
	return &AttributeRepository{db: db}
}

// SaveCharacter upserts the character row and all its attribute base
// values in one transaction.
func (r *AttributeRepository) SaveCharacter(ctx context.Context, characterID int64, name string, level int32, bases map[string]float64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning save for character %d: %w", characterID, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO characters (character_id, name, level)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (character_id) DO UPDATE SET name = $2, level = $3`,
		characterID, name, level,
	)
	if err != nil {
		return fmt.Errorf("upserting character %d: %w", characterID, err)
	}

	now := time.Now()
	for attrName, base := range bases {
		_, err = tx.Exec(ctx,
			`INSERT INTO character_attributes (character_id, name, base, updated_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (character_id, name) DO UPDATE SET base = $3, updated_at = $4`,
			characterID, attrName, base, now,
		)
		if err != nil {
			return fmt.Errorf("upserting attribute %q for character %d: %w", attrName, characterID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing save for character %d: %w", characterID, err)
	}
	return nil
}

// CharacterRecord is one persisted character row.
type CharacterRecord struct {
	ID    int64
	Name  string
	Level int32
}

// ListCharacters returns every persisted character. Used to rebuild the
// world from the database when no snapshot is available, and to reconcile
// deletions at shutdown.
func (r *AttributeRepository) ListCharacters(ctx context.Context) ([]CharacterRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT character_id, name, level FROM characters ORDER BY character_id`)
	if err != nil {
		return nil, fmt.Errorf("querying characters: %w", err)
	}
	defer rows.Close()

	var records []CharacterRecord
	for rows.Next() {
		var rec CharacterRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Level); err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating character rows: %w", err)
	}
	return records, nil
}

// LoadAttributes returns the persisted base values for a character as a
// {name: base} map. Returns an empty map when the character has no rows
// (not an error — a fresh character simply uses catalog defaults).
func (r *AttributeRepository) LoadAttributes(ctx context.Context, characterID int64) (map[string]float64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, base FROM character_attributes WHERE character_id = $1`,
		characterID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attributes for character %d: %w", characterID, err)
	}
	defer rows.Close()

	bases := make(map[string]float64)
	for rows.Next() {
		var name string
		var base float64
		if err := rows.Scan(&name, &base); err != nil {
			return nil, fmt.Errorf("scanning attribute row for character %d: %w", characterID, err)
		}
		bases[name] = base
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attribute rows for character %d: %w", characterID, err)
	}
	return bases, nil
}

// DeleteCharacter removes a character and (via cascade) its attributes.
func (r *AttributeRepository) DeleteCharacter(ctx context.Context, characterID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM characters WHERE character_id = $1`, characterID)
	if err != nil {
		return fmt.Errorf("deleting character %d: %w", characterID, err)
	}
	return nil
}
