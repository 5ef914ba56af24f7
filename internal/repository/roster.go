package repository

import (
	"context"
	"database/sql"
	"fmt"

	"sc2-ladder-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type RosterRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRosterRepository(db *sql.DB, logger zerolog.Logger) *RosterRepository {
	return &RosterRepository{db: db, logger: logger}
}

// ListAll loads the whole roster. The ranking pipeline calls this once per
// computation.
func (r *RosterRepository) ListAll(ctx context.Context) ([]domain.RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT character_id, battle_tag, display_name FROM roster ORDER BY character_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var entries []domain.RosterEntry
	for rows.Next() {
		var e domain.RosterEntry
		if err := rows.Scan(&e.CharacterID, &e.BattleTag, &e.Name); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read roster rows: %w", err)
	}
	return entries, nil
}

// UpsertBatch inserts or updates roster entries in one transaction.
func (r *RosterRepository) UpsertBatch(ctx context.Context, entries []domain.RosterEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO roster (character_id, battle_tag, display_name, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(character_id) DO UPDATE SET
			battle_tag = excluded.battle_tag,
			display_name = excluded.display_name,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare roster upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.BattleTag == "" {
			r.logger.Warn().Int64("character_id", e.CharacterID).Msg("skipping roster entry without battle tag")
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.CharacterID, e.BattleTag, e.Name); err != nil {
			return fmt.Errorf("failed to upsert roster entry %d: %w", e.CharacterID, err)
		}
	}

	return tx.Commit()
}

// Delete removes one roster entry by character id.
func (r *RosterRepository) Delete(ctx context.Context, characterID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM roster WHERE character_id = ?`, characterID); err != nil {
		return fmt.Errorf("failed to delete roster entry %d: %w", characterID, err)
	}
	return nil
}
