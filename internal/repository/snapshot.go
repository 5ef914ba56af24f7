package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sc2-ladder-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ErrSnapshotNotFound is returned when no baseline matches the identifier.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository persists ranking baselines used for position-change
// comparison. Players are stored as a JSON payload; the snapshot is opaque to
// SQL beyond its id and creation time.
type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSnapshotRepository(db *sql.DB, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, logger: logger}
}

// Save persists a snapshot as a new baseline and returns its identifier.
func (r *SnapshotRepository) Save(ctx context.Context, snap domain.RankingSnapshot) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate snapshot id: %w", err)
	}

	payload, err := json.Marshal(snap.Players)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot players: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, players, created_at) VALUES (?, ?, ?)`,
		id, string(payload), snap.CreatedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	r.logger.Info().Str("id", id).Int("players", len(snap.Players)).Msg("snapshot saved")
	return id, nil
}

// List returns baseline metadata, newest first.
func (r *SnapshotRepository) List(ctx context.Context) ([]domain.SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, players, created_at FROM snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var infos []domain.SnapshotInfo
	now := time.Now()
	for rows.Next() {
		var (
			info    domain.SnapshotInfo
			payload string
		)
		if err := rows.Scan(&info.ID, &payload, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		var players []domain.RankedPlayer
		if err := json.Unmarshal([]byte(payload), &players); err != nil {
			r.logger.Warn().Err(err).Str("id", info.ID).Msg("skipping unreadable snapshot payload")
			continue
		}
		info.Players = len(players)
		info.Age = now.Sub(info.CreatedAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot rows: %w", err)
	}
	return infos, nil
}

// Load restores a baseline by identifier.
func (r *SnapshotRepository) Load(ctx context.Context, id string) (domain.RankingSnapshot, error) {
	return r.loadOne(ctx,
		`SELECT players, created_at FROM snapshots WHERE id = ?`, id)
}

// LoadLatest restores the most recently saved baseline.
func (r *SnapshotRepository) LoadLatest(ctx context.Context) (domain.RankingSnapshot, error) {
	return r.loadOne(ctx,
		`SELECT players, created_at FROM snapshots ORDER BY created_at DESC LIMIT 1`)
}

func (r *SnapshotRepository) loadOne(ctx context.Context, query string, args ...any) (domain.RankingSnapshot, error) {
	var (
		snap    domain.RankingSnapshot
		payload string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrSnapshotNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Players); err != nil {
		return snap, fmt.Errorf("failed to unmarshal snapshot players: %w", err)
	}
	return snap, nil
}
