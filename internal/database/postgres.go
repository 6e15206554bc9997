package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbmon/internal/model"
)

// PostgresRepository persists the history array as one JSONB record keyed by
// HistoryKey.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// Migrate creates the history table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS history_snapshots (
		key TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`)
	if err != nil {
		return fmt.Errorf("migrate history_snapshots: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LoadHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	var data []byte
	err := r.Pool.QueryRow(ctx,
		`SELECT data FROM history_snapshots WHERE key = $1`, HistoryKey,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}

func (r *PostgresRepository) SaveHistory(ctx context.Context, entries []model.HistoryEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	_, err = r.Pool.Exec(ctx, `
	INSERT INTO history_snapshots (key, data, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		HistoryKey, data)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
