package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wricardo/mcp-training/rpsmatch/game/engine"
)

const createMatchesTable = `
CREATE TABLE IF NOT EXISTS rps_matches (
    id         TEXT PRIMARY KEY,
    data       JSONB NOT NULL,
    is_active  BOOLEAN NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresPersistence implements MatchPersistence on a single table keyed by
// match id with the JSON envelope in a JSONB column
type PostgresPersistence struct {
	db *pgxpool.Pool
}

// NewPostgresPersistence opens a pool, pings it and ensures the table exists
func NewPostgresPersistence(ctx context.Context, dsn string) (*PostgresPersistence, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is required")
	}

	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(ctx, createMatchesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create rps_matches table: %w", err)
	}

	return &PostgresPersistence{db: db}, nil
}

// Save upserts the match row
func (pp *PostgresPersistence) Save(ctx context.Context, match *engine.Match) error {
	data, err := encodeMatch(match, false)
	if err != nil {
		return err
	}

	_, err = pp.db.Exec(ctx,
		`INSERT INTO rps_matches (id, data, is_active, updated_at)
         VALUES ($1, $2::jsonb, $3, $4)
         ON CONFLICT (id) DO UPDATE
         SET data = EXCLUDED.data, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`,
		match.ID,
		string(data),
		match.IsActive,
		match.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save match %s: %w", match.ID, err)
	}
	return nil
}

// Load retrieves a match row by id
func (pp *PostgresPersistence) Load(ctx context.Context, id string) (*engine.Match, error) {
	var data []byte
	err := pp.db.QueryRow(ctx, `SELECT data FROM rps_matches WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, engine.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %s: %w", id, err)
	}
	return decodeMatch(data)
}

// Delete removes a match row
func (pp *PostgresPersistence) Delete(ctx context.Context, id string) error {
	tag, err := pp.db.Exec(ctx, `DELETE FROM rps_matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrMatchNotFound
	}
	return nil
}

// ListAll returns all match ids, most recently updated first
func (pp *PostgresPersistence) ListAll(ctx context.Context) ([]string, error) {
	rows, err := pp.db.Query(ctx, `SELECT id FROM rps_matches ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan match id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a match row exists
func (pp *PostgresPersistence) Exists(ctx context.Context, id string) bool {
	var exists bool
	err := pp.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rps_matches WHERE id = $1)`, id).Scan(&exists)
	return err == nil && exists
}

// Close releases the pool
func (pp *PostgresPersistence) Close() {
	pp.db.Close()
}
