package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/uxray-ai/uxray/internal/core"
)

// PostgresStore implements core.Store on PostgreSQL via the pgx stdlib
// driver. The same JSON-blob layout as the SQLite store, with JSONB
// columns so operators can query into stored analyses.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS uxray_checkpoints (
			request_key TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			status TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS uxray_results (
			request_key TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			mode TEXT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uxray_checkpoints_updated_at
			ON uxray_checkpoints(updated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveCheckpoint upserts a checkpoint under its request key.
func (s *PostgresStore) SaveCheckpoint(ctx context.Context, cp *core.PipelineCheckpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO uxray_checkpoints (request_key, data, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_key) DO UPDATE SET
			data = EXCLUDED.data,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, cp.RequestKey, data, string(cp.Status), cp.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint retrieves a checkpoint, or nil when none exists.
func (s *PostgresStore) LoadCheckpoint(ctx context.Context, requestKey string) (*core.PipelineCheckpoint, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT data FROM uxray_checkpoints WHERE request_key = $1", requestKey)

	var data []byte
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning checkpoint: %w", err)
	}

	var cp core.PipelineCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, core.ErrState(core.CodeStoreCorrupted, "checkpoint row is not valid JSON").WithCause(err)
	}
	return &cp, nil
}

// DeleteCheckpoint removes a checkpoint row.
func (s *PostgresStore) DeleteCheckpoint(ctx context.Context, requestKey string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM uxray_checkpoints WHERE request_key = $1", requestKey)
	if err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// SaveResult upserts a final result under its request key.
func (s *PostgresStore) SaveResult(ctx context.Context, result *core.PipelineResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO uxray_results (request_key, data, mode, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_key) DO UPDATE SET
			data = EXCLUDED.data,
			mode = EXCLUDED.mode,
			completed_at = EXCLUDED.completed_at
	`, result.RequestKey, data, string(result.Mode), result.CompletedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	return nil
}

// LoadResult retrieves a final result, or nil when none exists.
func (s *PostgresStore) LoadResult(ctx context.Context, requestKey string) (*core.PipelineResult, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT data FROM uxray_results WHERE request_key = $1", requestKey)

	var data []byte
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning result: %w", err)
	}

	var result core.PipelineResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, core.ErrState(core.CodeStoreCorrupted, "result row is not valid JSON").WithCause(err)
	}
	return &result, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
