package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/uxray-ai/uxray/internal/core"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.Store with SQLite storage. Checkpoints and
// results are stored as JSON blobs; the relational columns exist only for
// lookups and housekeeping queries.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB

	maxRetries    int
	baseRetryWait time.Duration
}

// NewSQLiteStore creates a SQLite-backed store at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	s := &SQLiteStore{
		dbPath:        dbPath,
		maxRetries:    5,
		baseRetryWait: 100 * time.Millisecond,
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	migrations := []string{migrationV1}
	for i, migration := range migrations {
		version := i + 1
		if version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration transaction: %w", err)
		}
		for _, stmt := range splitStatements(migration) {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("executing migration v%d: %w", version, err)
			}
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", version, err)
		}
	}
	return nil
}

// splitStatements splits a SQL script into individual statements.
func splitStatements(script string) []string {
	var statements []string
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		lines := strings.Split(stmt, "\n")
		var sqlLines []string
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				sqlLines = append(sqlLines, line)
			}
		}
		if len(sqlLines) > 0 {
			statements = append(statements, strings.Join(sqlLines, "\n"))
		}
	}
	return statements
}

// retryWrite executes a write with backoff on SQLITE_BUSY.
func (s *SQLiteStore) retryWrite(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := fn(); err != nil {
			if isSQLiteBusy(err) {
				lastErr = err
				wait := s.baseRetryWait * time.Duration(1<<attempt)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
					continue
				}
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("%s failed after %d retries: %w", operation, s.maxRetries, lastErr)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// SaveCheckpoint upserts a checkpoint under its request key.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp *core.PipelineCheckpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	return s.retryWrite(ctx, "SaveCheckpoint", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO checkpoints (request_key, data, status, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(request_key) DO UPDATE SET
				data = excluded.data,
				status = excluded.status,
				updated_at = excluded.updated_at
		`,
			cp.RequestKey,
			string(data),
			string(cp.Status),
			cp.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// LoadCheckpoint retrieves a checkpoint, or nil when none exists.
func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, requestKey string) (*core.PipelineCheckpoint, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT data FROM checkpoints WHERE request_key = ?", requestKey)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning checkpoint: %w", err)
	}

	var cp core.PipelineCheckpoint
	if err := json.Unmarshal([]byte(data), &cp); err != nil {
		return nil, core.ErrState(core.CodeStoreCorrupted, "checkpoint row is not valid JSON").WithCause(err)
	}
	return &cp, nil
}

// DeleteCheckpoint removes a checkpoint row.
func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, requestKey string) error {
	return s.retryWrite(ctx, "DeleteCheckpoint", func() error {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM checkpoints WHERE request_key = ?", requestKey)
		return err
	})
}

// SaveResult upserts a final result under its request key.
func (s *SQLiteStore) SaveResult(ctx context.Context, result *core.PipelineResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return s.retryWrite(ctx, "SaveResult", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO results (request_key, data, mode, completed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(request_key) DO UPDATE SET
				data = excluded.data,
				mode = excluded.mode,
				completed_at = excluded.completed_at
		`,
			result.RequestKey,
			string(data),
			string(result.Mode),
			result.CompletedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// LoadResult retrieves a final result, or nil when none exists.
func (s *SQLiteStore) LoadResult(ctx context.Context, requestKey string) (*core.PipelineResult, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT data FROM results WHERE request_key = ?", requestKey)

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning result: %w", err)
	}

	var result core.PipelineResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, core.ErrState(core.CodeStoreCorrupted, "result row is not valid JSON").WithCause(err)
	}
	return &result, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
