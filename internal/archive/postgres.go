package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"masterplan-studio/internal/jobs"
)

// Store keeps copies of terminal job records in Postgres after the janitor
// expires them from the live store. This is an operational audit trail; the
// live job subsystem never reads it back.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the archive table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS job_archive (
			id          TEXT PRIMARY KEY,
			status      TEXT NOT NULL,
			message     TEXT NOT NULL DEFAULT '',
			record      JSONB NOT NULL,
			started_at  TIMESTAMPTZ,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure job_archive schema: %w", err)
	}
	return nil
}

// Archive stores one expired record. Re-archiving the same id is a no-op so
// overlapping sweeps stay idempotent.
func (s *Store) Archive(ctx context.Context, id string, rec jobs.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var started any
	if !rec.StartTime.IsZero() {
		started = rec.StartTime
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO job_archive (id, status, message, record, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, id, rec.Status, rec.Message, data, started)
	if err != nil {
		return fmt.Errorf("insert archive row: %w", err)
	}
	return nil
}

var _ jobs.Archiver = (*Store)(nil)
