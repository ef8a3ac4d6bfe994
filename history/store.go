// Package history persists one row per completed generation request in
// a local SQLite database, so past prompts, seeds, and output paths can
// be replayed later.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"localgen/diffusion"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// busyTimeoutMS is how long SQLite waits for a lock before failing.
const busyTimeoutMS = 5000

// Store is the generation history database. It implements
// diffusion.Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path, enables WAL
// mode, and applies pending schema migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	// WAL gives concurrent readers with the single writer SQLite wants.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS),
		"PRAGMA foreign_keys=ON",
	}
	for _, q := range pragmas {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", q, err)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// migrateUp applies all pending embedded migrations. ErrNoChange is
// not an error.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{DatabaseName: "main"})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Record inserts one generation record.
func (s *Store) Record(ctx context.Context, rec diffusion.GenerationRecord) error {
	paths, err := json.Marshal(rec.Paths)
	if err != nil {
		return fmt.Errorf("encode paths: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generation_history
			(request_id, prompt, truncated, model_id, device, precision,
			 aspect_ratio, seed, steps, num_outputs, paths, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Prompt, rec.Truncated, rec.ModelID, rec.Device,
		rec.Precision, rec.AspectRatio, rec.Seed, rec.Steps, rec.NumOutputs,
		string(paths), rec.Elapsed.Milliseconds(),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert generation record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]diffusion.GenerationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, prompt, truncated, model_id, device, precision,
		       aspect_ratio, seed, steps, num_outputs, paths, elapsed_ms, created_at
		FROM generation_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query generation history: %w", err)
	}
	defer rows.Close()

	var recs []diffusion.GenerationRecord
	for rows.Next() {
		var rec diffusion.GenerationRecord
		var paths, createdAt string
		var elapsedMS int64
		if err := rows.Scan(&rec.RequestID, &rec.Prompt, &rec.Truncated,
			&rec.ModelID, &rec.Device, &rec.Precision, &rec.AspectRatio,
			&rec.Seed, &rec.Steps, &rec.NumOutputs, &paths, &elapsedMS,
			&createdAt); err != nil {
			return nil, fmt.Errorf("scan generation record: %w", err)
		}
		if err := json.Unmarshal([]byte(paths), &rec.Paths); err != nil {
			return nil, fmt.Errorf("decode paths for %s: %w", rec.RequestID, err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
