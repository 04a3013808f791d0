// Package storage persists the display update history.
//
// The history is purely diagnostic: the scheduler works fine without it, so
// every write failure is logged and swallowed. SQLite (modernc, cgo-free)
// keeps the store a single file on the SD card.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"einkframe/internal/engine"
	"einkframe/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type Config struct {
	Path        string
	BusyTimeout time.Duration
	// Retention bounds how far back history is kept; Prune deletes older rows.
	Retention time.Duration
}

type Store struct {
	db  *sql.DB
	log logx.Logger
	cfg Config
}

var ErrDisabled = errors.New("storage disabled")

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log, cfg: cfg}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordUpdate implements engine.Recorder.
func (s *Store) RecordUpdate(ctx context.Context, rec engine.UpdateRecord) {
	if s == nil || s.db == nil {
		return
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO updates(at, action, image, cleared, err) VALUES(?,?,?,?,?)`,
		rec.At.Format(time.RFC3339Nano), rec.Action, nullStr(rec.Image), rec.Cleared, nullStr(rec.Err),
	)
	if err != nil {
		s.log.Warn("history write failed", logx.Err(err))
	}
}

// Recent returns up to n most recent records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]engine.UpdateRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, action, COALESCE(image,''), cleared, COALESCE(err,'')
		 FROM updates ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.UpdateRecord
	for rows.Next() {
		var rec engine.UpdateRecord
		var at string
		if err := rows.Scan(&at, &rec.Action, &rec.Image, &rec.Cleared, &rec.Err); err != nil {
			return nil, err
		}
		rec.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes history older than the configured retention. It is meant to
// run from a maintenance job, not the tick path.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	if s.cfg.Retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.cfg.Retention).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM updates WHERE at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
