// Package store keeps the optimizer's score log and plan snapshots.
//
// A Store wraps a single SQLite connection (modernc.org/sqlite, WAL mode).
// Writes are serialized by a mutex because SQLite admits one writer at a
// time. Snapshots are also written as standalone JSON files next to the
// database; see WriteSnapshotFile.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound indicates that no row matched the lookup.
	ErrNotFound = errors.New("store: not found")

	// ErrBadRunID indicates that a run id is not a UUID.
	ErrBadRunID = errors.New("store: invalid run id")
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// Store is the SQLite-backed score log.
type Store struct {
	conn    *sql.DB
	writeMu sync.Mutex
	log     zerolog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes store logs to l.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			s.log.Warn().Err(err).Str("pragma", pragma).Msg("pragma not applied")
		}
	}

	if err := s.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	s.log.Info().Str("path", path).Msg("store opened")

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}

	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Run is one optimizer run of one network.
type Run struct {
	ID            string
	Network       string
	Seed          int64
	Status        string
	OriginalScore float64
	BestScore     float64
	StartedAt     time.Time
	FinishedAt    time.Time // zero while running
}

// StartRun inserts a running row for (id, network). A repeated start of the
// same pair (a retry) resets the row and drops its previous events.
func (s *Store) StartRun(ctx context.Context, id, network string, seed int64) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrBadRunID, id)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE run_id = ? AND network = ?`, id, network); err != nil {
		return fmt.Errorf("store: reset events: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, network, seed, status, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, network) DO UPDATE SET
			seed = excluded.seed,
			status = excluded.status,
			original_score = NULL,
			best_score = NULL,
			started_at = excluded.started_at,
			finished_at = NULL
	`, id, network, seed, StatusRunning, s.stamp())
	if err != nil {
		return fmt.Errorf("store: start run: %w", err)
	}

	return tx.Commit()
}

// FinishRun closes a run with its final status and scores.
func (s *Store) FinishRun(ctx context.Context, id, network, status string, original, best float64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.conn.ExecContext(ctx, `
		UPDATE runs SET status = ?, original_score = ?, best_score = ?, finished_at = ?
		WHERE run_id = ? AND network = ?
	`, status, original, best, s.stamp(), id, network)
	if err != nil {
		return fmt.Errorf("store: finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: run %s/%s", ErrNotFound, id, network)
	}

	return nil
}

// GetRun reads one run.
func (s *Store) GetRun(ctx context.Context, id, network string) (Run, error) {
	var (
		r              Run
		original, best sql.NullFloat64
		started        string
		finished       sql.NullString
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT run_id, network, seed, status, original_score, best_score, started_at, finished_at
		FROM runs WHERE run_id = ? AND network = ?
	`, id, network).Scan(&r.ID, &r.Network, &r.Seed, &r.Status, &original, &best, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: run %s/%s", ErrNotFound, id, network)
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: get run: %w", err)
	}

	r.OriginalScore, r.BestScore = original.Float64, best.Float64
	if r.StartedAt, err = parseStamp(started); err != nil {
		return Run{}, err
	}
	if finished.Valid {
		if r.FinishedAt, err = parseStamp(finished.String); err != nil {
			return Run{}, err
		}
	}

	return r, nil
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseStamp(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: bad timestamp %q: %w", v, err)
	}

	return t, nil
}
