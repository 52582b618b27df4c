package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/katalvlaran/transitplan/plan"
)

// SnapshotSuffix is appended to a plan name to form its file name.
const SnapshotSuffix = ".plan.json"

// Snapshot is a stored plan document.
type Snapshot struct {
	Network  string
	Name     string
	RunID    string
	Document plan.Document
	SavedAt  time.Time
}

// SaveSnapshot upserts the complete snapshot row for (Network, Name).
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	body, err := json.Marshal(snap.Document)
	if err != nil {
		return fmt.Errorf("store: encode snapshot %s: %w", snap.Name, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO snapshots (network, name, run_id, document, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (network, name) DO UPDATE SET
			run_id = excluded.run_id,
			document = excluded.document,
			saved_at = excluded.saved_at
	`, snap.Network, snap.Name, nullString(snap.RunID), string(body), s.stamp())
	if err != nil {
		return fmt.Errorf("store: save snapshot %s/%s: %w", snap.Network, snap.Name, err)
	}

	return nil
}

// LoadSnapshot reads the snapshot row for (network, name).
func (s *Store) LoadSnapshot(ctx context.Context, network, name string) (Snapshot, error) {
	var (
		snap  = Snapshot{Network: network, Name: name}
		runID sql.NullString
		body  string
		saved string
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT run_id, document, saved_at FROM snapshots WHERE network = ? AND name = ?
	`, network, name).Scan(&runID, &body, &saved)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: snapshot %s/%s", ErrNotFound, network, name)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: load snapshot: %w", err)
	}

	snap.RunID = runID.String
	if snap.Document, err = plan.ReadDocument(bytes.NewReader([]byte(body))); err != nil {
		return Snapshot{}, err
	}
	if snap.SavedAt, err = parseStamp(saved); err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

// SnapshotPath returns the file that holds the snapshot of the named plan.
func SnapshotPath(dir, name string) string {
	return filepath.Join(dir, name+SnapshotSuffix)
}

// WriteSnapshotFile writes p's document to SnapshotPath(dir, p.Name()). The
// file is written to a temporary name and renamed into place, so readers see
// either the previous or the new complete document.
func WriteSnapshotFile(dir string, p *plan.Plan) (string, error) {
	return writeSnapshotFile(dir, p.Name(), p)
}

func writeSnapshotFile(dir, name string, p *plan.Plan) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("store: snapshot dir: %w", err)
	}
	path := SnapshotPath(dir, name)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("store: snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := p.WriteJSON(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("store: write snapshot %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("store: sync snapshot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("store: close snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store: rename snapshot %s: %w", name, err)
	}

	return path, nil
}

// LoadSnapshotFile reads a plan document written by WriteSnapshotFile.
func LoadSnapshotFile(path string) (plan.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return plan.Document{}, fmt.Errorf("store: open snapshot: %w", err)
	}
	defer f.Close()

	return plan.ReadDocument(f)
}

// Snapshotter persists every accepted plan of one run, both as a file in Dir
// and as a snapshot row. It satisfies optimize.Persister.
type Snapshotter struct {
	Store   *Store // optional; nil writes files only
	Dir     string
	Name    string // snapshot name; empty uses the plan's name
	RunID   string
	Network string
	Log     zerolog.Logger
}

// Persist implements optimize.Persister.
func (s *Snapshotter) Persist(ctx context.Context, p *plan.Plan) error {
	name := s.Name
	if name == "" {
		name = p.Name()
	}
	path, err := writeSnapshotFile(s.Dir, name, p)
	if err != nil {
		return err
	}
	s.Log.Debug().Str("network", s.Network).Str("path", path).Msg("snapshot written")

	if s.Store == nil {
		return nil
	}

	return s.Store.SaveSnapshot(ctx, Snapshot{
		Network:  s.Network,
		Name:     name,
		RunID:    s.RunID,
		Document: p.Document(),
	})
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
