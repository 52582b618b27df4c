package store

import (
	"context"
	"fmt"

	"github.com/katalvlaran/transitplan/optimize"
)

// EventRow is one stored optimizer iteration.
type EventRow struct {
	RunID   string
	Network string
	optimize.Event
}

// RecordEvent appends one iteration to the score log of (runID, network).
func (s *Store) RecordEvent(ctx context.Context, runID, network string, e optimize.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO events (run_id, network, iteration, kind, param, description,
			score, incumbent, best, accepted, skipped, explored, minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, network, e.Iteration, e.Kind.String(), e.Param, e.Description,
		e.Score, e.Incumbent, e.Best,
		boolInt(e.Accepted), boolInt(e.Skipped), boolInt(e.Explored),
		e.ScheduledMinutes,
	)
	if err != nil {
		return fmt.Errorf("store: record event %d: %w", e.Iteration, err)
	}

	return nil
}

// Events reads the score log of (runID, network) in iteration order.
func (s *Store) Events(ctx context.Context, runID, network string) ([]EventRow, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT iteration, kind, param, description, score, incumbent, best,
			accepted, skipped, explored, minutes
		FROM events
		WHERE run_id = ? AND network = ?
		ORDER BY iteration
	`, runID, network)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			row                         = EventRow{RunID: runID, Network: network}
			kind                        string
			accepted, skipped, explored int
		)
		err := rows.Scan(&row.Iteration, &kind, &row.Param, &row.Description,
			&row.Score, &row.Incumbent, &row.Best,
			&accepted, &skipped, &explored, &row.ScheduledMinutes)
		if err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		if row.Kind, err = optimize.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("store: event %d: %w", row.Iteration, err)
		}
		row.Accepted, row.Skipped, row.Explored = accepted != 0, skipped != 0, explored != 0
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read events: %w", err)
	}

	return out, nil
}

// Recorder writes optimizer events of one run and network to a Store. It
// satisfies optimize.EventSink.
type Recorder struct {
	store   *Store
	runID   string
	network string
}

// Recorder returns an event sink bound to (runID, network).
func (s *Store) Recorder(runID, network string) *Recorder {
	return &Recorder{store: s, runID: runID, network: network}
}

// Record implements optimize.EventSink.
func (r *Recorder) Record(ctx context.Context, e optimize.Event) error {
	return r.store.RecordEvent(ctx, r.runID, r.network, e)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
