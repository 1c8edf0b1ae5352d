package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/mikeymath/mathgame/internal/api"
)

// sequenceCounter hands out event ids. The log is append-only and ids must
// never be reused, even after rows are deleted, so the counter lives in its
// own table rather than relying on rowid reuse. The mutex serializes within
// the process; the RETURNING clause makes the increment atomic at the
// database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// AppendEvent writes one event for userID at ts and returns it with its id.
func (s *Store) AppendEvent(ctx context.Context, userID uint32, in api.EventInput, ts time.Time) (api.Event, error) {
	id, err := s.seq.Next(ctx)
	if err != nil {
		return api.Event{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, user_id, timestamp, event_type, value) VALUES (?, ?, ?, ?, ?)`,
		id, userID, ts.UnixNano(), in.EventType, in.Value)
	if err != nil {
		return api.Event{}, fmt.Errorf("append event: %w", err)
	}
	return api.Event{
		ID:        uint64(id),
		Timestamp: ts.UTC(),
		UserID:    userID,
		EventType: in.EventType,
		Value:     in.Value,
	}, nil
}

// ListEvents returns the most recent events for userID, oldest first.
func (s *Store) ListEvents(ctx context.Context, userID uint32, opts QueryOpts) ([]api.Event, error) {
	query := `SELECT id, user_id, timestamp, event_type, value FROM events WHERE user_id = ?`
	args := []any{userID}
	if !opts.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, opts.From.UnixNano())
	}
	if len(opts.Types) > 0 {
		query += ` AND event_type IN (` + placeholders(len(opts.Types)) + `)`
		for _, t := range opts.Types {
			args = append(args, t)
		}
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []api.Event
	for rows.Next() {
		var (
			e  api.Event
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &ts, &e.EventType, &e.Value); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	if events == nil {
		events = []api.Event{}
	}
	return events, nil
}

func placeholders(n int) string {
	b := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
