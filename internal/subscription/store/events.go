package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"orbit/pkg/platform/sentinel"
	platformsync "orbit/pkg/platform/sync"
	"orbit/pkg/platform/tx"
)

// InMemoryEvents is the processed-event log for in-memory deployments.
// Checks and inserts for the same event id run under that id's stripe.
type InMemoryEvents struct {
	locks *platformsync.Striped
	seen  sync.Map
}

func NewInMemoryEvents() *InMemoryEvents {
	return &InMemoryEvents{locks: platformsync.NewStriped(64)}
}

// Record stores eventID. It returns sentinel.ErrAlreadyUsed when the id was
// recorded before.
func (s *InMemoryEvents) Record(ctx context.Context, eventID, eventType string, at time.Time) error {
	var err error
	s.locks.Do(eventID, func() {
		if _, seen := s.seen.Load(eventID); seen {
			err = sentinel.ErrAlreadyUsed
			return
		}
		s.seen.Store(eventID, at)
		tx.OnRollback(ctx, func() {
			s.seen.Delete(eventID)
		})
	})
	return err
}

// PostgresEvents is the processed-event log backed by the processed_events table.
type PostgresEvents struct {
	db *sql.DB
}

func NewPostgresEvents(db *sql.DB) *PostgresEvents {
	return &PostgresEvents{db: db}
}

// Record inserts eventID. The primary key makes concurrent deliveries of the
// same event race safely: exactly one insert affects a row.
func (s *PostgresEvents) Record(ctx context.Context, eventID, eventType string, at time.Time) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx,
		`INSERT INTO processed_events (event_id, event_type, processed_at) VALUES ($1, $2, $3) ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType, at,
	)
	if err != nil {
		return fmt.Errorf("record processed event: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record processed event rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}
