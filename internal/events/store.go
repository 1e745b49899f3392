package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool and pgx.Tx used by PgStore.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgStore persists events in the domain_events table.
type PgStore struct {
	DB Execer
}

const insertEventSQL = `
INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)`

// InsertEvent stores ev.
func (s PgStore) InsertEvent(ctx context.Context, ev Event) (Event, error) {
	if s.DB == nil {
		return Event{}, fmt.Errorf("events: store not configured")
	}
	if _, err := s.DB.Exec(ctx, insertEventSQL, ev.ID, ev.Topic, ev.AggregateID, []byte(ev.Payload), ev.OccurredAt); err != nil {
		return Event{}, err
	}
	return ev, nil
}

const markProcessedSQL = `
UPDATE domain_events SET processed_at = $2 WHERE id = $1 AND processed_at IS NULL`

// MarkProcessed stamps the event as handled. It reports false when the event
// was already processed or does not exist.
func (s PgStore) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if s.DB == nil {
		return false, fmt.Errorf("events: store not configured")
	}
	tag, err := s.DB.Exec(ctx, markProcessedSQL, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
