package syncx

import (
	"context"
	"database/sql"
	"time"
)

// Event is one append-only audit entry, e.g. a finalized simulation
// attempt. offline sites replay the log when they come back online.
type Event struct {
	Offset    int64
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

const (
	EventSimFinalized = "SimFinalized"
	EventTestImported = "TestImported"
)

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}
