package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/einsteine77/ADSBtoAPRS/pkg/tracker"
)

// EventRepository stores emitted announcements.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a repository for the object_events table.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert archives one emitted action.
func (r *EventRepository) Insert(ctx context.Context, a tracker.Action) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO object_events
			(occurred_at, action, icao, name, latitude, longitude,
			 altitude_ft, ground_speed_kts, track_deg, symbol, callsign)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.Decided.UTC(),
		a.Type.String(),
		a.ICAO,
		a.Name,
		a.Latitude,
		a.Longitude,
		a.Altitude,
		a.GroundSpeed,
		a.Track,
		a.Symbol.Tag,
		a.Callsign,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// CountSince returns the number of archived events newer than the cutoff.
func (r *EventRepository) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM object_events WHERE occurred_at >= $1`,
		cutoff.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// Recorder tees emitted actions into the archive from its own
// goroutine, so a slow database never backs up the APRS uplink.
type Recorder struct {
	repo    *EventRepository
	actions chan tracker.Action
}

// NewRecorder creates a recorder with a bounded buffer.
func NewRecorder(repo *EventRepository) *Recorder {
	return &Recorder{
		repo:    repo,
		actions: make(chan tracker.Action, 128),
	}
}

// Record enqueues an action for archiving. When the buffer is full the
// action is discarded; the archive is telemetry, never source of truth.
func (rec *Recorder) Record(a tracker.Action) {
	select {
	case rec.actions <- a:
	default:
	}
}

// Run drains the buffer until the context ends.
func (rec *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-rec.actions:
			if err := rec.repo.Insert(ctx, a); err != nil && ctx.Err() == nil {
				log.Printf("[DB] Archive insert failed: %v", err)
			}
		}
	}
}
