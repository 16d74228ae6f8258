package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eventix/ticket-booking/internal/model"
)

// ErrEventNotFound is returned when no event matches the lookup.
var ErrEventNotFound = errors.New("event not found")

// EventRepo provides CRUD operations for events. Dates are stored in
// UTC; the reservation engine reads events through the Store instead.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts an event and populates the generated id.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (title, venue, date, created_by) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, e.Title, e.Venue, e.Date, e.CreatedBy)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID looks an event up by primary key.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	const q = `SELECT id, title, venue, date, created_by, created_at, updated_at FROM events WHERE id = ?`
	var e model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.Title, &e.Venue, &e.Date, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrEventNotFound
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns all events ordered by date, soonest first.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT id, title, venue, date, created_by, created_at, updated_at FROM events ORDER BY date ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Venue, &e.Date, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
