package model

import "time"

// Event represents a row in the `events` table. Tickets are sold per
// event; the event date gates new reservations (bookings are rejected
// once the date has passed). The date is immutable after creation, so
// the past-event check does not need to be repeated inside reservation
// locks.
//
// Fields:
//  ID        - primary key identifier.
//  Title     - event title.
//  Venue     - where the event takes place.
//  Date      - when the event starts, stored in UTC.
//  CreatedBy - user who created the event (its organizer).
//  CreatedAt - timestamp of creation.
//  UpdatedAt - timestamp of last update.
type Event struct {
	ID        uint64    // events.id
	Title     string    // events.title
	Venue     string    // events.venue
	Date      time.Time // events.date
	CreatedBy uint64    // events.created_by
	CreatedAt time.Time // events.created_at
	UpdatedAt time.Time // events.updated_at
}

// HasOccurred reports whether the event date is at or before the given
// instant. Bookings are only accepted while this is false.
func (e *Event) HasOccurred(now time.Time) bool {
	return !e.Date.After(now)
}
