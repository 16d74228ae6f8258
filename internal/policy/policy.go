// Package policy holds the authorization predicates consulted by
// handlers before they invoke state transitions. The engine itself
// never checks roles; it trusts that the caller already did.
package policy

import "github.com/eventix/ticket-booking/internal/model"

// CanCreateEvent allows organizers and admins to create events.
func CanCreateEvent(actor *model.User) bool {
	return actor.IsAdmin() || actor.IsOrganizer()
}

// CanManageEvent allows admins, and organizers for their own events.
func CanManageEvent(actor *model.User, event *model.Event) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsOrganizer() && event.CreatedBy == actor.ID
}

// CanCreateTicket mirrors CanManageEvent: tickets belong to events.
func CanCreateTicket(actor *model.User, event *model.Event) bool {
	return CanManageEvent(actor, event)
}

// CanViewBooking allows the booking's owner, admins, and the organizer
// of the event the booking's ticket belongs to.
func CanViewBooking(actor *model.User, b *model.Booking, eventCreatedBy uint64) bool {
	if actor.IsAdmin() || b.UserID == actor.ID {
		return true
	}
	return actor.IsOrganizer() && eventCreatedBy == actor.ID
}

// CanConfirmBooking allows admins and the organizer of the booked
// event. Customers cannot confirm their own bookings.
func CanConfirmBooking(actor *model.User, eventCreatedBy uint64) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsOrganizer() && eventCreatedBy == actor.ID
}

// CanCancelBooking allows the owning user and admins.
func CanCancelBooking(actor *model.User, b *model.Booking) bool {
	return actor.IsAdmin() || b.UserID == actor.ID
}

// CanDeleteBooking is admin only; deletion removes the row from the
// ledger entirely rather than walking the state machine.
func CanDeleteBooking(actor *model.User) bool {
	return actor.IsAdmin()
}
