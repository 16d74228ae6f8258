package booking

import "context"

// Available computes how many units remain for new reservations given a
// ticket's total stock and the summed quantity of its active (pending
// or confirmed) bookings. The result never goes below zero, so a
// legacy overcommitted ticket reads as sold out rather than negative.
func Available(totalStock, activeQuantity int) int {
	if avail := totalStock - activeQuantity; avail > 0 {
		return avail
	}
	return 0
}

// AvailableQuantity returns the current availability of a ticket as a
// display value. It runs outside any lock and may be stale relative to
// in-flight reservations; write paths never consult it and instead
// recompute availability under the ticket row lock.
func (s *Service) AvailableQuantity(ctx context.Context, ticketID uint64) (int, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return 0, err
	}
	active, err := s.repo.SumActiveQuantities(ctx, ticketID, 0)
	if err != nil {
		return 0, err
	}
	return Available(ticket.Quantity, active), nil
}
