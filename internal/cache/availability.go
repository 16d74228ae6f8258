// Package cache provides the Redis-backed display cache for ticket
// availability. Entries are keyed per ticket id and invalidated by id
// whenever a booking write changes that ticket's ledger, so a write on
// one ticket never evicts another ticket's entry. The cached value is
// display-only; write paths always recompute availability under the
// ticket row lock.
package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Availability caches derived available-quantity values. A nil client
// disables the cache entirely: Get always misses and Set/Invalidate
// are no-ops.
type Availability struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailability builds the cache. client may be nil.
func NewAvailability(client *redis.Client, ttl time.Duration) *Availability {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Availability{client: client, ttl: ttl}
}

func key(ticketID uint64) string {
	return fmt.Sprintf("availability:ticket:%d", ticketID)
}

// Get returns the cached availability for a ticket and whether it was
// present. Errors count as misses; the caller falls back to the
// database.
func (a *Availability) Get(ctx context.Context, ticketID uint64) (int, bool) {
	if a.client == nil {
		return 0, false
	}
	v, err := a.client.Get(ctx, key(ticketID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores the availability for a ticket with the configured TTL.
func (a *Availability) Set(ctx context.Context, ticketID uint64, available int) {
	if a.client == nil {
		return
	}
	if err := a.client.Set(ctx, key(ticketID), available, a.ttl).Err(); err != nil {
		log.Printf("cache: set availability for ticket %d failed: %v", ticketID, err)
	}
}

// InvalidateTicket drops the cached entry for one ticket. It satisfies
// the engine's Invalidator interface and is called after every booking
// write that changed the ticket's ledger.
func (a *Availability) InvalidateTicket(ctx context.Context, ticketID uint64) {
	if a.client == nil {
		return
	}
	if err := a.client.Del(ctx, key(ticketID)).Err(); err != nil {
		log.Printf("cache: invalidate ticket %d failed: %v", ticketID, err)
	}
}
