package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/room-ticket-service/internal/domain"
	"github.com/spec-kit/room-ticket-service/internal/repository"
)

// DeduplicationGuard answers whether a room already has an open ticket of a
// given type. The ticket store enforces the same rule on insert, so a stale
// answer here at worst costs a rejected Create.
type DeduplicationGuard struct {
	tickets repository.TicketRepository
}

// NewDeduplicationGuard creates the guard.
func NewDeduplicationGuard(tickets repository.TicketRepository) *DeduplicationGuard {
	return &DeduplicationGuard{tickets: tickets}
}

// HasActiveTicket reports whether a queued, processing or assigned ticket exists.
func (g *DeduplicationGuard) HasActiveTicket(ctx context.Context, roomID string, ticketType domain.TicketType) (bool, error) {
	active, err := g.tickets.ListActiveByRoom(ctx, roomID, ticketType)
	if err != nil {
		return false, fmt.Errorf("list active tickets for room %s: %w", roomID, err)
	}
	return len(active) > 0, nil
}
