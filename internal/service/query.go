package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/room-ticket-service/internal/clock"
	"github.com/spec-kit/room-ticket-service/internal/domain"
	"github.com/spec-kit/room-ticket-service/internal/repository"
)

// TicketView is a ticket as read by the dashboard, with its SLA computed at read time.
type TicketView struct {
	Ticket domain.ServiceTicket
	SLA    SLAStatus
}

// QueryFacade serves read-only views over one snapshot of the ticket store per call.
type QueryFacade struct {
	tickets repository.TicketRepository
	clock   clock.Clock
}

// NewQueryFacade creates the facade.
func NewQueryFacade(tickets repository.TicketRepository, clk clock.Clock) *QueryFacade {
	if clk == nil {
		clk = clock.Real()
	}
	return &QueryFacade{tickets: tickets, clock: clk}
}

// FilterByStatus returns tickets in status, or every ticket when status is empty.
func (q *QueryFacade) FilterByStatus(ctx context.Context, status domain.TicketStatus) ([]TicketView, error) {
	snapshot, now, err := q.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return q.views(FilterByStatus(snapshot, status), now), nil
}

// CountsByStatus returns a count for every status, zero filled.
func (q *QueryFacade) CountsByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	snapshot, _, err := q.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return CountsByStatus(snapshot), nil
}

// HighPriorityOpenTickets returns unresolved tickets with priority <= maxPriority.
func (q *QueryFacade) HighPriorityOpenTickets(ctx context.Context, maxPriority int) ([]TicketView, error) {
	snapshot, now, err := q.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return q.views(HighPriorityOpenTickets(snapshot, maxPriority), now), nil
}

// RecentActivity returns tickets created, assigned or resolved in the last hoursBack hours.
func (q *QueryFacade) RecentActivity(ctx context.Context, hoursBack int) ([]TicketView, error) {
	snapshot, now, err := q.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return q.views(RecentActivity(snapshot, now.Add(-time.Duration(hoursBack)*time.Hour)), now), nil
}

// View attaches the current SLA status to a single ticket.
func (q *QueryFacade) View(t domain.ServiceTicket) TicketView {
	return TicketView{Ticket: t, SLA: EvaluateSLA(t.Priority, t.CreatedAt, t.Status, q.clock.Now())}
}

func (q *QueryFacade) snapshot(ctx context.Context) ([]domain.ServiceTicket, time.Time, error) {
	tickets, err := q.tickets.ListAll(ctx)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, q.clock.Now(), nil
}

func (q *QueryFacade) views(tickets []domain.ServiceTicket, now time.Time) []TicketView {
	out := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketView{
			Ticket: t,
			SLA:    EvaluateSLA(t.Priority, t.CreatedAt, t.Status, now),
		})
	}
	return out
}

// FilterByStatus keeps tickets in status. An empty status keeps everything.
func FilterByStatus(tickets []domain.ServiceTicket, status domain.TicketStatus) []domain.ServiceTicket {
	out := make([]domain.ServiceTicket, 0, len(tickets))
	for _, t := range tickets {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// CountsByStatus counts tickets per status with every known status present.
func CountsByStatus(tickets []domain.ServiceTicket) map[domain.TicketStatus]int {
	counts := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	for _, status := range domain.TicketStatuses {
		counts[status] = 0
	}
	for _, t := range tickets {
		counts[t.Status]++
	}
	return counts
}

// HighPriorityOpenTickets sorts unresolved tickets by ascending priority, oldest first on ties.
func HighPriorityOpenTickets(tickets []domain.ServiceTicket, maxPriority int) []domain.ServiceTicket {
	out := make([]domain.ServiceTicket, 0)
	for _, t := range tickets {
		if t.Status != domain.TicketStatusResolved && t.Priority <= maxPriority {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// RecentActivity keeps tickets created, assigned or resolved at or after since,
// most recently updated first.
func RecentActivity(tickets []domain.ServiceTicket, since time.Time) []domain.ServiceTicket {
	within := func(t *time.Time) bool {
		return t != nil && !t.Before(since)
	}
	out := make([]domain.ServiceTicket, 0)
	for _, t := range tickets {
		if within(&t.CreatedAt) || within(t.AssignedAt) || within(t.ResolvedAt) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
