package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/room-ticket-service/internal/domain"
	"github.com/spec-kit/room-ticket-service/internal/events"
	"github.com/spec-kit/room-ticket-service/internal/repository"
)

// auditTrail records history rows and publishes events for ticket writes.
// Failures are logged; the ticket write they describe has already happened.
type auditTrail struct {
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (a auditTrail) statusChanged(ctx context.Context, ticket *domain.ServiceTicket, old *domain.TicketStatus, actor domain.ChangeActor, note string) {
	if a.history != nil {
		entry := &domain.TicketHistory{
			ID:        uuid.NewString(),
			TicketID:  ticket.ID,
			Actor:     actor,
			OldStatus: old,
			NewStatus: ticket.Status,
			Note:      note,
			CreatedAt: ticket.UpdatedAt,
		}
		if err := a.history.Create(ctx, entry); err != nil {
			a.logger.Warn("failed to record ticket history",
				zap.String("ticket_id", ticket.ID),
				zap.String("status", string(ticket.Status)),
				zap.Error(err))
		}
	}

	if old == nil {
		a.publish(ctx, events.Event{
			Type:      events.EventTicketCreated,
			TicketID:  ticket.ID,
			RoomID:    ticket.RoomID,
			Actor:     actor,
			Timestamp: ticket.CreatedAt,
			Payload: events.TicketCreatedPayload{
				Severity:            ticket.Severity,
				Priority:            ticket.Priority,
				Title:               ticket.Title,
				ExternalTicketID:    ticket.ExternalTicketID,
				ViolationPercentage: ticket.ViolationData.ViolationPercentage,
			},
		})
		return
	}
	a.publish(ctx, events.Event{
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		RoomID:    ticket.RoomID,
		Actor:     actor,
		Timestamp: ticket.UpdatedAt,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:  *old,
			NewStatus:  ticket.Status,
			AssignedTo: ticket.AssignedTo,
			Comment:    note,
		},
	})
}

func (a auditTrail) publish(ctx context.Context, event events.Event) {
	if a.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := a.dispatcher.Publish(ctx, event); err != nil {
		a.logger.Warn("failed to publish event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
