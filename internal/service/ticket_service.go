package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/room-ticket-service/internal/clock"
	"github.com/spec-kit/room-ticket-service/internal/domain"
	"github.com/spec-kit/room-ticket-service/internal/events"
	"github.com/spec-kit/room-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/room-ticket-service/pkg/util/errorutil"
)

const (
	maxResolveAttempts = 4
	maxResolutionNotes = 2000
)

// TicketService is the manual entry point for reading and resolving tickets.
type TicketService struct {
	tickets repository.TicketRepository
	history repository.TicketHistoryRepository
	audit   auditTrail
	clock   clock.Clock
	logger  *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &TicketService{
		tickets: deps.TicketRepo,
		history: deps.HistoryRepo,
		audit:   auditTrail{history: deps.HistoryRepo, dispatcher: deps.Dispatcher, logger: logger},
		clock:   clk,
		logger:  logger,
	}
}

// Get returns a ticket by id.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.ServiceTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketLookupError(ticketID, err)
	}
	return ticket, nil
}

// History returns the status changes of a ticket, oldest first.
func (s *TicketService) History(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list history for ticket %s: %w", ticketID, err)
	}
	return entries, nil
}

// Resolve fast-forwards an active ticket to resolved with the given notes.
// assigned_to is left as it is. A ticket that is already resolved is returned
// unchanged. Scheduler steps that land between our read and write are retried
// against the fresh status.
func (s *TicketService) Resolve(ctx context.Context, ticketID, notes string) (*domain.ServiceTicket, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, apperrors.NewValidationError("resolution_notes required", nil)
	}
	if utf8.RuneCountInString(notes) > maxResolutionNotes {
		return nil, apperrors.NewValidationError("resolution_notes too long", map[string]any{"max_length": maxResolutionNotes})
	}

	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		current, err := s.Get(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if current.Status == domain.TicketStatusResolved {
			return current, nil
		}

		now := s.clock.Now()
		updated, err := s.tickets.ApplyTransition(ctx, repository.TicketTransition{
			TicketID:        ticketID,
			From:            current.Status,
			To:              domain.TicketStatusResolved,
			ResolvedAt:      &now,
			ResolutionNotes: &notes,
			UpdatedAt:       now,
		})
		if errors.Is(err, repository.ErrTransitionNotApplied) {
			s.logger.Debug("ticket changed during resolve, retrying",
				zap.String("ticket_id", ticketID),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve ticket %s: %w", ticketID, err)
		}

		s.logger.Info("ticket resolved manually",
			zap.String("ticket_id", ticketID),
			zap.String("previous_status", string(current.Status)))
		from := current.Status
		s.audit.statusChanged(ctx, updated, &from, domain.ChangeActorManual, notes)
		return updated, nil
	}
	return nil, apperrors.NewConflict("ticket is changing too quickly, retry", map[string]any{"ticket_id": ticketID})
}

func ticketLookupError(ticketID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return fmt.Errorf("get ticket %s: %w", ticketID, err)
}
