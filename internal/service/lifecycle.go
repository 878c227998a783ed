package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/room-ticket-service/internal/clock"
	"github.com/spec-kit/room-ticket-service/internal/domain"
	"github.com/spec-kit/room-ticket-service/internal/events"
	"github.com/spec-kit/room-ticket-service/internal/observability"
	"github.com/spec-kit/room-ticket-service/internal/repository"
)

// Step names used in logs, history notes and metrics.
const (
	StepDequeue = "dequeue"
	StepTriage  = "triage"
	StepClose   = "close"
)

type lifecycleStep struct {
	name string
	from domain.TicketStatus
	to   domain.TicketStatus
}

var (
	dequeueStep = lifecycleStep{name: StepDequeue, from: domain.TicketStatusQueued, to: domain.TicketStatusProcessing}
	triageStep  = lifecycleStep{name: StepTriage, from: domain.TicketStatusProcessing, to: domain.TicketStatusAssigned}
	closeStep   = lifecycleStep{name: StepClose, from: domain.TicketStatusAssigned, to: domain.TicketStatusResolved}
)

func stepFrom(status domain.TicketStatus) (lifecycleStep, bool) {
	for _, step := range []lifecycleStep{dequeueStep, triageStep, closeStep} {
		if step.from == status {
			return step, true
		}
	}
	return lifecycleStep{}, false
}

// LifecycleDependencies bundles collaborators of the scheduler.
type LifecycleDependencies struct {
	TicketRepo      repository.TicketRepository
	HistoryRepo     repository.TicketHistoryRepository
	Dispatcher      events.Dispatcher
	Clock           clock.Clock
	Picker          Picker
	Delays          DelayPolicy
	Technicians     []string
	ResolutionNotes []string
	BatchSize       int
	Workers         int
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// LifecycleScheduler moves tickets through queued, processing, assigned and
// resolved. Each step is a conditional write, so repeated or racing attempts
// on the same ticket apply at most once.
type LifecycleScheduler struct {
	tickets         repository.TicketRepository
	audit           auditTrail
	clock           clock.Clock
	picker          Picker
	delays          DelayPolicy
	technicians     []string
	resolutionNotes []string
	batchSize       int
	workers         int
	logger          *zap.Logger
	metrics         *observability.Metrics
}

// NewLifecycleScheduler constructs the scheduler.
func NewLifecycleScheduler(deps LifecycleDependencies) *LifecycleScheduler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	picker := deps.Picker
	if picker == nil {
		picker = NewRandomPicker()
	}
	notes := deps.ResolutionNotes
	if len(notes) == 0 {
		notes = DefaultResolutionNotes
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = 100
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = 1
	}
	return &LifecycleScheduler{
		tickets:         deps.TicketRepo,
		audit:           auditTrail{history: deps.HistoryRepo, dispatcher: deps.Dispatcher, logger: logger},
		clock:           clk,
		picker:          picker,
		delays:          deps.Delays,
		technicians:     append([]string(nil), deps.Technicians...),
		resolutionNotes: append([]string(nil), notes...),
		batchSize:       batch,
		workers:         workers,
		logger:          logger,
		metrics:         deps.Metrics,
	}
}

// Dequeue moves a queued ticket to processing. It is a no-op otherwise.
func (s *LifecycleScheduler) Dequeue(ctx context.Context, ticketID string) (bool, error) {
	return s.applyByID(ctx, ticketID, dequeueStep)
}

// Triage assigns a technician to a processing ticket. It is a no-op otherwise.
func (s *LifecycleScheduler) Triage(ctx context.Context, ticketID string) (bool, error) {
	return s.applyByID(ctx, ticketID, triageStep)
}

// Close resolves an assigned ticket with a canned note. It is a no-op otherwise.
func (s *LifecycleScheduler) Close(ctx context.Context, ticketID string) (bool, error) {
	return s.applyByID(ctx, ticketID, closeStep)
}

// Advance applies whichever step follows the ticket's current status.
func (s *LifecycleScheduler) Advance(ctx context.Context, ticketID string) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, fmt.Errorf("load ticket %s: %w", ticketID, err)
	}
	step, ok := stepFrom(ticket.Status)
	if !ok {
		return false, nil
	}
	return s.apply(ctx, ticket, step)
}

// RunOnce advances every due ticket by one step and returns how many
// transitions were applied. Failed tickets keep their status and due time and
// are picked up again on the next poll.
func (s *LifecycleScheduler) RunOnce(ctx context.Context) (int, error) {
	due, err := s.tickets.ListDue(ctx, s.clock.Now(), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due tickets: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	var applied atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range due {
		ticket := due[i]
		g.Go(func() error {
			step, ok := stepFrom(ticket.Status)
			if !ok {
				return nil
			}
			ok, err := s.apply(gctx, &ticket, step)
			if err != nil {
				s.logger.Error("lifecycle transition failed",
					zap.String("ticket_id", ticket.ID),
					zap.String("step", step.name),
					zap.Error(err))
				return nil
			}
			if ok {
				applied.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(applied.Load()), ctx.Err()
}

// Run polls for due transitions until ctx is cancelled.
func (s *LifecycleScheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("lifecycle poll failed", zap.Error(err))
		} else if n > 0 {
			s.logger.Debug("lifecycle poll applied transitions", zap.Int("count", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *LifecycleScheduler) applyByID(ctx context.Context, ticketID string, step lifecycleStep) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return false, fmt.Errorf("load ticket %s: %w", ticketID, err)
	}
	return s.apply(ctx, ticket, step)
}

func (s *LifecycleScheduler) apply(ctx context.Context, ticket *domain.ServiceTicket, step lifecycleStep) (bool, error) {
	if ticket.Status != step.from {
		s.metrics.RecordTransition(step.name, "skipped")
		return false, nil
	}

	now := s.clock.Now()
	tr := repository.TicketTransition{
		TicketID:         ticket.ID,
		From:             step.from,
		To:               step.to,
		NextTransitionAt: s.delays.DueAt(step.to, now),
		UpdatedAt:        now,
	}
	switch step.to {
	case domain.TicketStatusAssigned:
		technician := s.picker.Pick(s.technicians)
		tr.AssignedTo = &technician
		tr.AssignedAt = &now
	case domain.TicketStatusResolved:
		notes := s.picker.Pick(s.resolutionNotes)
		tr.ResolutionNotes = &notes
		tr.ResolvedAt = &now
	}

	updated, err := s.tickets.ApplyTransition(ctx, tr)
	if errors.Is(err, repository.ErrTransitionNotApplied) {
		s.metrics.RecordTransition(step.name, "skipped")
		return false, nil
	}
	if err != nil {
		s.metrics.RecordTransition(step.name, "failed")
		return false, fmt.Errorf("%s ticket %s: %w", step.name, ticket.ID, err)
	}

	s.metrics.RecordTransition(step.name, "applied")
	s.logger.Info("ticket transitioned",
		zap.String("ticket_id", updated.ID),
		zap.String("step", step.name),
		zap.String("status", string(updated.Status)))
	from := step.from
	s.audit.statusChanged(ctx, updated, &from, domain.ChangeActorScheduler, step.name)
	return true, nil
}
