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

// Reasons attached to skipped readings and suppressed detections.
const (
	reasonInvalidReading = "invalid_reading"
	reasonMissingRoom    = "missing_room"
	reasonInvalidRoom    = "invalid_room"
	reasonRoomLookup     = "room_lookup_failed"
	reasonActiveTicket   = "active_ticket"
	reasonTicketed       = "reading_already_ticketed"
	reasonConstraint     = "storage_constraint"
	reasonCreateFailed   = "create_failed"
)

// ScanDependencies bundles collaborators of the scan service.
type ScanDependencies struct {
	ReadingRepo repository.ReadingRepository
	RoomRepo    repository.RoomRepository
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Summaries   repository.ScanSummaryStore
	Locker      repository.RoomLocker
	Dispatcher  events.Dispatcher
	Detector    *ViolationDetector
	Guard       *DeduplicationGuard
	Factory     *TicketFactory
	Clock       clock.Clock
	Window      time.Duration
	Workers     int
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// ScanService runs detection over the trailing telemetry window.
type ScanService struct {
	readings  repository.ReadingRepository
	rooms     repository.RoomRepository
	tickets   repository.TicketRepository
	summaries repository.ScanSummaryStore
	locker    repository.RoomLocker
	detector  *ViolationDetector
	guard     *DeduplicationGuard
	factory   *TicketFactory
	audit     auditTrail
	clock     clock.Clock
	window    time.Duration
	workers   int
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewScanService constructs the service.
func NewScanService(deps ScanDependencies) *ScanService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	detector := deps.Detector
	if detector == nil {
		detector = NewViolationDetector()
	}
	guard := deps.Guard
	if guard == nil {
		guard = NewDeduplicationGuard(deps.TicketRepo)
	}
	factory := deps.Factory
	if factory == nil {
		factory = NewTicketFactory(clk, DelayPolicy{})
	}
	locker := deps.Locker
	if locker == nil {
		locker = repository.NewLocalRoomLocker()
	}
	window := deps.Window
	if window <= 0 {
		window = 5 * time.Minute
	}
	workers := deps.Workers
	if workers <= 0 {
		workers = 1
	}
	return &ScanService{
		readings:  deps.ReadingRepo,
		rooms:     deps.RoomRepo,
		tickets:   deps.TicketRepo,
		summaries: deps.Summaries,
		locker:    locker,
		detector:  detector,
		guard:     guard,
		factory:   factory,
		audit:     auditTrail{history: deps.HistoryRepo, dispatcher: deps.Dispatcher, logger: logger},
		clock:     clk,
		window:    window,
		workers:   workers,
		logger:    logger,
		metrics:   deps.Metrics,
	}
}

type scanCounters struct {
	analyzed   atomic.Int64
	violations atomic.Int64
	created    atomic.Int64
	suppressed atomic.Int64
	skipped    atomic.Int64
	deferred   atomic.Int64
}

// Scan evaluates every reading of the window. Rooms are processed in
// parallel and the readings of one room in timestamp order, so a reading only
// meets the room lock held by another scan. Per-reading failures are logged
// and the scan continues; tickets created before a failure are kept.
func (s *ScanService) Scan(ctx context.Context) (*domain.ScanResult, error) {
	started := time.Now()
	now := s.clock.Now()
	readings, err := s.readings.ListSince(ctx, now.Add(-s.window))
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}

	var c scanCounters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, batch := range groupByRoom(readings) {
		g.Go(func() error {
			for _, reading := range batch {
				if gctx.Err() != nil {
					return nil
				}
				s.process(gctx, reading, &c)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.ScanResult{
		ReadingsAnalyzed:   int(c.analyzed.Load()),
		ViolationsDetected: int(c.violations.Load()),
		TicketsCreated:     int(c.created.Load()),
		TicketsSuppressed:  int(c.suppressed.Load()),
		ReadingsSkipped:    int(c.skipped.Load()),
		ReadingsDeferred:   int(c.deferred.Load()),
		Timestamp:          s.clock.Now(),
	}
	s.metrics.ObserveScan(time.Since(started))
	s.logger.Info("scan completed",
		zap.Int("readings_analyzed", result.ReadingsAnalyzed),
		zap.Int("violations_detected", result.ViolationsDetected),
		zap.Int("tickets_created", result.TicketsCreated),
		zap.Int("tickets_suppressed", result.TicketsSuppressed),
		zap.Int("readings_skipped", result.ReadingsSkipped),
		zap.Int("readings_deferred", result.ReadingsDeferred))

	if s.summaries != nil {
		if err := s.summaries.Save(ctx, *result); err != nil {
			s.logger.Warn("failed to cache scan summary", zap.Error(err))
		}
	}
	s.audit.publish(ctx, events.Event{
		Type:      events.EventScanCompleted,
		Actor:     domain.ChangeActorDetector,
		Timestamp: result.Timestamp,
		Payload:   events.ScanCompletedPayload{Result: *result},
	})
	return result, nil
}

// LatestResult returns the cached result of the last scan.
func (s *ScanService) LatestResult(ctx context.Context) (*domain.ScanResult, error) {
	if s.summaries == nil {
		return nil, repository.ErrNotFound
	}
	return s.summaries.Latest(ctx)
}

func (s *ScanService) process(ctx context.Context, reading domain.SensorReading, c *scanCounters) {
	c.analyzed.Add(1)
	s.metrics.RecordReadingAnalyzed()
	log := s.logger.With(zap.String("reading_id", reading.ID), zap.String("room_id", reading.RoomID))

	if !reading.Valid() {
		s.skip(c, reasonInvalidReading)
		log.Debug("skipping malformed reading")
		return
	}

	room, err := s.rooms.GetByID(ctx, reading.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.skip(c, reasonMissingRoom)
			log.Warn("skipping reading for unknown room")
		} else {
			s.skip(c, reasonRoomLookup)
			log.Error("room lookup failed", zap.Error(err))
		}
		return
	}

	violation, err := s.detector.Evaluate(reading, *room)
	if err != nil {
		s.skip(c, reasonInvalidRoom)
		log.Warn("skipping reading for room without capacity", zap.Error(err))
		return
	}
	if !violation.IsViolation {
		return
	}
	c.violations.Add(1)
	s.metrics.RecordViolation()

	unlock, locked, err := s.locker.TryLock(ctx, room.ID)
	switch {
	case err != nil:
		log.Warn("room lock unavailable, relying on storage constraint", zap.Error(err))
	case !locked:
		c.deferred.Add(1)
		s.metrics.RecordDeferred()
		log.Debug("room locked by another scan, deferring to the next window")
		return
	}
	defer unlock()

	active, err := s.guard.HasActiveTicket(ctx, room.ID, domain.TicketTypeCapacityViolation)
	if err != nil {
		log.Warn("dedup check failed, relying on storage constraint", zap.Error(err))
	}
	if active {
		s.suppress(ctx, c, reading, reasonActiveTicket)
		log.Debug("active ticket exists, detection suppressed")
		return
	}

	ticketed, err := s.tickets.ExistsForReading(ctx, reading.ID)
	if err != nil {
		log.Warn("trigger lookup failed", zap.Error(err))
	}
	if ticketed {
		s.suppress(ctx, c, reading, reasonTicketed)
		log.Debug("reading already raised a ticket")
		return
	}

	ticket := s.factory.Build(reading, *room, violation)
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrActiveTicketExists) {
			s.suppress(ctx, c, reading, reasonConstraint)
			log.Info("duplicate ticket rejected by store")
			return
		}
		s.metrics.RecordSuppressed(reasonCreateFailed)
		log.Error("failed to create ticket", zap.Error(err))
		return
	}

	c.created.Add(1)
	s.metrics.RecordTicketCreated(string(ticket.Severity))
	log.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("severity", string(ticket.Severity)),
		zap.Int("priority", ticket.Priority),
		zap.String("external_ticket_id", ticket.ExternalTicketID))
	s.audit.statusChanged(ctx, ticket, nil, domain.ChangeActorDetector, "created")
}

// groupByRoom keeps the input order within each room.
func groupByRoom(readings []domain.SensorReading) [][]domain.SensorReading {
	index := make(map[string]int)
	var batches [][]domain.SensorReading
	for _, reading := range readings {
		i, ok := index[reading.RoomID]
		if !ok {
			i = len(batches)
			index[reading.RoomID] = i
			batches = append(batches, nil)
		}
		batches[i] = append(batches[i], reading)
	}
	return batches
}

func (s *ScanService) skip(c *scanCounters, reason string) {
	c.skipped.Add(1)
	s.metrics.RecordReadingSkipped(reason)
}

func (s *ScanService) suppress(ctx context.Context, c *scanCounters, reading domain.SensorReading, reason string) {
	c.suppressed.Add(1)
	s.metrics.RecordSuppressed(reason)
	s.audit.publish(ctx, events.Event{
		Type:      events.EventDetectionSuppressed,
		RoomID:    reading.RoomID,
		Actor:     domain.ChangeActorDetector,
		Timestamp: s.clock.Now(),
		Payload:   events.DetectionSuppressedPayload{ReadingID: reading.ID, Reason: reason},
	})
}
