package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/room-ticket-service/internal/clock"
	"github.com/spec-kit/room-ticket-service/internal/domain"
	"github.com/spec-kit/room-ticket-service/internal/events"
	"github.com/spec-kit/room-ticket-service/internal/repository"
)

type lifecycleFixture struct {
	scheduler *LifecycleScheduler
	tickets   *repository.MemoryTicketRepository
	history   *repository.MemoryTicketHistoryRepository
	clock     *clock.Fake
	events    *eventRecorder
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newRecordingDispatcher() (events.Dispatcher, *eventRecorder) {
	d := events.NewInMemoryDispatcher()
	rec := &eventRecorder{}
	d.Subscribe(events.EventTicketCreated, rec.handle)
	d.Subscribe(events.EventTicketStatusChanged, rec.handle)
	d.Subscribe(events.EventScanCompleted, rec.handle)
	return d, rec
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	tickets := repository.NewMemoryTicketRepository()
	history := repository.NewMemoryTicketHistoryRepository()
	clk := clock.NewFake(baseTime)
	dispatcher, rec := newRecordingDispatcher()
	s := NewLifecycleScheduler(LifecycleDependencies{
		TicketRepo:      tickets,
		HistoryRepo:     history,
		Dispatcher:      dispatcher,
		Clock:           clk,
		Picker:          FirstPicker,
		Delays:          DelayPolicy{Dequeue: 30 * time.Second, Triage: 2 * time.Minute, Close: 10 * time.Minute},
		Technicians:     []string{"Ana - Facilities", "Ben - HVAC"},
		ResolutionNotes: []string{"Room cleared."},
		Workers:         4,
		Logger:          zap.NewNop(),
	})
	return &lifecycleFixture{scheduler: s, tickets: tickets, history: history, clock: clk, events: rec}
}

func TestLifecycleScheduler_FullWorkflow(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tickets.Create(ctx, queuedTicket("t1", "r1", 1, baseTime)))

	f.clock.Advance(time.Second)
	applied, err := f.scheduler.Dequeue(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, applied)
	got, _ := f.tickets.GetByID(ctx, "t1")
	assert.Equal(t, domain.TicketStatusProcessing, got.Status)
	assert.Equal(t, f.clock.Now(), got.UpdatedAt)
	assert.Equal(t, f.clock.Now().Add(2*time.Minute), *got.NextTransitionAt)
	assert.Nil(t, got.AssignedTo)

	f.clock.Advance(time.Minute)
	applied, err = f.scheduler.Triage(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, applied)
	got, _ = f.tickets.GetByID(ctx, "t1")
	assert.Equal(t, domain.TicketStatusAssigned, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, "Ana - Facilities", *got.AssignedTo)
	assert.Equal(t, f.clock.Now(), *got.AssignedAt)

	f.clock.Advance(time.Minute)
	applied, err = f.scheduler.Close(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, applied)
	got, _ = f.tickets.GetByID(ctx, "t1")
	assert.Equal(t, domain.TicketStatusResolved, got.Status)
	assert.Equal(t, "Room cleared.", *got.ResolutionNotes)
	assert.Equal(t, f.clock.Now(), *got.ResolvedAt)
	assert.Nil(t, got.NextTransitionAt)

	entries, err := f.history.ListByTicket(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, want := range []domain.TicketStatus{domain.TicketStatusProcessing, domain.TicketStatusAssigned, domain.TicketStatusResolved} {
		assert.Equal(t, want, entries[i].NewStatus)
		assert.Equal(t, domain.ChangeActorScheduler, entries[i].Actor)
	}
	assert.Equal(t, []events.EventType{
		events.EventTicketStatusChanged, events.EventTicketStatusChanged, events.EventTicketStatusChanged,
	}, f.events.types())
}

func TestLifecycleScheduler_StepsAreIdempotent(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tickets.Create(ctx, queuedTicket("t1", "r1", 2, baseTime)))

	applied, err := f.scheduler.Dequeue(ctx, "t1")
	require.NoError(t, err)
	require.True(t, applied)
	before, _ := f.tickets.GetByID(ctx, "t1")

	f.clock.Advance(time.Hour)
	applied, err = f.scheduler.Dequeue(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, applied)
	applied, err = f.scheduler.Close(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, applied, "close must not skip triage")

	after, _ := f.tickets.GetByID(ctx, "t1")
	assert.Equal(t, before, after)

	entries, _ := f.history.ListByTicket(ctx, "t1")
	assert.Len(t, entries, 1)
}

func TestLifecycleScheduler_NoStepAfterManualResolve(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tickets.Create(ctx, queuedTicket("t1", "r1", 1, baseTime)))

	svc := NewTicketService(TicketDependencies{TicketRepo: f.tickets, HistoryRepo: f.history, Clock: f.clock})
	resolved, err := svc.Resolve(ctx, "t1", "Fixed")
	require.NoError(t, err)

	for _, step := range []func(context.Context, string) (bool, error){f.scheduler.Dequeue, f.scheduler.Triage, f.scheduler.Close} {
		applied, err := step(ctx, "t1")
		require.NoError(t, err)
		assert.False(t, applied)
	}
	got, _ := f.tickets.GetByID(ctx, "t1")
	assert.Equal(t, resolved, got)
}

func TestLifecycleScheduler_UnknownTicket(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.scheduler.Dequeue(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLifecycleScheduler_RunOnceAdvancesDueTickets(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	require.NoError(t, f.tickets.Create(ctx, queuedTicket("due", "r1", 1, baseTime)))
	later := queuedTicket("later", "r2", 1, baseTime)
	notYet := baseTime.Add(time.Hour)
	later.NextTransitionAt = &notYet
	require.NoError(t, f.tickets.Create(ctx, later))

	n, err := f.scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	due, _ := f.tickets.GetByID(ctx, "due")
	assert.Equal(t, domain.TicketStatusProcessing, due.Status)
	pending, _ := f.tickets.GetByID(ctx, "later")
	assert.Equal(t, domain.TicketStatusQueued, pending.Status)

	n, err = f.scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "processing ticket not due until triage delay passes")

	f.clock.Advance(2 * time.Minute)
	n, err = f.scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	due, _ = f.tickets.GetByID(ctx, "due")
	assert.Equal(t, domain.TicketStatusAssigned, due.Status)
}

// flakyTicketRepository fails the first n ApplyTransition calls.
type flakyTicketRepository struct {
	*repository.MemoryTicketRepository
	mu       sync.Mutex
	failures int
}

func (r *flakyTicketRepository) ApplyTransition(ctx context.Context, tr repository.TicketTransition) (*domain.ServiceTicket, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	r.mu.Unlock()
	return r.MemoryTicketRepository.ApplyTransition(ctx, tr)
}

func TestLifecycleScheduler_FailedWriteIsRetriedOnNextPoll(t *testing.T) {
	repo := &flakyTicketRepository{MemoryTicketRepository: repository.NewMemoryTicketRepository(), failures: 1}
	clk := clock.NewFake(baseTime)
	s := NewLifecycleScheduler(LifecycleDependencies{TicketRepo: repo, Clock: clk, Picker: FirstPicker, Technicians: []string{"Ana"}})
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, queuedTicket("t1", "r1", 1, baseTime)))

	n, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	got, _ := repo.GetByID(ctx, "t1")
	assert.Equal(t, domain.TicketStatusQueued, got.Status)
	assert.Equal(t, baseTime, *got.NextTransitionAt)

	n, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, _ = repo.GetByID(ctx, "t1")
	assert.Equal(t, domain.TicketStatusProcessing, got.Status)
}

func TestLifecycleScheduler_StatusNeverMovesBackwards(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	const tickets = 20
	for i := 0; i < tickets; i++ {
		tk := queuedTicket(string(rune('a'+i)), string(rune('A'+i)), 1, baseTime)
		require.NoError(t, f.tickets.Create(ctx, tk))
	}
	svc := NewTicketService(TicketDependencies{TicketRepo: f.tickets, HistoryRepo: f.history, Clock: f.clock})

	var wg sync.WaitGroup
	for round := 0; round < 4; round++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.scheduler.RunOnce(ctx)
		}()
		go func(round int) {
			defer wg.Done()
			_, _ = svc.Resolve(ctx, string(rune('a'+round*3)), "manual")
		}(round)
		wg.Wait()
		f.clock.Advance(15 * time.Minute)
	}

	for i := 0; i < tickets; i++ {
		id := string(rune('a' + i))
		entries, err := f.history.ListByTicket(ctx, id)
		require.NoError(t, err)
		// history rows from racing writers may land out of order; the chain must still hold
		sort.Slice(entries, func(a, b int) bool { return entries[a].NewStatus.Rank() < entries[b].NewStatus.Rank() })
		last := domain.TicketStatusQueued
		for _, e := range entries {
			require.NotNil(t, e.OldStatus)
			assert.Equal(t, last, *e.OldStatus, "ticket %s history must chain", id)
			assert.True(t, e.OldStatus.CanAdvanceTo(e.NewStatus), "ticket %s moved %s -> %s", id, *e.OldStatus, e.NewStatus)
			last = e.NewStatus
		}
		got, _ := f.tickets.GetByID(ctx, id)
		assert.Equal(t, last, got.Status)
	}
}

func TestLifecycleScheduler_RunStopsOnCancel(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.scheduler.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
