package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// MemoryTicketRepository keeps tickets in process. It enforces the same
// one-active-ticket-per-room-and-type rule as the Postgres partial unique index.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.ServiceTicket
}

// NewMemoryTicketRepository creates an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]*domain.ServiceTicket)}
}

func (r *MemoryTicketRepository) Create(ctx context.Context, ticket *domain.ServiceTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.Status.IsActive() {
		for _, existing := range r.tickets {
			if existing.RoomID == ticket.RoomID && existing.TicketType == ticket.TicketType && existing.Status.IsActive() {
				return ErrActiveTicketExists
			}
		}
	}
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *MemoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.ServiceTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *MemoryTicketRepository) ListActiveByRoom(ctx context.Context, roomID string, ticketType domain.TicketType) ([]domain.ServiceTicket, error) {
	return r.list(func(t *domain.ServiceTicket) bool {
		return t.RoomID == roomID && t.TicketType == ticketType && t.Status.IsActive()
	}, byCreatedAt), nil
}

func (r *MemoryTicketRepository) ListAll(ctx context.Context) ([]domain.ServiceTicket, error) {
	return r.list(func(*domain.ServiceTicket) bool { return true }, byCreatedAt), nil
}

func (r *MemoryTicketRepository) ExistsForReading(ctx context.Context, readingID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tickets {
		if t.TriggerReadingID == readingID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryTicketRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ServiceTicket, error) {
	if limit <= 0 {
		limit = 100
	}
	due := r.list(func(t *domain.ServiceTicket) bool {
		return t.Status.IsActive() && t.NextTransitionAt != nil && !t.NextTransitionAt.After(now)
	}, func(a, b domain.ServiceTicket) bool {
		return a.NextTransitionAt.Before(*b.NextTransitionAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *MemoryTicketRepository) ApplyTransition(ctx context.Context, tr TicketTransition) (*domain.ServiceTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[tr.TicketID]
	if !ok || stored.Status != tr.From {
		return nil, ErrTransitionNotApplied
	}
	next := stored.Clone()
	next.Status = tr.To
	if tr.AssignedTo != nil {
		next.AssignedTo = cloneString(tr.AssignedTo)
	}
	if tr.AssignedAt != nil {
		next.AssignedAt = cloneTime(tr.AssignedAt)
	}
	if tr.ResolvedAt != nil {
		next.ResolvedAt = cloneTime(tr.ResolvedAt)
	}
	if tr.ResolutionNotes != nil {
		next.ResolutionNotes = cloneString(tr.ResolutionNotes)
	}
	next.NextTransitionAt = cloneTime(tr.NextTransitionAt)
	next.UpdatedAt = tr.UpdatedAt
	r.tickets[tr.TicketID] = next
	return next.Clone(), nil
}

func (r *MemoryTicketRepository) list(keep func(*domain.ServiceTicket) bool, less func(a, b domain.ServiceTicket) bool) []domain.ServiceTicket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ServiceTicket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if keep(t) {
			out = append(out, *t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byCreatedAt(a, b domain.ServiceTicket) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// MemoryTicketHistoryRepository keeps history entries in process.
type MemoryTicketHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]domain.TicketHistory
}

// NewMemoryTicketHistoryRepository creates an empty history store.
func NewMemoryTicketHistoryRepository() *MemoryTicketHistoryRepository {
	return &MemoryTicketHistoryRepository{entries: make(map[string][]domain.TicketHistory)}
}

func (r *MemoryTicketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[history.TicketID] = append(r.entries[history.TicketID], *history)
	return nil
}

func (r *MemoryTicketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.TicketHistory(nil), r.entries[ticketID]...), nil
}

// MemoryRoomRepository serves rooms from a fixed set.
type MemoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]domain.Room
}

// NewMemoryRoomRepository creates a room store seeded with rooms.
func NewMemoryRoomRepository(rooms ...domain.Room) *MemoryRoomRepository {
	r := &MemoryRoomRepository{rooms: make(map[string]domain.Room, len(rooms))}
	for _, room := range rooms {
		r.rooms[room.ID] = room
	}
	return r
}

// Put adds or replaces a room.
func (r *MemoryRoomRepository) Put(room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID] = room
}

func (r *MemoryRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &room, nil
}

// MemoryReadingRepository is an append-only in-process telemetry log.
type MemoryReadingRepository struct {
	mu       sync.RWMutex
	readings []domain.SensorReading
}

// NewMemoryReadingRepository creates a log seeded with readings.
func NewMemoryReadingRepository(readings ...domain.SensorReading) *MemoryReadingRepository {
	return &MemoryReadingRepository{readings: append([]domain.SensorReading(nil), readings...)}
}

// Append adds readings to the log.
func (r *MemoryReadingRepository) Append(readings ...domain.SensorReading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, readings...)
}

func (r *MemoryReadingRepository) ListSince(ctx context.Context, since time.Time) ([]domain.SensorReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SensorReading
	for _, reading := range r.readings {
		if !reading.Timestamp.Before(since) {
			out = append(out, reading)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
