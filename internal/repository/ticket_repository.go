package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// TicketTransition describes a conditional status change. It is applied only
// when the stored ticket is still in From. Nil optional fields leave the stored
// value untouched; NextTransitionAt is always written.
type TicketTransition struct {
	TicketID         string
	From             domain.TicketStatus
	To               domain.TicketStatus
	AssignedTo       *string
	AssignedAt       *time.Time
	ResolvedAt       *time.Time
	ResolutionNotes  *string
	NextTransitionAt *time.Time
	UpdatedAt        time.Time
}

// TicketRepository encapsulates ticket persistence. It is the only owner of
// ticket state; all writes go through Create and ApplyTransition.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.ServiceTicket) error
	GetByID(ctx context.Context, id string) (*domain.ServiceTicket, error)
	ListActiveByRoom(ctx context.Context, roomID string, ticketType domain.TicketType) ([]domain.ServiceTicket, error)
	ListAll(ctx context.Context) ([]domain.ServiceTicket, error)
	ExistsForReading(ctx context.Context, readingID string) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ServiceTicket, error)
	ApplyTransition(ctx context.Context, tr TicketTransition) (*domain.ServiceTicket, error)
}

const ticketColumns = `id, room_id, ticket_type, title, description, severity, status, priority,
               trigger_reading_id, violation_data, assigned_to, assigned_at, resolved_at, resolution_notes,
               external_ticket_id, external_system, next_transition_at, created_at, updated_at`

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.ServiceTicket) error {
	const query = `
        INSERT INTO service_tickets (id, room_id, ticket_type, title, description, severity, status, priority,
            trigger_reading_id, violation_data, external_ticket_id, external_system, next_transition_at,
            created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := r.db.Exec(ctx, query,
		ticket.ID,
		ticket.RoomID,
		ticket.TicketType,
		ticket.Title,
		ticket.Description,
		ticket.Severity,
		ticket.Status,
		ticket.Priority,
		ticket.TriggerReadingID,
		ticket.ViolationData,
		ticket.ExternalTicketID,
		ticket.ExternalSystem,
		ticket.NextTransitionAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveTicketExists
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.ServiceTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM service_tickets WHERE id=$1`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return ticket, nil
}

func (r *ticketRepository) ListActiveByRoom(ctx context.Context, roomID string, ticketType domain.TicketType) ([]domain.ServiceTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM service_tickets
             WHERE room_id=$1 AND ticket_type=$2 AND status IN ($3,$4,$5)
             ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, roomID, ticketType,
		domain.TicketStatusQueued, domain.TicketStatusProcessing, domain.TicketStatusAssigned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.ServiceTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM service_tickets ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ExistsForReading reports whether any ticket, resolved or not, was raised by the reading.
func (r *ticketRepository) ExistsForReading(ctx context.Context, readingID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM service_tickets WHERE trigger_reading_id=$1)`
	if err := r.db.QueryRow(ctx, query, readingID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ticketRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ServiceTicket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + ticketColumns + ` FROM service_tickets
             WHERE status <> $1 AND next_transition_at IS NOT NULL AND next_transition_at <= $2
             ORDER BY next_transition_at ASC LIMIT $3`
	rows, err := r.db.Query(ctx, query, domain.TicketStatusResolved, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ApplyTransition(ctx context.Context, tr TicketTransition) (*domain.ServiceTicket, error) {
	query := `
        UPDATE service_tickets SET status=$1,
            assigned_to=COALESCE($2, assigned_to), assigned_at=COALESCE($3, assigned_at),
            resolved_at=COALESCE($4, resolved_at), resolution_notes=COALESCE($5, resolution_notes),
            next_transition_at=$6, updated_at=$7
        WHERE id=$8 AND status=$9
        RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.db.QueryRow(ctx, query,
		tr.To,
		tr.AssignedTo,
		tr.AssignedAt,
		tr.ResolvedAt,
		tr.ResolutionNotes,
		tr.NextTransitionAt,
		tr.UpdatedAt,
		tr.TicketID,
		tr.From,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransitionNotApplied
		}
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.ServiceTicket, error) {
	var ticket domain.ServiceTicket
	if err := row.Scan(
		&ticket.ID,
		&ticket.RoomID,
		&ticket.TicketType,
		&ticket.Title,
		&ticket.Description,
		&ticket.Severity,
		&ticket.Status,
		&ticket.Priority,
		&ticket.TriggerReadingID,
		&ticket.ViolationData,
		&ticket.AssignedTo,
		&ticket.AssignedAt,
		&ticket.ResolvedAt,
		&ticket.ResolutionNotes,
		&ticket.ExternalTicketID,
		&ticket.ExternalSystem,
		&ticket.NextTransitionAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.ServiceTicket, error) {
	var result []domain.ServiceTicket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
