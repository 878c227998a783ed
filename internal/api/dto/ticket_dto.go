package dto

import (
	"time"

	"github.com/spec-kit/room-ticket-service/internal/domain"
	"github.com/spec-kit/room-ticket-service/internal/service"
)

// ResolveTicketRequest payload.
type ResolveTicketRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// TicketResponse is the full ticket as served to the dashboard.
type TicketResponse struct {
	ID               string               `json:"id"`
	RoomID           string               `json:"room_id"`
	TicketType       domain.TicketType    `json:"ticket_type"`
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	Severity         domain.Severity      `json:"severity"`
	Status           domain.TicketStatus  `json:"status"`
	Priority         int                  `json:"priority"`
	TriggerReadingID string               `json:"trigger_reading_id"`
	ViolationData    domain.ViolationData `json:"violation_data"`
	AssignedTo       *string              `json:"assigned_to"`
	AssignedAt       *time.Time           `json:"assigned_at"`
	ResolvedAt       *time.Time           `json:"resolved_at"`
	ResolutionNotes  *string              `json:"resolution_notes"`
	ExternalTicketID string               `json:"external_ticket_id"`
	ExternalSystem   string               `json:"external_system"`
	NextTransitionAt *time.Time           `json:"next_transition_at,omitempty"`
	SLAStatus        service.SLAStatus    `json:"sla_status"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID        string               `json:"id"`
	Actor     domain.ChangeActor   `json:"actor"`
	OldStatus *domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus  `json:"new_status"`
	Note      string               `json:"note,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// TicketFromDomain maps a ticket and its SLA status.
func TicketFromDomain(t domain.ServiceTicket, sla service.SLAStatus) TicketResponse {
	return TicketResponse{
		ID:               t.ID,
		RoomID:           t.RoomID,
		TicketType:       t.TicketType,
		Title:            t.Title,
		Description:      t.Description,
		Severity:         t.Severity,
		Status:           t.Status,
		Priority:         t.Priority,
		TriggerReadingID: t.TriggerReadingID,
		ViolationData:    t.ViolationData,
		AssignedTo:       t.AssignedTo,
		AssignedAt:       t.AssignedAt,
		ResolvedAt:       t.ResolvedAt,
		ResolutionNotes:  t.ResolutionNotes,
		ExternalTicketID: t.ExternalTicketID,
		ExternalSystem:   t.ExternalSystem,
		NextTransitionAt: t.NextTransitionAt,
		SLAStatus:        sla,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// TicketsFromViews maps query results.
func TicketsFromViews(views []service.TicketView) []TicketResponse {
	out := make([]TicketResponse, 0, len(views))
	for _, v := range views {
		out = append(out, TicketFromDomain(v.Ticket, v.SLA))
	}
	return out
}

// HistoryFromDomain maps audit entries.
func HistoryFromDomain(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TicketHistoryResponse{
			ID:        e.ID,
			Actor:     e.Actor,
			OldStatus: e.OldStatus,
			NewStatus: e.NewStatus,
			Note:      e.Note,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
