package events

import (
	"time"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventDetectionSuppressed EventType = "detection_suppressed"
	EventScanCompleted       EventType = "scan_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string             `json:"id"`
	Type      EventType          `json:"type"`
	TicketID  string             `json:"ticket_id,omitempty"`
	RoomID    string             `json:"room_id,omitempty"`
	Actor     domain.ChangeActor `json:"actor"`
	Timestamp time.Time          `json:"timestamp"`
	Payload   interface{}        `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Severity            domain.Severity `json:"severity"`
	Priority            int             `json:"priority"`
	Title               string          `json:"title"`
	ExternalTicketID    string          `json:"external_ticket_id"`
	ViolationPercentage int             `json:"violation_percentage"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	AssignedTo *string             `json:"assigned_to,omitempty"`
	Comment    string              `json:"comment,omitempty"`
}

// DetectionSuppressedPayload payload.
type DetectionSuppressedPayload struct {
	ReadingID string `json:"reading_id"`
	Reason    string `json:"reason"`
}

// ScanCompletedPayload payload.
type ScanCompletedPayload struct {
	Result domain.ScanResult `json:"result"`
}
