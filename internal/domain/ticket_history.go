package domain

import "time"

// ChangeActor identifies which writer moved the ticket.
type ChangeActor string

const (
	ChangeActorScheduler ChangeActor = "SCHEDULER"
	ChangeActorManual    ChangeActor = "MANUAL"
	ChangeActorDetector  ChangeActor = "DETECTOR"
)

// TicketHistory is an immutable audit trail entry for a status change.
type TicketHistory struct {
	ID        string
	TicketID  string
	Actor     ChangeActor
	OldStatus *TicketStatus
	NewStatus TicketStatus
	Note      string
	CreatedAt time.Time
}
