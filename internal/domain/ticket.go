package domain

import "time"

// TicketType classifies what raised the work order.
type TicketType string

const (
	TicketTypeCapacityViolation TicketType = "capacity_violation"
	TicketTypeMaintenance       TicketType = "maintenance"
	TicketTypeEnvironmental     TicketType = "environmental"
)

// TicketStatus enumerates the fixed lifecycle states.
type TicketStatus string

const (
	TicketStatusQueued     TicketStatus = "queued"
	TicketStatusProcessing TicketStatus = "processing"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusResolved   TicketStatus = "resolved"
)

// TicketStatuses lists statuses in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusQueued,
	TicketStatusProcessing,
	TicketStatusAssigned,
	TicketStatusResolved,
}

// ActiveTicketStatuses are the statuses covered by the one-active-ticket rule.
var ActiveTicketStatuses = []TicketStatus{
	TicketStatusQueued,
	TicketStatusProcessing,
	TicketStatusAssigned,
}

// Rank returns the position of the status in the workflow, or -1 when unknown.
func (s TicketStatus) Rank() int {
	for i, candidate := range TicketStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s.Rank() >= 0
}

// IsActive reports whether the ticket still counts against the room.
func (s TicketStatus) IsActive() bool {
	return s.Valid() && s != TicketStatusResolved
}

// CanAdvanceTo reports whether moving from s to next keeps the status monotonic.
func (s TicketStatus) CanAdvanceTo(next TicketStatus) bool {
	return s.Valid() && next.Valid() && next.Rank() > s.Rank()
}

// Severity of a ticket.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ExternalSystemServiceNow is the label stamped on every ticket. No call is made to it.
const ExternalSystemServiceNow = "ServiceNow"

// EnvironmentalData is the environment half of the violation snapshot.
type EnvironmentalData struct {
	Temperature      float64   `json:"temperature"`
	NoiseLevel       float64   `json:"noise_level"`
	AirQuality       int       `json:"air_quality"`
	ReadingTimestamp time.Time `json:"reading_timestamp"`
}

// RoomDetails is the room half of the violation snapshot.
type RoomDetails struct {
	Name     string `json:"name"`
	Floor    int    `json:"floor"`
	Building string `json:"building"`
}

// ViolationData is frozen at ticket creation and never rewritten.
type ViolationData struct {
	Occupancy           int               `json:"occupancy"`
	Capacity            int               `json:"capacity"`
	ViolationPercentage int               `json:"violation_percentage"`
	Rules               []string          `json:"rules,omitempty"`
	EnvironmentalData   EnvironmentalData `json:"environmental_data"`
	RoomDetails         RoomDetails       `json:"room_details"`
}

// ServiceTicket is the facility work order and permanent audit record.
type ServiceTicket struct {
	ID               string
	RoomID           string
	TicketType       TicketType
	Title            string
	Description      string
	Severity         Severity
	Status           TicketStatus
	Priority         int
	TriggerReadingID string
	ViolationData    ViolationData
	AssignedTo       *string
	AssignedAt       *time.Time
	ResolvedAt       *time.Time
	ResolutionNotes  *string
	ExternalTicketID string
	ExternalSystem   string
	NextTransitionAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a deep copy so callers cannot mutate a stored ticket.
func (t *ServiceTicket) Clone() *ServiceTicket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.ViolationData.Rules = append([]string(nil), t.ViolationData.Rules...)
	cp.AssignedTo = cloneString(t.AssignedTo)
	cp.ResolutionNotes = cloneString(t.ResolutionNotes)
	cp.AssignedAt = cloneTime(t.AssignedAt)
	cp.ResolvedAt = cloneTime(t.ResolvedAt)
	cp.NextTransitionAt = cloneTime(t.NextTransitionAt)
	return &cp
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
