package service

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/room-ticket-service/internal/clock"
	"github.com/spec-kit/room-ticket-service/internal/domain"
)

const externalIDModulus = 10_000_000

// SeverityFor maps an unrounded violation percentage to a severity.
func SeverityFor(percentage float64) domain.Severity {
	switch {
	case percentage >= 150:
		return domain.SeverityCritical
	case percentage >= 125:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

// PriorityFor maps a severity to its priority, 1 being the most urgent.
func PriorityFor(severity domain.Severity) int {
	switch severity {
	case domain.SeverityCritical:
		return 1
	case domain.SeverityHigh:
		return 2
	case domain.SeverityMedium:
		return 3
	default:
		return 4
	}
}

// TicketFactory builds capacity violation tickets.
type TicketFactory struct {
	clock  clock.Clock
	delays DelayPolicy
}

// NewTicketFactory creates a factory. delays decides when the first lifecycle
// step becomes due.
func NewTicketFactory(clk clock.Clock, delays DelayPolicy) *TicketFactory {
	return &TicketFactory{clock: clk, delays: delays}
}

// Build returns a queued ticket for a reading that violated room limits.
func (f *TicketFactory) Build(reading domain.SensorReading, room domain.Room, violation Violation) *domain.ServiceTicket {
	now := f.clock.Now()
	severity := SeverityFor(violation.Percentage)

	return &domain.ServiceTicket{
		ID:               uuid.NewString(),
		RoomID:           room.ID,
		TicketType:       domain.TicketTypeCapacityViolation,
		Title:            fmt.Sprintf("Capacity Violation - %s", room.Name),
		Description:      describe(reading, room),
		Severity:         severity,
		Status:           domain.TicketStatusQueued,
		Priority:         PriorityFor(severity),
		TriggerReadingID: reading.ID,
		ViolationData: domain.ViolationData{
			Occupancy:           reading.Occupancy,
			Capacity:            room.Capacity,
			ViolationPercentage: int(math.Round(violation.Percentage)),
			Rules:               append([]string(nil), violation.Rules...),
			EnvironmentalData: domain.EnvironmentalData{
				Temperature:      reading.Temperature,
				NoiseLevel:       reading.NoiseLevel,
				AirQuality:       reading.AirQuality,
				ReadingTimestamp: reading.Timestamp,
			},
			RoomDetails: domain.RoomDetails{
				Name:     room.Name,
				Floor:    room.Floor,
				Building: room.Building,
			},
		},
		ExternalTicketID: ExternalTicketID(now),
		ExternalSystem:   domain.ExternalSystemServiceNow,
		NextTransitionAt: f.delays.DueAt(domain.TicketStatusQueued, now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ExternalTicketID formats the incident label from the low 7 digits of the
// millisecond clock. Two tickets built in the same millisecond share a label.
func ExternalTicketID(at time.Time) string {
	return fmt.Sprintf("INC%07d", at.UnixMilli()%externalIDModulus)
}

func describe(reading domain.SensorReading, room domain.Room) string {
	return fmt.Sprintf(
		"Room %s is over its safe limits with %d occupants against a capacity of %d. "+
			"Location: floor %d, %s. Reading taken at %s. "+
			"Environment: temperature %.1f°C, air quality %d, noise level %.1f dB.",
		room.Name, reading.Occupancy, room.Capacity,
		room.Floor, room.Building, reading.Timestamp.UTC().Format(time.RFC3339),
		reading.Temperature, reading.AirQuality, reading.NoiseLevel,
	)
}
