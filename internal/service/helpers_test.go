package service

import (
	"time"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

var baseTime = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func testRoom(id string, capacity int) domain.Room {
	return domain.Room{ID: id, Name: "Board Room " + id, Capacity: capacity, Floor: 3, Building: "North Tower"}
}

func testReading(id, roomID string, occupancy, airQuality int, at time.Time) domain.SensorReading {
	return domain.SensorReading{
		ID:          id,
		RoomID:      roomID,
		Occupancy:   occupancy,
		Temperature: 22.5,
		NoiseLevel:  48,
		AirQuality:  airQuality,
		Timestamp:   at,
	}
}

func queuedTicket(id, roomID string, priority int, createdAt time.Time) *domain.ServiceTicket {
	due := createdAt
	return &domain.ServiceTicket{
		ID:               id,
		RoomID:           roomID,
		TicketType:       domain.TicketTypeCapacityViolation,
		Title:            "Capacity Violation - " + roomID,
		Severity:         domain.SeverityMedium,
		Status:           domain.TicketStatusQueued,
		Priority:         priority,
		TriggerReadingID: "reading-" + id,
		ExternalTicketID: "INC0000001",
		ExternalSystem:   domain.ExternalSystemServiceNow,
		NextTransitionAt: &due,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}
