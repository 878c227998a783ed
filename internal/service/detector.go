package service

import (
	"errors"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// Rule identifiers reported in Violation.Rules and stored in the ticket snapshot.
const (
	RuleOverCapacity         = "over-capacity"
	RuleHighOccupancyPoorAir = "high-occupancy-poor-air"
)

const (
	highOccupancyRatio = 0.9
	poorAirThreshold   = 70
)

// ErrInvalidRoom is returned when a room has no usable capacity.
var ErrInvalidRoom = errors.New("room capacity must be positive")

// Violation is the classification of a single reading.
type Violation struct {
	IsViolation bool
	Percentage  float64
	Rules       []string
}

// ViolationDetector classifies readings against their room. It holds no state.
type ViolationDetector struct{}

// NewViolationDetector returns a detector.
func NewViolationDetector() *ViolationDetector {
	return &ViolationDetector{}
}

// Evaluate applies both rules independently and reports every rule that matched.
func (d *ViolationDetector) Evaluate(reading domain.SensorReading, room domain.Room) (Violation, error) {
	if room.Capacity <= 0 {
		return Violation{}, ErrInvalidRoom
	}
	occupancy := float64(reading.Occupancy)
	capacity := float64(room.Capacity)

	v := Violation{Percentage: occupancy / capacity * 100}
	if reading.Occupancy > room.Capacity {
		v.Rules = append(v.Rules, RuleOverCapacity)
	}
	if occupancy >= highOccupancyRatio*capacity && reading.AirQuality < poorAirThreshold {
		v.Rules = append(v.Rules, RuleHighOccupancyPoorAir)
	}
	v.IsViolation = len(v.Rules) > 0
	return v, nil
}
