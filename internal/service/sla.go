package service

import (
	"time"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// SLAStatus is the on-read health of a ticket against its priority threshold.
type SLAStatus string

const (
	SLAOnTrack SLAStatus = "on-track"
	SLAAtRisk  SLAStatus = "at-risk"
	SLAOverdue SLAStatus = "overdue"
)

const (
	defaultSLAThreshold = 24 * time.Hour
	atRiskRatio         = 0.8
)

var slaThresholds = map[int]time.Duration{
	1: 2 * time.Hour,
	2: 8 * time.Hour,
	3: 24 * time.Hour,
	4: 72 * time.Hour,
}

// SLAThreshold returns the resolution target for a priority.
func SLAThreshold(priority int) time.Duration {
	if th, ok := slaThresholds[priority]; ok {
		return th
	}
	return defaultSLAThreshold
}

// EvaluateSLA classifies a ticket's age. Resolved tickets are always on track.
func EvaluateSLA(priority int, createdAt time.Time, status domain.TicketStatus, now time.Time) SLAStatus {
	if status == domain.TicketStatusResolved {
		return SLAOnTrack
	}
	threshold := SLAThreshold(priority)
	age := now.Sub(createdAt)
	switch {
	case age > threshold:
		return SLAOverdue
	case float64(age) > atRiskRatio*float64(threshold):
		return SLAAtRisk
	default:
		return SLAOnTrack
	}
}
