package service

import (
	"math/rand/v2"
	"time"

	"github.com/spec-kit/room-ticket-service/internal/config"
	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// DelayPolicy decides how long a ticket waits in a status before the
// scheduler moves it on.
type DelayPolicy struct {
	Dequeue       time.Duration
	Triage        time.Duration
	Close         time.Duration
	JitterPercent int
}

// NewDelayPolicy builds the policy from lifecycle configuration.
func NewDelayPolicy(cfg config.LifecycleConfig) DelayPolicy {
	return DelayPolicy{
		Dequeue:       time.Duration(cfg.DequeueDelaySeconds) * time.Second,
		Triage:        time.Duration(cfg.TriageDelaySeconds) * time.Second,
		Close:         time.Duration(cfg.CloseDelaySeconds) * time.Second,
		JitterPercent: cfg.JitterPercent,
	}
}

// Wait returns the delay before a ticket leaves status. ok is false for the
// terminal status.
func (p DelayPolicy) Wait(status domain.TicketStatus) (time.Duration, bool) {
	var base time.Duration
	switch status {
	case domain.TicketStatusQueued:
		base = p.Dequeue
	case domain.TicketStatusProcessing:
		base = p.Triage
	case domain.TicketStatusAssigned:
		base = p.Close
	default:
		return 0, false
	}
	return p.jitter(base), true
}

// DueAt returns when a ticket entering status at now becomes due, or nil.
func (p DelayPolicy) DueAt(status domain.TicketStatus, now time.Time) *time.Time {
	d, ok := p.Wait(status)
	if !ok {
		return nil
	}
	due := now.Add(d)
	return &due
}

func (p DelayPolicy) jitter(base time.Duration) time.Duration {
	if base <= 0 || p.JitterPercent <= 0 {
		return max(base, 0)
	}
	spread := int64(base) * int64(p.JitterPercent) / 100
	if spread <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(2*spread+1)-spread)
}
