package domain

import "time"

// ScanResult summarizes one detection pass over the telemetry window.
type ScanResult struct {
	ReadingsAnalyzed   int       `json:"readings_analyzed"`
	ViolationsDetected int       `json:"violations_detected"`
	TicketsCreated     int       `json:"tickets_created"`
	TicketsSuppressed  int       `json:"tickets_suppressed"`
	ReadingsSkipped    int       `json:"readings_skipped"`
	ReadingsDeferred   int       `json:"readings_deferred"`
	Timestamp          time.Time `json:"timestamp"`
}
