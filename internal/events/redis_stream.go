package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamSink appends events to a Redis stream consumed by the dashboard.
type StreamSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewStreamSink creates a sink writing to stream, trimmed to roughly maxLen entries.
func NewStreamSink(client redis.UniversalClient, stream string, maxLen int64) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: maxLen}
}

// Handle is an EventHandler that XADDs the event.
func (s *StreamSink) Handle(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":        event.ID,
			"type":      string(event.Type),
			"ticket_id": event.TicketID,
			"room_id":   event.RoomID,
			"actor":     string(event.Actor),
			"timestamp": event.Timestamp.UTC().Format(time.RFC3339Nano),
			"payload":   string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
