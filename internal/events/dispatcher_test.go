package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

func TestDispatcher_InvokesAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketStatusChanged, func(ctx context.Context, e Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestStreamSink_Handle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewStreamSink(client, "room-tickets:events", 100)
	event := Event{
		ID:        "evt-1",
		Type:      EventTicketStatusChanged,
		TicketID:  "t-1",
		RoomID:    "room-1",
		Actor:     domain.ChangeActorScheduler,
		Timestamp: time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC),
		Payload: TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusQueued,
			NewStatus: domain.TicketStatusProcessing,
		},
	}
	require.NoError(t, sink.Handle(context.Background(), event))

	entries, err := client.XRange(context.Background(), "room-tickets:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	values := entries[0].Values
	assert.Equal(t, "ticket_status_changed", values["type"])
	assert.Equal(t, "t-1", values["ticket_id"])
	assert.Equal(t, "SCHEDULER", values["actor"])
	assert.JSONEq(t, `{"old_status":"queued","new_status":"processing"}`, values["payload"].(string))
}
