package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/room-ticket-service/internal/events"
)

// NotificationService fans ticket events out to logs and, when configured,
// the Redis event stream read by the dashboard.
type NotificationService struct {
	dispatcher events.Dispatcher
	stream     events.EventHandler
	logger     *zap.Logger
}

// NewNotificationService creates the service. stream may be nil.
func NewNotificationService(dispatcher events.Dispatcher, stream events.EventHandler, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		stream:     stream,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventDetectionSuppressed, n.handleDetectionSuppressed)
	n.dispatcher.Subscribe(events.EventScanCompleted, n.handleScanCompleted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated",
		zap.String("ticket_id", event.TicketID),
		zap.String("room_id", event.RoomID),
		zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("actor", string(event.Actor)),
		zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleDetectionSuppressed(ctx context.Context, event events.Event) error {
	n.logger.Debug("DetectionSuppressed", zap.String("room_id", event.RoomID), zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleScanCompleted(ctx context.Context, event events.Event) error {
	n.logger.Debug("ScanCompleted", zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	if n.stream == nil {
		return nil
	}
	return n.stream(ctx, event)
}
