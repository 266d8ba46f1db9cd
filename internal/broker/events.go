package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes storefront events. Every event is keyed by the
// payment reference so a reference's events stay ordered.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func referenceKey(reference string) string {
	return fmt.Sprintf("ref-%s", reference)
}

// PublishOrderPaid publishes OrderPaid event
func (ep *EventPublisher) PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	return ep.producer.PublishEvent(ctx, referenceKey(event.Reference), event)
}

// PublishReceiptRequested publishes ReceiptRequested event
func (ep *EventPublisher) PublishReceiptRequested(ctx context.Context, event *models.ReceiptRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, referenceKey(event.Receipt.AccessInfo.Reference), event)
}

// PublishDeliveryUnrecorded publishes DeliveryUnrecorded event
func (ep *EventPublisher) PublishDeliveryUnrecorded(ctx context.Context, event *models.DeliveryUnrecordedEvent) error {
	return ep.producer.PublishEvent(ctx, referenceKey(event.Reference), event)
}

// DispatchReceipt queues a receipt for the notification worker
func (ep *EventPublisher) DispatchReceipt(ctx context.Context, receipt *models.Receipt) error {
	event := &models.ReceiptRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReceiptRequested,
			Timestamp: time.Now(),
		},
		Receipt: *receipt,
	}
	return ep.PublishReceiptRequested(ctx, event)
}

// ErrMalformedEvent marks a message that can never be handled. The consumer
// commits past it instead of retrying.
var ErrMalformedEvent = errors.New("malformed event")

// EventHandler handles incoming events
type EventHandler struct {
	onReceiptRequested func(context.Context, *models.ReceiptRequestedEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnReceiptRequested registers a handler for ReceiptRequested events
func (eh *EventHandler) OnReceiptRequested(handler func(context.Context, *models.ReceiptRequestedEvent) error) {
	eh.onReceiptRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("%w: base event: %v", ErrMalformedEvent, err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeReceiptRequested:
		if eh.onReceiptRequested != nil {
			var event models.ReceiptRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: ReceiptRequested event: %v", ErrMalformedEvent, err)
			}
			return eh.onReceiptRequested(ctx, &event)
		}

	case models.EventTypeOrderPaid, models.EventTypeDeliveryUnrecorded:
		// consumed by reporting and reconciliation, not by this service

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
