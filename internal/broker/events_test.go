package broker

import (
	"context"
	"encoding/json"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func newTestPublisher() (*EventPublisher, *captureWriter) {
	w := &captureWriter{}
	return NewEventPublisher(&Producer{writer: w, logger: util.GetLogger()}), w
}

func TestDispatchReceiptRoundTrip(t *testing.T) {
	publisher, w := newTestPublisher()
	receipt := &models.Receipt{
		Type:         "receipt",
		Email:        "buyer@example.com",
		ProductName:  "Handbook",
		DeliveryType: models.DeliveryViewOnly,
		AccessInfo:   models.AccessInfo{AccessKey: "482913", Reference: "abc123"},
	}

	require.NoError(t, publisher.DispatchReceipt(context.Background(), receipt))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "ref-abc123", string(w.msgs[0].Key))

	var got *models.ReceiptRequestedEvent
	handler := NewEventHandler()
	handler.OnReceiptRequested(func(ctx context.Context, e *models.ReceiptRequestedEvent) error {
		got = e
		return nil
	})

	require.NoError(t, handler.HandleMessage(context.Background(), w.msgs[0]))
	require.NotNil(t, got)
	assert.Equal(t, models.EventTypeReceiptRequested, got.EventType)
	assert.Equal(t, *receipt, got.Receipt)
}

func TestHandleMessageIgnoresOtherEvents(t *testing.T) {
	publisher, w := newTestPublisher()
	require.NoError(t, publisher.PublishOrderPaid(context.Background(), &models.OrderPaidEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderPaid},
		Reference: "abc123",
	}))

	called := false
	handler := NewEventHandler()
	handler.OnReceiptRequested(func(ctx context.Context, e *models.ReceiptRequestedEvent) error {
		called = true
		return nil
	})

	require.NoError(t, handler.HandleMessage(context.Background(), w.msgs[0]))
	assert.False(t, called)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	err := NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestReceiptWireFormat(t *testing.T) {
	raw, err := json.Marshal(models.Receipt{
		Type:         "receipt",
		Email:        "b@example.com",
		ProductName:  "Guide",
		Price:        "1500.00",
		DeliveryType: models.DeliveryDirectDownload,
		AccessInfo:   models.AccessInfo{FileURL: "https://files/G"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "receipt",
		"email": "b@example.com",
		"product_name": "Guide",
		"price": "1500.00",
		"delivery_type": "direct_download",
		"access_info": {"file_url": "https://files/G"}
	}`, string(raw))
}
