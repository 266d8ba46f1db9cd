package service

import (
	"context"
	"fmt"
	"net/url"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const receiptType = "receipt"

// BuildReceipt assembles the buyer notification from the persisted order.
// The access key is only ever read from the order, never from the caller.
func BuildReceipt(order *models.Order, product *models.Product, sellerName, currency, baseURL string) *models.Receipt {
	receipt := &models.Receipt{
		Type:         receiptType,
		Email:        order.BuyerEmail,
		SellerName:   sellerName,
		ProductName:  fmt.Sprintf("Order %s", order.Reference),
		Price:        order.Amount.StringFixed(2),
		Currency:     currency,
		DeliveryType: models.DeliveryNone,
		AccessInfo:   models.AccessInfo{Reference: order.Reference},
	}
	if product == nil {
		return receipt
	}

	receipt.ProductName = product.Name
	if product.Currency != "" {
		receipt.Currency = product.Currency
	}
	if order.DeliveryWithheld() {
		return receipt
	}
	receipt.DeliveryType = product.DeliveryMode()

	switch d := product.Delivery.(type) {
	case models.DownloadDelivery:
		receipt.AccessInfo.FileURL = d.FileURL
	case models.KeyAccessDelivery:
		receipt.AccessInfo.DeliveryKey = d.Secret
	case models.ViewOnlyDelivery:
		if order.HasAccessKey() {
			receipt.AccessInfo.AccessKey = *order.AccessKey
		}
		receipt.AccessInfo.ViewURL = RedemptionURL(baseURL, order.Reference)
	}
	return receipt
}

// RedemptionURL builds the buyer-facing viewer link for a reference
func RedemptionURL(baseURL, reference string) string {
	return fmt.Sprintf("%s/view/%s", baseURL, url.PathEscape(reference))
}

// DirectDispatcher sends receipts inline through a Mailer. It stands in for
// the Kafka dispatcher when the broker is disabled.
type DirectDispatcher struct {
	mailer Mailer
	logger *zap.Logger
}

// NewDirectDispatcher creates a dispatcher that mails receipts synchronously
func NewDirectDispatcher(mailer Mailer) *DirectDispatcher {
	return &DirectDispatcher{
		mailer: mailer,
		logger: util.GetLogger(),
	}
}

// DispatchReceipt sends the receipt immediately
func (d *DirectDispatcher) DispatchReceipt(ctx context.Context, receipt *models.Receipt) error {
	ctx, span := util.StartSpan(ctx, "DirectDispatcher.DispatchReceipt")
	defer span.End()

	if err := d.mailer.SendReceipt(ctx, receipt); err != nil {
		util.ReceiptsFailedTotal.WithLabelValues("send").Inc()
		return fmt.Errorf("failed to send receipt: %w", err)
	}
	util.ReceiptsSentTotal.Inc()
	return nil
}

// ReceiptNotifier sends queued receipts at most once per reference
type ReceiptNotifier struct {
	events EventLog
	mailer Mailer
	logger *zap.Logger
}

// NewReceiptNotifier creates a notifier backed by the processed-events log
func NewReceiptNotifier(events EventLog, mailer Mailer) *ReceiptNotifier {
	return &ReceiptNotifier{
		events: events,
		mailer: mailer,
		logger: util.GetLogger(),
	}
}

// HandleReceiptRequested sends the receipt unless this reference was
// already mailed. A failed send is returned so the message is not committed.
func (n *ReceiptNotifier) HandleReceiptRequested(ctx context.Context, event *models.ReceiptRequestedEvent) error {
	reference := event.Receipt.AccessInfo.Reference
	ctx, span := util.StartSpanWithReference(ctx, "ReceiptNotifier.HandleReceiptRequested", reference)
	defer span.End()

	eventID := "receipt:" + reference
	if reference == "" {
		eventID = "receipt-event:" + event.EventID
	}

	processed, err := n.events.IsEventProcessed(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		n.logger.Info("Receipt already sent", zap.String("reference", reference))
		return nil
	}

	if err := n.mailer.SendReceipt(ctx, &event.Receipt); err != nil {
		util.ReceiptsFailedTotal.WithLabelValues("send").Inc()
		return fmt.Errorf("failed to send receipt: %w", err)
	}
	util.ReceiptsSentTotal.Inc()

	if err := n.events.MarkEventProcessed(ctx, eventID, event.EventType); err != nil {
		n.logger.Error("Failed to mark receipt processed",
			zap.String("reference", reference),
			zap.Error(err))
	}
	return nil
}
