package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentConfirmation is a payment the gateway has already captured.
type PaymentConfirmation struct {
	Reference  string
	ProductID  string
	SellerID   string // from gateway metadata; used when the product is gone
	BuyerEmail string
	Amount     decimal.Decimal // charged amount; zero when the gateway did not report it
	Currency   string
}

// Resolution is the outcome of resolving one payment. Order is always the
// persisted row, so the access key shown to the buyer is the stored one.
type Resolution struct {
	Order     *models.Order
	Product   *models.Product
	Receipt   *models.Receipt
	Duplicate bool
}

// DeliveryResolver turns captured payments into recorded orders and access
// artifacts.
type DeliveryResolver struct {
	ledger     OrderLedger
	products   ProductReader
	profiles   ProfileReader
	keys       KeyGenerator
	dispatcher ReceiptDispatcher
	events     EventSink
	currency   string
	baseURL    string
	logger     *zap.Logger
}

// NewDeliveryResolver creates a new delivery resolver. events may be nil.
func NewDeliveryResolver(
	ledger OrderLedger,
	products ProductReader,
	profiles ProfileReader,
	keys KeyGenerator,
	dispatcher ReceiptDispatcher,
	events EventSink,
	currency string,
	baseURL string,
) *DeliveryResolver {
	return &DeliveryResolver{
		ledger:     ledger,
		products:   products,
		profiles:   profiles,
		keys:       keys,
		dispatcher: dispatcher,
		events:     events,
		currency:   currency,
		baseURL:    baseURL,
		logger:     util.GetLogger(),
	}
}

// ResolvePayment looks up the purchased product and resolves the payment.
// A missing product still produces an order, flagged for follow-up.
func (r *DeliveryResolver) ResolvePayment(ctx context.Context, payment PaymentConfirmation) (*Resolution, error) {
	ctx, span := util.StartSpanWithReference(ctx, "DeliveryResolver.ResolvePayment", payment.Reference)
	defer span.End()

	if err := validateConfirmation(payment); err != nil {
		return nil, err
	}

	product, err := r.products.GetProductByID(ctx, payment.ProductID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		product = nil
	case err != nil:
		return nil, r.reportUnrecorded(ctx, payment, fmt.Errorf("failed to load product: %w", err))
	}

	return r.Resolve(ctx, product, payment)
}

// Resolve records the order for a captured payment and dispatches the
// receipt. product may be nil when it no longer exists. A reference that is
// already recorded returns the existing order with Duplicate set and never
// generates a second key.
func (r *DeliveryResolver) Resolve(ctx context.Context, product *models.Product, payment PaymentConfirmation) (*Resolution, error) {
	ctx, span := util.StartSpanWithReference(ctx, "DeliveryResolver.Resolve", payment.Reference)
	defer span.End()

	start := time.Now()
	defer func() {
		util.DeliveryResolveLatency.Observe(time.Since(start).Seconds())
	}()

	if err := validateConfirmation(payment); err != nil {
		return nil, err
	}

	existing, err := r.ledger.FindOrderByReference(ctx, payment.Reference)
	if err == nil {
		return r.duplicate(ctx, existing, product), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		r.logger.Warn("Order pre-check failed, relying on ledger uniqueness",
			zap.String("reference", payment.Reference),
			zap.Error(err))
	}

	order, err := r.buildOrder(product, payment)
	if err != nil {
		return nil, r.reportUnrecorded(ctx, payment, err)
	}

	if err := r.ledger.InsertOrder(ctx, order); err != nil {
		if errors.Is(err, store.ErrConflict) {
			existing, findErr := r.ledger.FindOrderByReference(ctx, payment.Reference)
			if findErr != nil {
				return nil, r.reportUnrecorded(ctx, payment, fmt.Errorf("conflict on insert but lookup failed: %w", findErr))
			}
			return r.duplicate(ctx, existing, product), nil
		}
		return nil, r.reportUnrecorded(ctx, payment, fmt.Errorf("failed to insert order: %w", err))
	}

	util.OrdersRecordedTotal.WithLabelValues(string(deliveryModeOf(product))).Inc()
	if order.FollowUp != nil {
		util.OrdersFlaggedTotal.WithLabelValues(*order.FollowUp).Inc()
		r.logger.Warn("Order flagged for seller follow-up",
			zap.String("reference", order.Reference),
			zap.String("product_id", order.ProductID),
			zap.String("follow_up", *order.FollowUp))
	}

	r.logger.Info("Order recorded",
		zap.String("order_id", order.ID),
		zap.String("reference", order.Reference),
		zap.String("delivery_mode", string(deliveryModeOf(product))))

	r.publishOrderPaid(ctx, order, product)

	receipt := BuildReceipt(order, product, r.sellerName(ctx, order.SellerID), r.currency, r.baseURL)
	if err := r.dispatcher.DispatchReceipt(ctx, receipt); err != nil {
		util.ReceiptsFailedTotal.WithLabelValues("dispatch").Inc()
		r.logger.Error("Failed to dispatch receipt",
			zap.String("reference", order.Reference),
			zap.Error(err))
	}

	return &Resolution{Order: order, Product: product, Receipt: receipt}, nil
}

func (r *DeliveryResolver) buildOrder(product *models.Product, payment PaymentConfirmation) (*models.Order, error) {
	order := &models.Order{
		ID:         uuid.New().String(),
		ProductID:  payment.ProductID,
		SellerID:   payment.SellerID,
		BuyerEmail: strings.TrimSpace(payment.BuyerEmail),
		Amount:     payment.Amount,
		Reference:  payment.Reference,
		Status:     models.OrderStatusPaid,
	}

	if product == nil {
		order.FollowUp = followUp(models.FollowUpProductNotFound)
		return order, nil
	}

	order.ProductID = product.ID
	order.SellerID = product.SellerID
	switch {
	case payment.Amount.IsZero():
		order.Amount = product.Price
	case payment.Amount.LessThan(product.Price):
		order.FollowUp = followUp(models.FollowUpUnderpaid)
	case !payment.Amount.Equal(product.Price):
		order.FollowUp = followUp(models.FollowUpAmountMismatch)
	}
	if payment.Currency != "" && product.Currency != "" && !strings.EqualFold(payment.Currency, product.Currency) {
		order.FollowUp = followUp(models.FollowUpCurrencyMismatch)
	}
	if !product.IsActive && !order.DeliveryWithheld() {
		order.FollowUp = followUp(models.FollowUpProductInactive)
	}

	// The funds are captured either way; the artifact waits for the seller.
	if order.DeliveryWithheld() {
		return order, nil
	}

	if product.DeliveryMode() == models.DeliveryViewOnly {
		key, err := r.keys.Generate()
		if err != nil {
			return nil, err
		}
		order.AccessKey = &key
	}
	return order, nil
}

func (r *DeliveryResolver) duplicate(ctx context.Context, existing *models.Order, product *models.Product) *Resolution {
	util.DuplicateReferencesTotal.Inc()
	r.logger.Info("Reference already recorded, skipping delivery",
		zap.String("reference", existing.Reference),
		zap.String("order_id", existing.ID))

	if product == nil || product.ID != existing.ProductID {
		product, _ = r.products.GetProductByID(ctx, existing.ProductID)
	}

	return &Resolution{
		Order:     existing,
		Product:   product,
		Receipt:   BuildReceipt(existing, product, r.sellerName(ctx, existing.SellerID), r.currency, r.baseURL),
		Duplicate: true,
	}
}

// reportUnrecorded raises a captured-but-unrecorded payment for manual
// reconciliation and returns ErrDeliveryUnrecorded.
func (r *DeliveryResolver) reportUnrecorded(ctx context.Context, payment PaymentConfirmation, cause error) error {
	util.DeliveriesUnrecordedTotal.Inc()
	util.WithTrace(ctx, r.logger).Error("Payment captured but delivery not recorded",
		zap.String("alert", "delivery_unrecorded"),
		zap.String("reference", payment.Reference),
		zap.String("product_id", payment.ProductID),
		zap.String("buyer_email", payment.BuyerEmail),
		zap.String("amount", payment.Amount.String()),
		zap.Error(cause))

	if r.events != nil {
		event := &models.DeliveryUnrecordedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeDeliveryUnrecorded,
				Timestamp: time.Now(),
			},
			Reference:  payment.Reference,
			ProductID:  payment.ProductID,
			BuyerEmail: payment.BuyerEmail,
			Amount:     payment.Amount.String(),
			Error:      cause.Error(),
		}
		if err := r.events.PublishDeliveryUnrecorded(ctx, event); err != nil {
			r.logger.Error("Failed to publish delivery unrecorded event",
				zap.String("reference", payment.Reference),
				zap.Error(err))
		}
	}

	return fmt.Errorf("%w: %v", ErrDeliveryUnrecorded, cause)
}

func (r *DeliveryResolver) publishOrderPaid(ctx context.Context, order *models.Order, product *models.Product) {
	if r.events == nil {
		return
	}

	event := &models.OrderPaidEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPaid,
			Timestamp: time.Now(),
		},
		OrderID:      order.ID,
		ProductID:    order.ProductID,
		SellerID:     order.SellerID,
		Reference:    order.Reference,
		Amount:       order.Amount.String(),
		DeliveryMode: deliveryModeOf(product),
	}
	if order.FollowUp != nil {
		event.FollowUp = *order.FollowUp
	}

	if err := r.events.PublishOrderPaid(ctx, event); err != nil {
		r.logger.Error("Failed to publish order paid event",
			zap.String("reference", order.Reference),
			zap.Error(err))
	}
}

func (r *DeliveryResolver) sellerName(ctx context.Context, sellerID string) string {
	if sellerID == "" {
		return ""
	}
	profile, err := r.profiles.GetProfileByID(ctx, sellerID)
	if err != nil {
		return ""
	}
	if profile.FullName != "" {
		return profile.FullName
	}
	return profile.Username
}

func validateConfirmation(payment PaymentConfirmation) error {
	if strings.TrimSpace(payment.Reference) == "" {
		return fmt.Errorf("%w: missing reference", ErrInvalidPayment)
	}
	if payment.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount", ErrInvalidPayment)
	}
	return nil
}

func deliveryModeOf(product *models.Product) models.DeliveryMode {
	if product == nil {
		return models.DeliveryNone
	}
	return product.DeliveryMode()
}

func followUp(reason string) *string {
	return &reason
}
