package service

import (
	"context"
	"errors"

	"storefront-service/internal/models"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrStoreNotFound      = errors.New("store not found")
	ErrDenied             = errors.New("access denied")
	ErrTooManyAttempts    = errors.New("too many unlock attempts")
	ErrContentUnavailable = errors.New("content unavailable")
	ErrInvalidViewerToken = errors.New("invalid viewer token")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidPayment     = errors.New("invalid payment confirmation")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrPaymentNotSettled  = errors.New("payment not successful")

	// ErrDeliveryUnrecorded means the payment was captured but the order
	// could not be written. The buyer was charged; the reference must be
	// reconciled by hand.
	ErrDeliveryUnrecorded = errors.New("payment captured but delivery not recorded")
)

// OrderLedger is the durable record of orders, unique per reference.
// InsertOrder returns store.ErrConflict for a reference already recorded;
// lookups return store.ErrNotFound.
type OrderLedger interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	FindOrderByReference(ctx context.Context, reference string) (*models.Order, error)
	ListOrdersForSeller(ctx context.Context, sellerID string) ([]models.Order, error)
}

type ProductReader interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	ListProductsBySeller(ctx context.Context, sellerID string, activeOnly bool) ([]models.Product, error)
}

type ProductRepository interface {
	ProductReader
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	SetProductActive(ctx context.Context, sellerID, productID string, active bool) error
	ListActiveProducts(ctx context.Context, limit int) ([]models.Product, error)
}

type ProfileReader interface {
	GetProfileByID(ctx context.Context, id string) (*models.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error)
}

// EventLog records handled events for idempotent consumers.
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// AttemptLimiter throttles unlock attempts per order reference.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// ReceiptDispatcher hands a receipt to the notification pipeline.
type ReceiptDispatcher interface {
	DispatchReceipt(ctx context.Context, receipt *models.Receipt) error
}

// EventSink publishes order lifecycle events. A nil sink disables publishing.
type EventSink interface {
	PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error
	PublishDeliveryUnrecorded(ctx context.Context, event *models.DeliveryUnrecordedEvent) error
}

// KeyGenerator produces per-order access keys.
type KeyGenerator interface {
	Generate() (string, error)
}
