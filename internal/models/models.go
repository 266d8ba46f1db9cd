package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a seller's catalog entry
type Product struct {
	ID          string          `json:"id"`
	SellerID    string          `json:"seller_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	ImageURL    string          `json:"image_url,omitempty"`
	Delivery    Delivery        `json:"-"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DeliveryMode reports the product's mode, treating a missing variant as physical.
func (p *Product) DeliveryMode() DeliveryMode {
	if p.Delivery == nil {
		return DeliveryNone
	}
	return p.Delivery.Mode()
}

// Profile represents a seller and their public store page
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FullName  string    `db:"full_name" json:"full_name"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Email     string    `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order is created exactly once per successful payment
type Order struct {
	ID         string          `db:"id" json:"id"`
	ProductID  string          `db:"product_id" json:"product_id"`
	SellerID   string          `db:"seller_id" json:"seller_id"`
	BuyerEmail string          `db:"buyer_email" json:"buyer_email"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Reference  string          `db:"reference" json:"reference"`
	Status     string          `db:"status" json:"status"`
	AccessKey  *string         `db:"access_key" json:"-"`
	FollowUp   *string         `db:"follow_up" json:"follow_up,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// HasAccessKey reports whether a view_only key was granted for the order.
func (o *Order) HasAccessKey() bool {
	return o.AccessKey != nil && *o.AccessKey != ""
}

// DeliveryWithheld reports whether the charge did not cover the product, in
// which case no access artifact may be released for the order.
func (o *Order) DeliveryWithheld() bool {
	if o.FollowUp == nil {
		return false
	}
	switch *o.FollowUp {
	case FollowUpUnderpaid, FollowUpCurrencyMismatch:
		return true
	}
	return false
}

// Order statuses
const (
	OrderStatusPaid = "paid"
)

// Follow-up reasons flagged on orders that need manual seller attention
const (
	FollowUpProductNotFound = "product_not_found"
	FollowUpProductInactive = "product_inactive"
	FollowUpAmountMismatch  = "amount_mismatch"

	// Delivery is withheld for these until the seller settles the difference
	FollowUpUnderpaid        = "underpaid"
	FollowUpCurrencyMismatch = "currency_mismatch"
)

// Identity is the authenticated seller performing a mutation or a scoped read.
type Identity struct {
	SellerID string
	Email    string
}

// IsZero reports whether no seller is authenticated.
func (i Identity) IsZero() bool {
	return i.SellerID == ""
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// ToMinorUnits converts a decimal amount into the smallest currency
// denomination (kobo, cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts a smallest-denomination amount back to a decimal.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
