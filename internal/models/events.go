package models

import "time"

// Event types
const (
	EventTypeOrderPaid          = "ORDER_PAID"
	EventTypeReceiptRequested   = "RECEIPT_REQUESTED"
	EventTypeDeliveryUnrecorded = "DELIVERY_UNRECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPaidEvent published when an order is recorded for a captured payment
type OrderPaidEvent struct {
	BaseEvent
	OrderID      string       `json:"order_id"`
	ProductID    string       `json:"product_id"`
	SellerID     string       `json:"seller_id"`
	Reference    string       `json:"reference"`
	Amount       string       `json:"amount"`
	DeliveryMode DeliveryMode `json:"delivery_mode"`
	FollowUp     string       `json:"follow_up,omitempty"`
}

// ReceiptRequestedEvent carries a receipt to the notification worker
type ReceiptRequestedEvent struct {
	BaseEvent
	Receipt Receipt `json:"receipt"`
}

// DeliveryUnrecordedEvent is raised when a payment was captured but the
// order could not be written. It feeds manual reconciliation.
type DeliveryUnrecordedEvent struct {
	BaseEvent
	Reference  string `json:"reference"`
	ProductID  string `json:"product_id"`
	BuyerEmail string `json:"buyer_email"`
	Amount     string `json:"amount"`
	Error      string `json:"error"`
}

// Receipt is the notification payload sent downstream to the buyer.
type Receipt struct {
	Type         string       `json:"type"`
	Email        string       `json:"email"`
	SellerName   string       `json:"seller_name,omitempty"`
	ProductName  string       `json:"product_name"`
	Price        string       `json:"price"`
	Currency     string       `json:"currency,omitempty"`
	DeliveryType DeliveryMode `json:"delivery_type"`
	AccessInfo   AccessInfo   `json:"access_info"`
}

// AccessInfo holds whichever access artifact the delivery produced.
type AccessInfo struct {
	FileURL     string `json:"file_url,omitempty"`
	AccessKey   string `json:"access_key,omitempty"`
	DeliveryKey string `json:"delivery_key,omitempty"`
	Reference   string `json:"reference,omitempty"`
	ViewURL     string `json:"view_url,omitempty"`
}
