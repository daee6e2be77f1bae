package models

import "time"

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"

	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ValidOrderStatus reports whether s is one of the enumerated order statuses.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
// The commit pipeline never mutates status after creation; transitions belong
// to staff operations. delivered and cancelled are terminal, cancelled is
// reachable from any pre-delivered state.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return to == OrderStatusProcessing || to == OrderStatusCancelled
	case OrderStatusProcessing:
		return to == OrderStatusShipped || to == OrderStatusCancelled
	case OrderStatusShipped:
		return to == OrderStatusDelivered || to == OrderStatusCancelled
	default:
		return false
	}
}

// CanTransition mirrors OrderStatus.CanTransition for the payment axis:
// pending -> paid | failed, paid -> refunded.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return to == PaymentStatusPaid || to == PaymentStatusFailed
	case PaymentStatusPaid:
		return to == PaymentStatusRefunded
	default:
		return false
	}
}

// CustomerInfo holds the contact fields captured on the order header.
type CustomerInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

// Address is used for both billing and shipping. Method is only meaningful on
// the shipping side.
type Address struct {
	Address    string `json:"address"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode,omitempty"`
	Method     string `json:"method,omitempty"`
}

// Order is the immutable header written once at checkout. Only status and
// payment_status change afterwards, via staff operations outside this core.
// Invariant: Total == Subtotal + ShippingFee + Tax - Discount.
type Order struct {
	ID            int64         `json:"id"`
	OrderNumber   string        `json:"order_number"`
	UserID        int64         `json:"user_id"`
	Customer      CustomerInfo  `json:"customer"`
	Billing       Address       `json:"billing_address"`
	Shipping      Address       `json:"shipping_address"`
	Subtotal      float64       `json:"subtotal"`
	ShippingFee   float64       `json:"shipping_fee"`
	Tax           float64       `json:"tax"`
	Discount      float64       `json:"discount"`
	Total         float64       `json:"total"`
	PaymentMethod string        `json:"payment_method,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Status        OrderStatus   `json:"status"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Items         []OrderItem   `json:"items"`
}

// OrderItem is a deliberate snapshot taken at purchase time: unlike cart
// lines, these fields must not change when the catalog does.
// Invariant: Subtotal == Price * Quantity.
type OrderItem struct {
	ID           int64   `json:"id"`
	OrderID      int64   `json:"order_id"`
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image,omitempty"`
	ProductSKU   string  `json:"product_sku,omitempty"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	Subtotal     float64 `json:"subtotal"`
}
