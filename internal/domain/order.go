package domain

import (
	"errors"
	"strings"
	"time"
)

// Errors for the Order aggregate
var (
	ErrOrderNotPaid       = errors.New("order is not paid")
	ErrCustomerIncomplete = errors.New("customer information is incomplete")
	ErrNoLineItems        = errors.New("order must have at least one line item")
	ErrInvalidQuantity    = errors.New("line item quantity must be positive")
	ErrMissingSKU         = errors.New("line item SKU is required")
	ErrShippingIncomplete = errors.New("shipping address is incomplete")
	ErrBillingIncomplete  = errors.New("billing address is incomplete")
	ErrInvalidStatus      = errors.New("invalid status transition")
	ErrOrderCancelled     = errors.New("order has been cancelled")
	ErrInvalidOrderID     = errors.New("invalid order id")
	ErrOrderNotFound      = errors.New("order not found")
)

// FinancialStatus is the payment state reported by the storefront
type FinancialStatus string

const (
	FinancialPending           FinancialStatus = "pending"
	FinancialPaid              FinancialStatus = "paid"
	FinancialRefunded          FinancialStatus = "refunded"
	FinancialPartiallyRefunded FinancialStatus = "partially_refunded"
)

// IsValid checks if the financial status is a known value
func (s FinancialStatus) IsValid() bool {
	switch s {
	case FinancialPending, FinancialPaid, FinancialRefunded, FinancialPartiallyRefunded:
		return true
	default:
		return false
	}
}

// OrderStatus is the processing state of the order in this system
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusFulfilled  OrderStatus = "FULFILLED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusError      OrderStatus = "ERROR"
)

// Money is an amount with its currency, kept as the storefront sends it
type Money struct {
	Amount   string `bson:"amount" json:"amount"`
	Currency string `bson:"currency" json:"currency"`
}

// Customer identifies the buyer
type Customer struct {
	ID        int64  `bson:"id" json:"id"`
	Email     string `bson:"email" json:"email"`
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Address is a shipping or billing address
type Address struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Address1  string `bson:"address1" json:"address1"`
	Address2  string `bson:"address2,omitempty" json:"address2,omitempty"`
	City      string `bson:"city" json:"city"`
	Province  string `bson:"province,omitempty" json:"province,omitempty"`
	Country   string `bson:"country,omitempty" json:"country,omitempty"`
	Zip       string `bson:"zip,omitempty" json:"zip,omitempty"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// IsComplete returns true when the fields the warehouse needs are present
func (a Address) IsComplete() bool {
	return strings.TrimSpace(a.Address1) != "" && strings.TrimSpace(a.City) != ""
}

// OrderLineItem is a single product line on an order.
// Line items are immutable once the ledger write has committed.
type OrderLineItem struct {
	ID            int64  `bson:"id" json:"id"`
	ProductID     int64  `bson:"productId" json:"productId"`
	VariantID     int64  `bson:"variantId,omitempty" json:"variantId,omitempty"`
	Quantity      int32  `bson:"quantity" json:"quantity"`
	Title         string `bson:"title" json:"title"`
	VariantTitle  string `bson:"variantTitle,omitempty" json:"variantTitle,omitempty"`
	SKU           string `bson:"sku" json:"sku"`
	Price         Money  `bson:"price" json:"price"`
	TotalDiscount Money  `bson:"totalDiscount,omitempty" json:"totalDiscount,omitempty"`
}

// Order is the aggregate root for order processing
type Order struct {
	ID              int64           `bson:"_id" json:"id"`
	OrderNumber     string          `bson:"orderNumber" json:"orderNumber"`
	Customer        Customer        `bson:"customer" json:"customer"`
	LineItems       []OrderLineItem `bson:"lineItems" json:"lineItems"`
	ShippingAddress Address         `bson:"shippingAddress" json:"shippingAddress"`
	BillingAddress  Address         `bson:"billingAddress" json:"billingAddress"`
	TotalPrice      Money           `bson:"totalPrice" json:"totalPrice"`
	SubtotalPrice   Money           `bson:"subtotalPrice,omitempty" json:"subtotalPrice,omitempty"`
	TotalTax        Money           `bson:"totalTax,omitempty" json:"totalTax,omitempty"`
	FinancialStatus FinancialStatus `bson:"financialStatus" json:"financialStatus"`
	Tags            string          `bson:"tags,omitempty" json:"tags,omitempty"`
	Note            string          `bson:"note,omitempty" json:"note,omitempty"`
	SourceName      string          `bson:"sourceName,omitempty" json:"sourceName,omitempty"`
	Status          OrderStatus     `bson:"status" json:"status"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
	ProcessedAt     *time.Time      `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}

// IsPaid returns true when the storefront reports the order as paid
func (o *Order) IsPaid() bool {
	return o.FinancialStatus == FinancialPaid
}

// ValidateForProcessing checks the order against the intake rules.
// The first failing rule wins; validation failure is terminal for the order.
func (o *Order) ValidateForProcessing() error {
	if !o.IsPaid() {
		return ErrOrderNotPaid
	}

	if strings.TrimSpace(o.Customer.Email) == "" || strings.TrimSpace(o.Customer.FirstName) == "" {
		return ErrCustomerIncomplete
	}

	if len(o.LineItems) == 0 {
		return ErrNoLineItems
	}

	for _, item := range o.LineItems {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if strings.TrimSpace(item.SKU) == "" {
			return ErrMissingSKU
		}
	}

	if !o.ShippingAddress.IsComplete() {
		return ErrShippingIncomplete
	}

	if !o.BillingAddress.IsComplete() {
		return ErrBillingIncomplete
	}

	return nil
}

// MarkProcessing transitions the order into the ledger state.
// Idempotent for orders already processing.
func (o *Order) MarkProcessing() error {
	if o.Status == StatusCancelled {
		return ErrOrderCancelled
	}
	if o.Status == StatusProcessing {
		return nil
	}
	if o.Status != StatusPending && o.Status != "" {
		return ErrInvalidStatus
	}

	now := time.Now().UTC()
	o.Status = StatusProcessing
	o.ProcessedAt = &now
	o.UpdatedAt = now

	return nil
}

// MarkFulfilled transitions a processing order to fulfilled.
func (o *Order) MarkFulfilled() error {
	if o.Status == StatusFulfilled {
		return nil
	}
	if o.Status != StatusProcessing {
		return ErrInvalidStatus
	}

	o.Status = StatusFulfilled
	o.UpdatedAt = time.Now().UTC()

	return nil
}

// MarkError records a terminal processing failure.
func (o *Order) MarkError() error {
	if o.Status == StatusFulfilled || o.Status == StatusCancelled {
		return ErrInvalidStatus
	}

	o.Status = StatusError
	o.UpdatedAt = time.Now().UTC()

	return nil
}

// Cancel cancels an order that has not reached a terminal state.
// Cancelling an already cancelled order is a no-op.
func (o *Order) Cancel() error {
	if o.Status == StatusCancelled {
		return nil
	}
	if o.Status != StatusPending && o.Status != StatusProcessing {
		return ErrInvalidStatus
	}

	o.Status = StatusCancelled
	o.UpdatedAt = time.Now().UTC()

	return nil
}

// ProductTypeCount returns the number of distinct line items on the order
func (o *Order) ProductTypeCount() int {
	return len(o.LineItems)
}

// TotalQuantity returns the total unit count across line items
func (o *Order) TotalQuantity() int32 {
	var total int32
	for _, item := range o.LineItems {
		total += item.Quantity
	}
	return total
}
