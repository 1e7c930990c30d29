package application

import (
	"strconv"
	"strings"
	"time"

	"github.com/order-platform/order-management/internal/domain"
)

// ShopifyOrderDTO is the order payload delivered by the storefront webhook.
// Field names follow the Shopify wire format.
type ShopifyOrderDTO struct {
	ID                string               `json:"id" binding:"required"`
	OrderNumber       string               `json:"order_number" binding:"required"`
	Name              string               `json:"name"`
	Email             string               `json:"email"`
	Phone             string               `json:"phone"`
	CreatedAt         string               `json:"created_at"`
	UpdatedAt         string               `json:"updated_at"`
	ProcessedAt       *string              `json:"processed_at,omitempty"`
	Customer          ShopifyCustomerDTO   `json:"customer"`
	LineItems         []ShopifyLineItemDTO `json:"line_items"`
	ShippingAddress   ShopifyAddressDTO    `json:"shipping_address"`
	BillingAddress    ShopifyAddressDTO    `json:"billing_address"`
	TotalPrice        string               `json:"total_price"`
	SubtotalPrice     string               `json:"subtotal_price"`
	TotalTax          string               `json:"total_tax"`
	Currency          string               `json:"currency"`
	FinancialStatus   string               `json:"financial_status"`
	FulfillmentStatus *string              `json:"fulfillment_status,omitempty"`
	Tags              string               `json:"tags"`
	Note              string               `json:"note"`
	SourceName        string               `json:"source_name"`
}

// ShopifyCustomerDTO is the customer block of the webhook payload.
type ShopifyCustomerDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// ShopifyLineItemDTO is a single line item of the webhook payload.
type ShopifyLineItemDTO struct {
	ID            int64  `json:"id"`
	ProductID     int64  `json:"product_id"`
	VariantID     int64  `json:"variant_id"`
	Quantity      int32  `json:"quantity"`
	Title         string `json:"title"`
	VariantTitle  string `json:"variant_title"`
	SKU           string `json:"sku"`
	Price         string `json:"price"`
	TotalDiscount string `json:"total_discount"`
}

// ShopifyAddressDTO is an address block of the webhook payload.
type ShopifyAddressDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

// ProcessOrderResult is the webhook response body.
type ProcessOrderResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

// OrderCheckRequest asks whether an order's line items can be satisfied
// from current inventory.
type OrderCheckRequest struct {
	OrderID    string  `json:"orderId" binding:"required"`
	ProductIDs []int64 `json:"productIds" binding:"required,min=1"`
	Quantities []int32 `json:"quantities" binding:"required,min=1"`
}

// OrderCheckResult reports per-product availability for an order.
type OrderCheckResult struct {
	IsContinue  bool                 `json:"isContinue"`
	Description string               `json:"description"`
	OrderID     string               `json:"orderId"`
	Products    []ProductCheckResult `json:"products"`
}

// ProductCheckResult is the availability verdict for one product.
type ProductCheckResult struct {
	ProductID         int64  `json:"productId"`
	SKU               string `json:"sku"`
	Title             string `json:"title"`
	RequestedQuantity int32  `json:"requestedQuantity"`
	AvailableQuantity int32  `json:"availableQuantity"`
	RemainQuantity    int32  `json:"remainQuantity"`
	Status            string `json:"status"`
}

// OrderDTO is the read-side representation returned by listing endpoints.
type OrderDTO struct {
	ID               int64      `json:"id"`
	OrderNumber      string     `json:"orderNumber"`
	CustomerEmail    string     `json:"customerEmail"`
	Status           string     `json:"status"`
	FinancialStatus  string     `json:"financialStatus"`
	TotalPrice       string     `json:"totalPrice"`
	Currency         string     `json:"currency"`
	ProductTypeCount int        `json:"productTypeCount"`
	TotalQuantity    int32      `json:"totalQuantity"`
	CreatedAt        time.Time  `json:"createdAt"`
	ProcessedAt      *time.Time `json:"processedAt,omitempty"`
}

// NewOrderDTO maps a domain order to its read-side representation.
func NewOrderDTO(order *domain.Order) OrderDTO {
	return OrderDTO{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		CustomerEmail:    order.Customer.Email,
		Status:           string(order.Status),
		FinancialStatus:  string(order.FinancialStatus),
		TotalPrice:       order.TotalPrice.Amount,
		Currency:         order.TotalPrice.Currency,
		ProductTypeCount: order.ProductTypeCount(),
		TotalQuantity:    order.TotalQuantity(),
		CreatedAt:        order.CreatedAt,
		ProcessedAt:      order.ProcessedAt,
	}
}

// ToDomainOrder converts the webhook payload into a domain order. Shopify
// sends numeric identifiers as strings; a malformed identifier is a bad
// request, not an internal error.
func (dto *ShopifyOrderDTO) ToDomainOrder() (*domain.Order, error) {
	orderID, err := strconv.ParseInt(dto.ID, 10, 64)
	if err != nil {
		return nil, domain.ErrInvalidOrderID
	}

	customerID, _ := strconv.ParseInt(dto.Customer.ID, 10, 64)

	lineItems := make([]domain.OrderLineItem, 0, len(dto.LineItems))
	for _, item := range dto.LineItems {
		lineItems = append(lineItems, domain.OrderLineItem{
			ID:            item.ID,
			ProductID:     item.ProductID,
			VariantID:     item.VariantID,
			Quantity:      item.Quantity,
			Title:         item.Title,
			VariantTitle:  item.VariantTitle,
			SKU:           strings.TrimSpace(item.SKU),
			Price:         domain.Money{Amount: item.Price, Currency: dto.Currency},
			TotalDiscount: domain.Money{Amount: item.TotalDiscount, Currency: dto.Currency},
		})
	}

	order := &domain.Order{
		ID:          orderID,
		OrderNumber: dto.OrderNumber,
		Customer: domain.Customer{
			ID:        customerID,
			Email:     dto.Customer.Email,
			FirstName: dto.Customer.FirstName,
			LastName:  dto.Customer.LastName,
			Phone:     dto.Customer.Phone,
		},
		LineItems:       lineItems,
		ShippingAddress: dto.ShippingAddress.toDomain(),
		BillingAddress:  dto.BillingAddress.toDomain(),
		TotalPrice:      domain.Money{Amount: dto.TotalPrice, Currency: dto.Currency},
		SubtotalPrice:   domain.Money{Amount: dto.SubtotalPrice, Currency: dto.Currency},
		TotalTax:        domain.Money{Amount: dto.TotalTax, Currency: dto.Currency},
		FinancialStatus: domain.FinancialStatus(strings.ToLower(dto.FinancialStatus)),
		Tags:            dto.Tags,
		Note:            dto.Note,
		SourceName:      dto.SourceName,
		Status:          domain.StatusPending,
		CreatedAt:       parseShopifyTime(dto.CreatedAt),
		UpdatedAt:       parseShopifyTime(dto.UpdatedAt),
	}
	if dto.ProcessedAt != nil {
		t := parseShopifyTime(*dto.ProcessedAt)
		order.ProcessedAt = &t
	}
	return order, nil
}

func (a ShopifyAddressDTO) toDomain() domain.Address {
	return domain.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		Province:  a.Province,
		Country:   a.Country,
		Zip:       a.Zip,
		Phone:     a.Phone,
	}
}

// parseShopifyTime accepts the timestamp formats Shopify emits. A missing
// or unparseable value falls back to the current time rather than failing
// the whole order.
func parseShopifyTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
