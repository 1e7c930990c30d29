package application

// ProcessOrderCommand carries a storefront order through intake.
type ProcessOrderCommand struct {
	Order ShopifyOrderDTO
	// WebhookID is the storefront delivery identifier, used for tracing.
	WebhookID string
}

// CheckAvailabilityCommand asks for a per-product availability verdict.
type CheckAvailabilityCommand struct {
	OrderID    string
	ProductIDs []int64
	Quantities []int32
}
