package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/order-platform/order-management/internal/application"
	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/resilience"
)

// Fulfillment order statuses the warehouse reports on creation.
const (
	fulfillmentStatusPending = "pending"
	fulfillmentStatusSuccess = "success"
)

// Config holds warehouse client configuration
type Config struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}

// Client talks to the warehouse fulfillment API. It implements
// application.FulfillmentGateway.
type Client struct {
	config  *Config
	http    *http.Client
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
}

// NewClient creates a warehouse client
func NewClient(config *Config, logger *logging.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	breakerConfig := resilience.DefaultCircuitBreakerConfig("warehouse-api")

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		breaker: resilience.NewCircuitBreaker(breakerConfig, logger.Logger),
		logger:  logger.WithComponent("warehouse_client"),
	}
}

// Breaker exposes the circuit breaker for state gauges.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

type fulfillmentOrderRequest struct {
	ReferenceID     string                  `json:"referenceId"`
	Items           []fulfillmentOrderItem  `json:"items"`
	ShippingAddress fulfillmentOrderAddress `json:"shippingAddress"`
	ShippingMethod  string                  `json:"shippingMethod"`
	CustomerEmail   string                  `json:"customerEmail"`
}

type fulfillmentOrderItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int32  `json:"quantity"`
	SKU       string `json:"sku"`
}

type fulfillmentOrderAddress struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
}

type fulfillmentOrderResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DispatchOrder creates a fulfillment order in the warehouse. The
// warehouse acknowledges with a status; anything other than pending or
// success is a failure.
func (c *Client) DispatchOrder(ctx context.Context, req application.FulfillmentRequest) error {
	payload := fulfillmentOrderRequest{
		ReferenceID: req.ReferenceID,
		Items:       make([]fulfillmentOrderItem, 0, len(req.Items)),
		ShippingAddress: fulfillmentOrderAddress{
			FirstName: req.ShippingAddress.FirstName,
			LastName:  req.ShippingAddress.LastName,
			Address1:  req.ShippingAddress.Address1,
			Address2:  req.ShippingAddress.Address2,
			City:      req.ShippingAddress.City,
			Province:  req.ShippingAddress.Province,
			Country:   req.ShippingAddress.Country,
			Zip:       req.ShippingAddress.Zip,
		},
		ShippingMethod: req.ShippingMethod,
		CustomerEmail:  req.CustomerEmail,
	}
	for _, item := range req.Items {
		payload.Items = append(payload.Items, fulfillmentOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			SKU:       item.SKU,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling fulfillment request: %w", err)
	}

	url := c.config.BaseURL + "/api/v1/fulfillment-orders"

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.config.AuthToken)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("calling warehouse: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("warehouse returned %d: %s", resp.StatusCode, string(respBody))
		}

		var ack fulfillmentOrderResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			return nil, fmt.Errorf("decoding warehouse response: %w", err)
		}
		return &ack, nil
	})
	if err != nil {
		return err
	}

	ack := result.(*fulfillmentOrderResponse)
	if ack.Status != fulfillmentStatusPending && ack.Status != fulfillmentStatusSuccess {
		return fmt.Errorf("warehouse rejected fulfillment order: status %q, %s", ack.Status, ack.Message)
	}

	c.logger.WithContext(ctx).Info("fulfillment order created",
		"reference_id", req.ReferenceID,
		"status", ack.Status)
	return nil
}
