package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/order-platform/order-management/pkg/logging"
	"github.com/order-platform/order-management/pkg/resilience"
)

const (
	headerAccessToken = "X-Shopify-Access-Token"

	// DefaultAPIVersion pins the storefront admin API version.
	DefaultAPIVersion = "2024-01"
)

// Config holds storefront client configuration
type Config struct {
	BaseURL     string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIVersion: DefaultAPIVersion,
		Timeout:    10 * time.Second,
	}
}

// Client talks to the storefront admin API. It implements
// application.StorefrontGateway behind a circuit breaker so a down
// storefront cannot pile up hanging requests.
type Client struct {
	config  *Config
	http    *http.Client
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
}

// NewClient creates a storefront client
func NewClient(config *Config, logger *logging.Logger) *Client {
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	breakerConfig := resilience.DefaultCircuitBreakerConfig("storefront-api")

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		breaker: resilience.NewCircuitBreaker(breakerConfig, logger.Logger),
		logger:  logger.WithComponent("storefront_client"),
	}
}

// Breaker exposes the circuit breaker for state gauges.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

type setInventoryLevelRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int32 `json:"available"`
}

// SetInventoryLevel sets the absolute available quantity for an inventory
// item at a location. The call is idempotent; replaying it converges on the
// same level.
func (c *Client) SetInventoryLevel(ctx context.Context, locationID, inventoryItemID int64, available int32) error {
	payload := setInventoryLevelRequest{
		LocationID:      locationID,
		InventoryItemID: inventoryItemID,
		Available:       available,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling inventory level request: %w", err)
	}

	url := fmt.Sprintf("%s/admin/api/%s/inventory_levels/set.json", c.config.BaseURL, c.config.APIVersion)

	_, err = c.breaker.Execute(ctx, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(headerAccessToken, c.config.AccessToken)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("calling storefront: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("storefront returned %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	c.logger.WithContext(ctx).Debug("inventory level set",
		"inventory_item_id", inventoryItemID,
		"location_id", locationID,
		"available", available)
	return nil
}
