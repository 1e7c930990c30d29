package idempotency

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderWebhookID is the Shopify webhook delivery ID header
	HeaderWebhookID = "X-Shopify-Webhook-Id"

	// ContextKeyDeliveryID is the gin context key for the delivery record ID
	ContextKeyDeliveryID = "webhook_delivery_id"
)

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware deduplicates webhook deliveries by the delivery ID header.
// Redelivered webhooks get the stored response; webhooks without the header
// pass through untouched.
func Middleware(config *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		webhookID := c.GetHeader(config.HeaderName)
		if webhookID == "" {
			c.Next()
			return
		}

		processDelivery(c, config, webhookID)
	}
}

func processDelivery(c *gin.Context, config *Config, webhookID string) {
	ctx := c.Request.Context()

	delivery := &WebhookDelivery{
		WebhookID:   webhookID,
		ServiceID:   config.ServiceName,
		RequestPath: c.Request.URL.Path,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   time.Now().UTC().Add(config.RetentionPeriod),
	}

	existing, isNew, err := config.Repository.AcquireLock(ctx, delivery)
	if err != nil {
		slog.Error("Failed to acquire webhook delivery lock",
			"error", err,
			"webhookId", webhookID,
			"path", c.Request.URL.Path,
		)

		// Dedup storage trouble must not drop orders; let the request through.
		c.Next()
		return
	}

	if existing.IsCompleted() {
		slog.Info("Duplicate webhook delivery, replaying stored response",
			"webhookId", webhookID,
			"path", c.Request.URL.Path,
			"statusCode", existing.ResponseCode,
		)

		c.Data(existing.ResponseCode, "application/json", existing.ResponseBody)
		c.Abort()
		return
	}

	if !isNew && existing.IsLocked() {
		lockAge := time.Since(*existing.LockedAt)
		if lockAge < config.LockTimeout {
			slog.Warn("Concurrent webhook delivery",
				"webhookId", webhookID,
				"path", c.Request.URL.Path,
				"lockAge", lockAge,
			)

			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"status":  "error",
				"message": "this webhook delivery is already being processed",
			})
			return
		}
	}

	c.Set(ContextKeyDeliveryID, existing.ID.Hex())

	writer := &responseWriter{
		ResponseWriter: c.Writer,
		body:           &bytes.Buffer{},
		statusCode:     http.StatusOK,
	}
	c.Writer = writer

	c.Next()

	responseBody := writer.body.Bytes()
	if len(responseBody) > config.MaxResponseSize {
		responseBody = nil
	}

	if err := config.Repository.StoreResponse(ctx, existing.ID.Hex(), writer.statusCode, responseBody); err != nil {
		slog.Error("Failed to store webhook delivery response",
			"error", err,
			"webhookId", webhookID,
			"path", c.Request.URL.Path,
		)
	}
}
