package idempotency

import "time"

const (
	// DefaultLockTimeout is how long a lock may be held before it is stale
	DefaultLockTimeout = 2 * time.Minute

	// DefaultRetentionPeriod is how long delivery records are retained
	DefaultRetentionPeriod = 48 * time.Hour

	// DefaultMaxResponseSize caps the cached response body (64KB)
	DefaultMaxResponseSize = 64 * 1024
)

// Config holds configuration for the webhook dedup middleware
type Config struct {
	// ServiceName scopes delivery records per service
	ServiceName string

	// Repository is the storage backend for delivery records
	Repository DeliveryRepository

	// HeaderName is the header carrying the webhook delivery ID
	HeaderName string

	// LockTimeout is the duration after which a lock is considered stale
	LockTimeout time.Duration

	// RetentionPeriod is how long delivery records are retained
	RetentionPeriod time.Duration

	// MaxResponseSize is the largest response body that will be cached
	MaxResponseSize int
}

// DefaultConfig returns a default configuration for the given service.
func DefaultConfig(serviceName string, repository DeliveryRepository) *Config {
	return &Config{
		ServiceName:     serviceName,
		Repository:      repository,
		HeaderName:      HeaderWebhookID,
		LockTimeout:     DefaultLockTimeout,
		RetentionPeriod: DefaultRetentionPeriod,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}
