package service

import (
	"log/slog"

	"passgate/internal/registry/metrics"
	"passgate/pkg/platform/audit/publisher"
)

type registryConfig struct {
	logger         *slog.Logger
	metrics        *metrics.Metrics
	publisher      *publisher.Publisher
	cache          DetailsCache
	tx             StoreTx
	metadataMaxLen int
	bulkLimit      int
}

// Option configures a Registry.
type Option func(*registryConfig)

// WithLogger sets the logger used for audit and cache failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *registryConfig) {
		c.logger = logger
	}
}

// WithMetrics attaches registry metrics. Nil-safe when omitted.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *registryConfig) {
		c.metrics = m
	}
}

// WithAuditPublisher attaches the audit trail publisher.
func WithAuditPublisher(p *publisher.Publisher) Option {
	return func(c *registryConfig) {
		c.publisher = p
	}
}

// WithCache attaches a details read cache, invalidated on every mutation.
func WithCache(cache DetailsCache) Option {
	return func(c *registryConfig) {
		c.cache = cache
	}
}

// WithStoreTx sets the transaction runner. Defaults to the in-memory mutex
// runner; production wiring passes the Postgres adapter.
func WithStoreTx(tx StoreTx) Option {
	return func(c *registryConfig) {
		c.tx = tx
	}
}

// WithMetadataMaxLen overrides the metadata length bound (default 128).
func WithMetadataMaxLen(n int) Option {
	return func(c *registryConfig) {
		if n > 0 {
			c.metadataMaxLen = n
		}
	}
}

// WithBulkLimit overrides the bulk issuance bound (default 50).
func WithBulkLimit(n int) Option {
	return func(c *registryConfig) {
		if n > 0 {
			c.bulkLimit = n
		}
	}
}
