// Package publisher emits audit events with category-dependent semantics:
// compliance events are fail-closed (a write failure fails the calling
// operation), ops events are fail-open (logged and dropped).
package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "passgate/pkg/platform/audit"
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for fail-open error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock overrides the timestamp source for tests.
func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit writes an event to the outbox. ID and Timestamp are assigned when
// absent. For compliance events the error must fail the calling operation;
// for ops events a failure is logged and swallowed.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p == nil || p.store == nil {
		return nil
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock().UTC()
	}

	err := p.store.Append(ctx, event)
	if err == nil {
		return nil
	}
	if event.Action.Category() == audit.CategoryCompliance {
		return err
	}
	if p.logger != nil {
		p.logger.WarnContext(ctx, "dropping ops audit event",
			"action", string(event.Action),
			"error", err.Error(),
		)
	}
	return nil
}
