// Package worker drains the audit outbox to Kafka. The outbox row is marked
// published only after the broker acknowledges the record, so delivery is
// at-least-once and consumers must dedupe on event id.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "passgate/pkg/platform/audit"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

type Worker struct {
	store    audit.Store
	client   *kgo.Client
	topic    string
	logger   *slog.Logger
	batch    int
	interval time.Duration
}

// Option configures the Worker.
type Option func(*Worker)

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func New(store audit.Store, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		store:    store,
		client:   client,
		topic:    topic,
		logger:   logger,
		batch:    defaultBatchSize,
		interval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EnsureTopic creates the audit topic when it does not exist yet.
func (w *Worker) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(w.client)
	resps, err := adm.CreateTopics(ctx, 1, 1, nil, w.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

// Run polls the outbox until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err.Error())
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	for {
		events, err := w.store.Pending(ctx, w.batch)
		if err != nil {
			return fmt.Errorf("list pending: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		records := make([]*kgo.Record, 0, len(events))
		ids := make([]uuid.UUID, 0, len(events))
		for _, event := range events {
			value, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("marshal event %s: %w", event.ID, err)
			}
			records = append(records, &kgo.Record{
				Topic: w.topic,
				Key:   []byte(event.ID.String()),
				Value: value,
			})
			ids = append(ids, event.ID)
		}

		if err := w.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return fmt.Errorf("produce audit batch: %w", err)
		}
		if err := w.store.MarkPublished(ctx, ids); err != nil {
			return fmt.Errorf("mark published: %w", err)
		}
		if len(events) < w.batch {
			return nil
		}
	}
}
