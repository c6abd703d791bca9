package audit

import (
	"context"

	"github.com/google/uuid"
)

// Store is the outbox contract. Append participates in the caller's
// transaction when one is carried in context; Pending and MarkPublished are
// used only by the outbox worker.
type Store interface {
	Append(ctx context.Context, event Event) error
	Pending(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}
