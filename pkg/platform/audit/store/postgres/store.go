// Package postgres implements the audit outbox on PostgreSQL using the
// transactional outbox pattern. Events appended during a registry operation
// share that operation's transaction, so an audit row exists exactly when
// the transition it describes committed.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "passgate/pkg/platform/audit"
	txcontext "passgate/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes an audit event to the outbox for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx,
		`INSERT INTO audit_outbox (id, action, category, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, string(event.Action), string(event.Action.Category()), payload, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Pending returns unpublished events in commit order.
func (s *Store) Pending(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM audit_outbox
		 WHERE published_at IS NULL
		 ORDER BY created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit payload: %w", err)
		}
		var event audit.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// MarkPublished stamps events delivered to Kafka in one round trip.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = now() WHERE id = ANY($1::uuid[])`,
		pq.Array(raw),
	)
	if err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}
