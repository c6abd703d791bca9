// Package audit defines the registry's audit trail: events describing pass
// lifecycle transitions, an outbox store contract, and the categories that
// decide delivery semantics. Events are written to the outbox inside the
// operation's transaction and published to Kafka by the outbox worker.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Category decides delivery semantics for an event.
type Category string

const (
	// CategoryOps: operational visibility. Emitted fail-open; a write
	// failure is logged and the business operation proceeds.
	CategoryOps Category = "ops"
	// CategoryCompliance: revocation-grade events. Emitted fail-closed;
	// a write failure fails the business operation.
	CategoryCompliance Category = "compliance"
)

// Action names a pass lifecycle transition.
type Action string

const (
	ActionPassIssued      Action = "pass_issued"
	ActionPassBulkIssued  Action = "pass_bulk_issued"
	ActionPassRevoked     Action = "pass_revoked"
	ActionPassFrozen      Action = "pass_frozen"
	ActionPassTransferred Action = "pass_transferred"
	ActionPassReturned    Action = "pass_returned"
	ActionPassRestored    Action = "pass_restored"
	ActionRefundChecked   Action = "pass_refund_checked"
)

// eventCategories is the source of truth for action categorization.
var eventCategories = map[Action]Category{
	ActionPassIssued:      CategoryOps,
	ActionPassBulkIssued:  CategoryOps,
	ActionPassRevoked:     CategoryCompliance,
	ActionPassFrozen:      CategoryCompliance,
	ActionPassTransferred: CategoryOps,
	ActionPassReturned:    CategoryOps,
	ActionPassRestored:    CategoryCompliance,
	ActionRefundChecked:   CategoryOps,
}

// Category returns the delivery category for the action. Unknown actions
// default to ops.
func (a Action) Category() Category {
	if c, ok := eventCategories[a]; ok {
		return c
	}
	return CategoryOps
}

// Event is one audit trail entry. ID doubles as the outbox row key.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Action    Action    `json:"action"`
	Actor     string    `json:"actor"`
	PassID    uint64    `json:"pass_id,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Count     int       `json:"count,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
