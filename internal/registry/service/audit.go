package service

import (
	"context"
	"log/slog"

	"passgate/internal/registry/models"
	audit "passgate/pkg/platform/audit"
	"passgate/pkg/platform/audit/publisher"
	"passgate/pkg/requestcontext"
)

// auditEmitter stamps registry events with the request id and hands them to
// the publisher. Compliance-grade events (revoke, freeze, restore) fail the
// operation when the outbox write fails; the rest are best-effort.
type auditEmitter struct {
	logger    *slog.Logger
	publisher *publisher.Publisher
}

func newAuditEmitter(logger *slog.Logger, pub *publisher.Publisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: pub}
}

func (e *auditEmitter) emit(ctx context.Context, event audit.Event) error {
	if e.publisher == nil {
		return nil
	}
	event.RequestID = requestcontext.RequestID(ctx)
	return e.publisher.Emit(ctx, event)
}

func (e *auditEmitter) emitPassIssued(ctx context.Context, actor models.Identity, id models.PassID) error {
	return e.emit(ctx, audit.Event{
		Action: audit.ActionPassIssued,
		Actor:  string(actor),
		PassID: uint64(id),
	})
}

func (e *auditEmitter) emitBulkIssued(ctx context.Context, actor models.Identity, ids []models.PassID) error {
	event := audit.Event{
		Action: audit.ActionPassBulkIssued,
		Actor:  string(actor),
		Count:  len(ids),
	}
	if len(ids) > 0 {
		event.PassID = uint64(ids[len(ids)-1])
	}
	return e.emit(ctx, event)
}

func (e *auditEmitter) emitPassRevoked(ctx context.Context, actor models.Identity, id models.PassID) error {
	return e.emit(ctx, audit.Event{
		Action: audit.ActionPassRevoked,
		Actor:  string(actor),
		PassID: uint64(id),
	})
}

func (e *auditEmitter) emitPassFrozen(ctx context.Context, actor models.Identity, id models.PassID) error {
	return e.emit(ctx, audit.Event{
		Action: audit.ActionPassFrozen,
		Actor:  string(actor),
		PassID: uint64(id),
	})
}

func (e *auditEmitter) emitPassTransferred(ctx context.Context, actor models.Identity, id models.PassID, from, to models.Identity) error {
	return e.emit(ctx, audit.Event{
		Action: audit.ActionPassTransferred,
		Actor:  string(actor),
		PassID: uint64(id),
		From:   string(from),
		To:     string(to),
	})
}

func (e *auditEmitter) emitPassReturned(ctx context.Context, actor models.Identity, id models.PassID) error {
	return e.emit(ctx, audit.Event{
		Action: audit.ActionPassReturned,
		Actor:  string(actor),
		PassID: uint64(id),
	})
}

func (e *auditEmitter) emitPassRestored(ctx context.Context, actor models.Identity, id models.PassID) error {
	return e.emit(ctx, audit.Event{
		Action: audit.ActionPassRestored,
		Actor:  string(actor),
		PassID: uint64(id),
	})
}

func (e *auditEmitter) emitRefundChecked(ctx context.Context, actor models.Identity, id models.PassID) error {
	return e.emit(ctx, audit.Event{
		Action: audit.ActionRefundChecked,
		Actor:  string(actor),
		PassID: uint64(id),
	})
}

func (e *auditEmitter) logCacheError(ctx context.Context, id models.PassID, err error) {
	if e.logger == nil {
		return
	}
	e.logger.WarnContext(ctx, "pass cache invalidation failed",
		"pass_id", id.String(),
		"error", err.Error(),
	)
}
