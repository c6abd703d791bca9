// Package service implements the pass registry state machine: issuance,
// revocation, transfer, and restoration of uniquely identified passes under
// a single administrative authority.
//
// Every operation takes the caller identity as an explicit parameter; the
// registry never infers the caller from ambient state. Authorization checks
// run before any mutation, and each mutating operation executes inside one
// StoreTx so its effects commit or roll back as a unit.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"passgate/internal/registry/metrics"
	"passgate/internal/registry/models"
	dErrors "passgate/pkg/domain-errors"
	"passgate/pkg/platform/sentinel"
)

// Store is the persistence contract for the four registry tables and the id
// counter. Implementations return sentinel errors for infrastructure facts;
// the service translates them into domain errors.
type Store interface {
	AllocateID(ctx context.Context) (models.PassID, error)
	Counter(ctx context.Context) (uint64, error)
	PutMetadata(ctx context.Context, id models.PassID, text string) error
	Metadata(ctx context.Context, id models.PassID) (string, error)
	Owner(ctx context.Context, id models.PassID) (models.Identity, error)
	SetOwner(ctx context.Context, id models.PassID, owner models.Identity) error
	DeleteOwner(ctx context.Context, id models.PassID) error
	IsRevoked(ctx context.Context, id models.PassID) (bool, error)
	SetRevoked(ctx context.Context, id models.PassID, revoked bool) error
	BulkRecord(ctx context.Context, id models.PassID) (string, error)
}

// StoreTx runs a function as one logical transaction. The Postgres adapter
// opens a sql.Tx and carries it in context; the in-memory adapter serializes
// operations behind a mutex.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DetailsCache is an optional read cache for assembled pass details.
// Implementations return sentinel.ErrNotFound on miss.
type DetailsCache interface {
	Get(ctx context.Context, id models.PassID) (*models.Pass, error)
	Put(ctx context.Context, pass *models.Pass) error
	Invalidate(ctx context.Context, id models.PassID) error
}

// Registry owns all pass state and the rules governing its transitions.
// The admin identity is fixed at construction and never changes.
type Registry struct {
	store          Store
	tx             StoreTx
	admin          models.Identity
	metadataMaxLen int
	bulkLimit      int
	auditEmitter   *auditEmitter
	metrics        *metrics.Metrics
	cache          DetailsCache
	tracer         trace.Tracer
}

// New constructs a Registry. admin must be non-empty; it is the only
// identity allowed to issue, freeze, restore, and refund.
func New(store Store, admin models.Identity, opts ...Option) (*Registry, error) {
	if admin.IsZero() {
		return nil, fmt.Errorf("registry admin identity is required")
	}
	cfg := &registryConfig{
		metadataMaxLen: models.DefaultMetadataMaxLen,
		bulkLimit:      models.DefaultBulkLimit,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	tx := cfg.tx
	if tx == nil {
		tx = NewInMemoryStoreTx()
	}
	return &Registry{
		store:          store,
		tx:             tx,
		admin:          admin,
		metadataMaxLen: cfg.metadataMaxLen,
		bulkLimit:      cfg.bulkLimit,
		auditEmitter:   newAuditEmitter(cfg.logger, cfg.publisher),
		metrics:        cfg.metrics,
		cache:          cfg.cache,
		tracer:         otel.Tracer("passgate/registry"),
	}, nil
}

// NewInMemoryStoreTx returns a StoreTx that serializes operations behind a
// process-local mutex. Pair it with the in-memory store; partial effects
// cannot be observed because nothing else runs between lock and unlock.
func NewInMemoryStoreTx() StoreTx {
	return &inMemoryStoreTx{}
}

type inMemoryStoreTx struct {
	mu sync.Mutex
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

func (r *Registry) requireAdmin(caller models.Identity) error {
	if caller != r.admin {
		return dErrors.New(dErrors.CodeUnauthorizedAccess, "caller is not the registry admin")
	}
	return nil
}

// IssueSingle mints one pass. The new pass is owned by the issuing admin;
// holders acquire it afterwards through a recipient-initiated transfer.
func (r *Registry) IssueSingle(ctx context.Context, caller models.Identity, metadata string) (models.PassID, error) {
	ctx, span := r.tracer.Start(ctx, "registry.IssueSingle")
	defer span.End()
	start := time.Now()

	if err := r.requireAdmin(caller); err != nil {
		return 0, err
	}
	if err := models.ValidateMetadata(metadata, r.metadataMaxLen); err != nil {
		return 0, err
	}

	var id models.PassID
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		id, err = r.mint(txCtx, caller, metadata)
		if err != nil {
			return err
		}
		return r.auditEmitter.emitPassIssued(txCtx, caller, id)
	})
	if err != nil {
		return 0, err
	}

	r.metrics.IncPassesIssued(1)
	r.metrics.ObserveIssue(start)
	return id, nil
}

// IssueBulk mints up to bulkLimit passes in one call. Every metadata entry
// is validated before any pass is minted, so a failing entry leaves the
// registry untouched; the first failure is reported for the whole batch.
func (r *Registry) IssueBulk(ctx context.Context, caller models.Identity, texts []string) ([]models.PassID, error) {
	ctx, span := r.tracer.Start(ctx, "registry.IssueBulk")
	defer span.End()
	start := time.Now()

	if err := r.requireAdmin(caller); err != nil {
		return nil, err
	}
	if !r.IsValidBulkSize(len(texts)) {
		return nil, dErrors.New(dErrors.CodeInvalidPassData,
			fmt.Sprintf("bulk batch exceeds %d entries", r.bulkLimit))
	}
	for _, text := range texts {
		if err := models.ValidateMetadata(text, r.metadataMaxLen); err != nil {
			return nil, err
		}
	}
	// Zero entries is a no-op issuance: nothing to mint, nothing to audit.
	if len(texts) == 0 {
		return []models.PassID{}, nil
	}

	ids := make([]models.PassID, 0, len(texts))
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for _, text := range texts {
			id, err := r.mint(txCtx, caller, text)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return r.auditEmitter.emitBulkIssued(txCtx, caller, ids)
	})
	if err != nil {
		return nil, err
	}

	r.metrics.IncPassesIssued(len(ids))
	r.metrics.IncBulkBatches()
	r.metrics.ObserveIssue(start)
	return ids, nil
}

// mint allocates the next id and records metadata and initial ownership.
// Callers run it inside a StoreTx.
func (r *Registry) mint(ctx context.Context, owner models.Identity, metadata string) (models.PassID, error) {
	id, err := r.store.AllocateID(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate pass id")
	}
	if err := r.store.PutMetadata(ctx, id, metadata); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record pass metadata")
	}
	if err := r.store.SetOwner(ctx, id, owner); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record pass owner")
	}
	return id, nil
}

// Revoke destroys the ownership binding and flags the pass revoked. Only
// the current holder may revoke. Restore does not bring ownership back.
func (r *Registry) Revoke(ctx context.Context, caller models.Identity, id models.PassID) error {
	ctx, span := r.tracer.Start(ctx, "registry.Revoke")
	defer span.End()
	start := time.Now()

	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		owner, err := r.store.Owner(txCtx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodePassNotAvailable, "pass has no current owner")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pass owner")
		}
		if owner != caller {
			return dErrors.New(dErrors.CodeUnauthorizedHolder, "only the current holder may revoke a pass")
		}
		revoked, err := r.store.IsRevoked(txCtx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation state")
		}
		if revoked {
			return dErrors.New(dErrors.CodePreviouslyRevoked, "pass is already revoked")
		}
		if err := r.store.DeleteOwner(txCtx, id); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to destroy ownership binding")
		}
		if err := r.store.SetRevoked(txCtx, id, true); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to flag pass revoked")
		}
		return r.auditEmitter.emitPassRevoked(txCtx, caller, id)
	})
	if err != nil {
		return err
	}

	r.invalidateCache(ctx, id)
	r.metrics.IncPassesRevoked()
	r.metrics.ObserveRevoke(start)
	return nil
}

// Transfer moves ownership from one holder to another. Transfers are
// recipient-initiated: only `to` may execute the move, and `from` must be
// the pass's actual current owner.
func (r *Registry) Transfer(ctx context.Context, caller models.Identity, id models.PassID, from, to models.Identity) error {
	ctx, span := r.tracer.Start(ctx, "registry.Transfer")
	defer span.End()
	start := time.Now()

	if caller != to {
		return dErrors.New(dErrors.CodeUnauthorizedHolder, "transfers must be executed by the recipient")
	}

	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		revoked, err := r.store.IsRevoked(txCtx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation state")
		}
		if revoked {
			return dErrors.New(dErrors.CodePreviouslyRevoked, "revoked passes are not transferable")
		}
		owner, err := r.store.Owner(txCtx, id)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pass owner")
		}
		if err != nil || owner != from {
			return dErrors.New(dErrors.CodeUnauthorizedHolder, "pass is not held by the stated sender")
		}
		if err := r.store.SetOwner(txCtx, id, to); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to move ownership")
		}
		return r.auditEmitter.emitPassTransferred(txCtx, caller, id, from, to)
	})
	if err != nil {
		return err
	}

	r.invalidateCache(ctx, id)
	r.metrics.IncPassesTransferred()
	r.metrics.ObserveTransfer(start)
	return nil
}

// ReturnToIssuer hands a pass back to the admin voluntarily.
func (r *Registry) ReturnToIssuer(ctx context.Context, caller models.Identity, id models.PassID) error {
	ctx, span := r.tracer.Start(ctx, "registry.ReturnToIssuer")
	defer span.End()
	start := time.Now()

	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		owner, err := r.store.Owner(txCtx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodePassNotAvailable, "pass has no current owner")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pass owner")
		}
		if owner != caller {
			return dErrors.New(dErrors.CodeUnauthorizedHolder, "only the current holder may return a pass")
		}
		if err := r.store.SetOwner(txCtx, id, r.admin); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to move ownership")
		}
		return r.auditEmitter.emitPassReturned(txCtx, caller, id)
	})
	if err != nil {
		return err
	}

	r.invalidateCache(ctx, id)
	r.metrics.IncPassesTransferred()
	r.metrics.ObserveTransfer(start)
	return nil
}

// SetNonTransferable is the administrative hard-revoke: it flags the pass
// revoked without holder consent. Unlike Revoke it leaves the ownership
// binding in place; the two semantics are distinct on purpose and pinned by
// tests.
func (r *Registry) SetNonTransferable(ctx context.Context, caller models.Identity, id models.PassID) error {
	ctx, span := r.tracer.Start(ctx, "registry.SetNonTransferable")
	defer span.End()
	start := time.Now()

	if err := r.requireAdmin(caller); err != nil {
		return err
	}

	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		revoked, err := r.store.IsRevoked(txCtx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation state")
		}
		if revoked {
			return dErrors.New(dErrors.CodePreviouslyRevoked, "pass is already revoked")
		}
		if err := r.store.SetRevoked(txCtx, id, true); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to flag pass revoked")
		}
		return r.auditEmitter.emitPassFrozen(txCtx, caller, id)
	})
	if err != nil {
		return err
	}

	r.invalidateCache(ctx, id)
	r.metrics.IncPassesRevoked()
	r.metrics.ObserveRevoke(start)
	return nil
}

// Restore clears the revocation flag. It does not re-establish ownership
// destroyed by Revoke.
func (r *Registry) Restore(ctx context.Context, caller models.Identity, id models.PassID) error {
	return r.clearRevocation(ctx, "registry.Restore", caller, id, dErrors.CodeRevocationFailed)
}

// Reissue is Restore under the legacy name kept for interface
// compatibility; it differs only in the error reported when the pass is not
// currently revoked.
func (r *Registry) Reissue(ctx context.Context, caller models.Identity, id models.PassID) error {
	return r.clearRevocation(ctx, "registry.Reissue", caller, id, dErrors.CodePassNotAvailable)
}

func (r *Registry) clearRevocation(ctx context.Context, spanName string, caller models.Identity, id models.PassID, notRevokedCode dErrors.Code) error {
	ctx, span := r.tracer.Start(ctx, spanName)
	defer span.End()

	if err := r.requireAdmin(caller); err != nil {
		return err
	}

	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		revoked, err := r.store.IsRevoked(txCtx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation state")
		}
		if !revoked {
			return dErrors.New(notRevokedCode, "pass is not currently revoked")
		}
		if err := r.store.SetRevoked(txCtx, id, false); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear revocation flag")
		}
		return r.auditEmitter.emitPassRestored(txCtx, caller, id)
	})
	if err != nil {
		return err
	}

	r.invalidateCache(ctx, id)
	r.metrics.IncPassesRestored()
	return nil
}

// ProcessRefund is a settlement placeholder: it authorizes the request and
// returns the current holder identity (empty when the ownership binding was
// destroyed) without touching any state.
func (r *Registry) ProcessRefund(ctx context.Context, caller models.Identity, id models.PassID) (models.Identity, error) {
	ctx, span := r.tracer.Start(ctx, "registry.ProcessRefund")
	defer span.End()

	if err := r.requireAdmin(caller); err != nil {
		return "", err
	}
	revoked, err := r.store.IsRevoked(ctx, id)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation state")
	}
	if !revoked {
		return "", dErrors.New(dErrors.CodePassNotAvailable, "refunds apply to revoked passes only")
	}
	owner, err := r.store.Owner(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			owner = ""
		} else {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pass owner")
		}
	}
	if err := r.auditEmitter.emitRefundChecked(ctx, caller, id); err != nil {
		return "", err
	}
	return owner, nil
}

func (r *Registry) invalidateCache(ctx context.Context, id models.PassID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, id); err != nil {
		r.auditEmitter.logCacheError(ctx, id, err)
	}
}
