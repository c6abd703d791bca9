package service

import (
	"context"
	"errors"

	"passgate/internal/registry/models"
	dErrors "passgate/pkg/domain-errors"
	"passgate/pkg/platform/sentinel"
)

// Read-only queries. All of them are pure over the registry state; any two
// queries at the same logical instant are mutually consistent because they
// read through the same store. The Details cache is the one infrastructure
// side effect, and it never changes an answer.

// Exists reports whether the pass was ever issued (metadata recorded).
func (r *Registry) Exists(ctx context.Context, id models.PassID) (bool, error) {
	_, err := r.store.Metadata(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pass metadata")
	}
	return true, nil
}

// IsValid reports whether the pass exists and is not revoked.
func (r *Registry) IsValid(ctx context.Context, id models.PassID) (bool, error) {
	exists, err := r.Exists(ctx, id)
	if err != nil || !exists {
		return false, err
	}
	revoked, err := r.IsRevoked(ctx, id)
	if err != nil {
		return false, err
	}
	return !revoked, nil
}

// IsRevoked reports the revocation flag; absence means not revoked.
func (r *Registry) IsRevoked(ctx context.Context, id models.PassID) (bool, error) {
	revoked, err := r.store.IsRevoked(ctx, id)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation state")
	}
	return revoked, nil
}

// IsTransferable reports whether the pass may change hands (not revoked).
func (r *Registry) IsTransferable(ctx context.Context, id models.PassID) (bool, error) {
	revoked, err := r.IsRevoked(ctx, id)
	if err != nil {
		return false, err
	}
	return !revoked, nil
}

// OwnerOf returns the current holder. The second return is false once the
// ownership binding has been destroyed by revocation (or never existed).
func (r *Registry) OwnerOf(ctx context.Context, id models.PassID) (models.Identity, bool, error) {
	owner, err := r.store.Owner(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", false, nil
		}
		return "", false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pass owner")
	}
	return owner, true, nil
}

// OwnedBy reports whether the given identity currently holds the pass.
func (r *Registry) OwnedBy(ctx context.Context, id models.PassID, identity models.Identity) (bool, error) {
	owner, ok, err := r.OwnerOf(ctx, id)
	if err != nil {
		return false, err
	}
	return ok && owner == identity, nil
}

// Metadata returns the pass's descriptive text.
func (r *Registry) Metadata(ctx context.Context, id models.PassID) (string, error) {
	text, err := r.store.Metadata(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodePassNotAvailable, "pass does not exist")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up pass metadata")
	}
	return text, nil
}

// Details assembles the full pass record, serving from the cache when one
// is configured.
func (r *Registry) Details(ctx context.Context, id models.PassID) (*models.Pass, error) {
	if r.cache != nil {
		if pass, err := r.cache.Get(ctx, id); err == nil {
			return pass, nil
		}
	}

	text, err := r.Metadata(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, _, err := r.OwnerOf(ctx, id)
	if err != nil {
		return nil, err
	}
	revoked, err := r.IsRevoked(ctx, id)
	if err != nil {
		return nil, err
	}

	pass := &models.Pass{
		ID:       id,
		Metadata: text,
		Owner:    owner,
		Revoked:  revoked,
	}
	if r.cache != nil {
		if err := r.cache.Put(ctx, pass); err != nil {
			r.auditEmitter.logCacheError(ctx, id, err)
		}
	}
	return pass, nil
}

// TotalIssued returns the number of passes ever issued, which equals the id
// of the most recently issued pass.
func (r *Registry) TotalIssued(ctx context.Context) (uint64, error) {
	counter, err := r.store.Counter(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read registry counter")
	}
	return counter, nil
}

// LastIssuedID returns the most recently assigned id, 0 when no pass has
// been issued yet.
func (r *Registry) LastIssuedID(ctx context.Context) (models.PassID, error) {
	counter, err := r.TotalIssued(ctx)
	return models.PassID(counter), err
}

// NextID previews the id the next issuance will assign (counter + 1).
func (r *Registry) NextID(ctx context.Context) (models.PassID, error) {
	counter, err := r.TotalIssued(ctx)
	if err != nil {
		return 0, err
	}
	return models.PassID(counter + 1), nil
}

// Admin returns the fixed administrative identity.
func (r *Registry) Admin() models.Identity {
	return r.admin
}

// IsAdmin reports whether the identity is the registry admin.
func (r *Registry) IsAdmin(identity models.Identity) bool {
	return identity == r.admin
}

// IsValidBulkSize reports whether a batch of n entries fits the bulk bound.
// The empty batch is valid: issuing zero passes is a no-op, not a fault.
func (r *Registry) IsValidBulkSize(n int) bool {
	return n >= 0 && n <= r.bulkLimit
}

// BulkLimit returns the configured bulk issuance bound.
func (r *Registry) BulkLimit() int {
	return r.bulkLimit
}

// MetadataMaxLen returns the configured metadata length bound.
func (r *Registry) MetadataMaxLen() int {
	return r.metadataMaxLen
}

// StatusText renders the pass's revocation state as "Active" or "Revoked".
// Total over the state: ids never issued render as "Active" because their
// flag is unset, matching the source registries this replaces.
func (r *Registry) StatusText(ctx context.Context, id models.PassID) (string, error) {
	revoked, err := r.IsRevoked(ctx, id)
	if err != nil {
		return "", err
	}
	return string(models.StatusFor(revoked)), nil
}

// BulkRecord looks up per-batch metadata. No write path populates the
// bulk-records table, so this reports pass-not-available until a deployment
// chooses to record real batch data.
func (r *Registry) BulkRecord(ctx context.Context, id models.PassID) (string, error) {
	record, err := r.store.BulkRecord(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodePassNotAvailable, "no bulk record for pass")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up bulk record")
	}
	return record, nil
}
