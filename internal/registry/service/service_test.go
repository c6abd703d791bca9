package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"passgate/internal/registry/models"
	"passgate/internal/registry/store"
	dErrors "passgate/pkg/domain-errors"
	auditmemory "passgate/pkg/platform/audit/store/memory"
	"passgate/pkg/platform/audit/publisher"
)

const (
	adminID  = models.Identity("admin")
	aliceID  = models.Identity("alice")
	bobID    = models.Identity("bob")
	mallory  = models.Identity("mallory")
	testMeta = "season ticket 2026"
)

// =============================================================================
// Registry Service Test Suite
// =============================================================================
// The registry's transition rules (who may mutate what, and in which states)
// are the core of this system; they are pinned here against the in-memory
// store so every rule is exercised without infrastructure.

type RegistrySuite struct {
	suite.Suite
	store    *store.InMemory
	audit    *auditmemory.Store
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.store = store.NewInMemory()
	s.audit = auditmemory.New()

	var err error
	s.registry, err = New(s.store, adminID,
		WithAuditPublisher(publisher.New(s.audit)),
	)
	s.Require().NoError(err)
}

func (s *RegistrySuite) issue(metadata string) models.PassID {
	id, err := s.registry.IssueSingle(context.Background(), adminID, metadata)
	s.Require().NoError(err)
	return id
}

// issueTo mints a pass and walks it through the recipient-initiated transfer
// so the holder ends up owning it.
func (s *RegistrySuite) issueTo(holder models.Identity, metadata string) models.PassID {
	id := s.issue(metadata)
	s.Require().NoError(s.registry.Transfer(context.Background(), holder, id, adminID, holder))
	return id
}

// =============================================================================
// Constructor
// =============================================================================

func (s *RegistrySuite) TestNew() {
	s.Run("empty admin identity returns error", func() {
		_, err := New(s.store, "")
		s.Error(err)
		s.Contains(err.Error(), "admin identity is required")
	})

	s.Run("defaults applied when no options given", func() {
		reg, err := New(s.store, adminID)
		s.NoError(err)
		s.Equal(models.DefaultBulkLimit, reg.BulkLimit())
		s.Equal(models.DefaultMetadataMaxLen, reg.MetadataMaxLen())
	})
}

// =============================================================================
// Single Issuance
// =============================================================================

func (s *RegistrySuite) TestIssueSingle() {
	ctx := context.Background()

	s.Run("non-admin caller is rejected", func() {
		_, err := s.registry.IssueSingle(ctx, aliceID, testMeta)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAccess))
	})

	s.Run("empty metadata is rejected", func() {
		_, err := s.registry.IssueSingle(ctx, adminID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidPassData))
	})

	s.Run("oversized metadata is rejected", func() {
		_, err := s.registry.IssueSingle(ctx, adminID, strings.Repeat("x", 129))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidPassData))
	})

	s.Run("metadata at the bound is accepted", func() {
		_, err := s.registry.IssueSingle(ctx, adminID, strings.Repeat("x", 128))
		s.NoError(err)
	})

	s.Run("new pass is owned by the issuing admin", func() {
		id := s.issue(testMeta)

		owner, present, err := s.registry.OwnerOf(ctx, id)
		s.NoError(err)
		s.True(present)
		s.Equal(adminID, owner)

		text, err := s.registry.Metadata(ctx, id)
		s.NoError(err)
		s.Equal(testMeta, text)

		revoked, err := s.registry.IsRevoked(ctx, id)
		s.NoError(err)
		s.False(revoked)
	})

	s.Run("ids are strictly increasing", func() {
		first := s.issue("first")
		second := s.issue("second")
		s.Equal(first+1, second)
	})

	s.Run("rejected issuance does not consume an id", func() {
		before, err := s.registry.NextID(ctx)
		s.Require().NoError(err)

		_, err = s.registry.IssueSingle(ctx, adminID, "")
		s.Error(err)

		after, err := s.registry.NextID(ctx)
		s.NoError(err)
		s.Equal(before, after)
	})
}

// =============================================================================
// Bulk Issuance
// =============================================================================

func (s *RegistrySuite) TestIssueBulk() {
	ctx := context.Background()

	s.Run("non-admin caller is rejected", func() {
		_, err := s.registry.IssueBulk(ctx, bobID, []string{testMeta})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAccess))
	})

	s.Run("empty batch is a no-op returning no ids", func() {
		before, err := s.registry.TotalIssued(ctx)
		s.Require().NoError(err)

		ids, err := s.registry.IssueBulk(ctx, adminID, nil)
		s.NoError(err)
		s.Empty(ids)

		after, err := s.registry.TotalIssued(ctx)
		s.NoError(err)
		s.Equal(before, after)
		s.Empty(s.audit.Events())
	})

	s.Run("batch above the limit is rejected", func() {
		texts := make([]string, 51)
		for i := range texts {
			texts[i] = testMeta
		}
		_, err := s.registry.IssueBulk(ctx, adminID, texts)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidPassData))
	})

	s.Run("batch at the limit succeeds with contiguous ids", func() {
		next, err := s.registry.NextID(ctx)
		s.Require().NoError(err)

		texts := make([]string, 50)
		for i := range texts {
			texts[i] = testMeta
		}
		ids, err := s.registry.IssueBulk(ctx, adminID, texts)
		s.NoError(err)
		s.Len(ids, 50)
		for i, id := range ids {
			s.Equal(next+models.PassID(i), id)
		}
	})

	s.Run("one invalid entry fails the whole batch without minting", func() {
		before, err := s.registry.TotalIssued(ctx)
		s.Require().NoError(err)

		_, err = s.registry.IssueBulk(ctx, adminID, []string{testMeta, "", testMeta})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidPassData))

		after, err := s.registry.TotalIssued(ctx)
		s.NoError(err)
		s.Equal(before, after)
	})

	s.Run("every bulk pass is owned by the admin", func() {
		ids, err := s.registry.IssueBulk(ctx, adminID, []string{"a", "b", "c"})
		s.Require().NoError(err)
		for _, id := range ids {
			owned, err := s.registry.OwnedBy(ctx, id, adminID)
			s.NoError(err)
			s.True(owned)
		}
	})
}

// =============================================================================
// Revocation
// =============================================================================

func (s *RegistrySuite) TestRevoke() {
	ctx := context.Background()

	s.Run("unissued pass reports not available", func() {
		err := s.registry.Revoke(ctx, aliceID, 9999)
		s.True(dErrors.HasCode(err, dErrors.CodePassNotAvailable))
	})

	s.Run("non-holder may not revoke", func() {
		id := s.issueTo(aliceID, testMeta)
		err := s.registry.Revoke(ctx, mallory, id)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedHolder))
	})

	s.Run("admin may not revoke a pass it does not hold", func() {
		id := s.issueTo(aliceID, testMeta)
		err := s.registry.Revoke(ctx, adminID, id)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedHolder))
	})

	s.Run("holder revocation destroys ownership and flags the pass", func() {
		id := s.issueTo(aliceID, testMeta)
		s.NoError(s.registry.Revoke(ctx, aliceID, id))

		_, present, err := s.registry.OwnerOf(ctx, id)
		s.NoError(err)
		s.False(present)

		revoked, err := s.registry.IsRevoked(ctx, id)
		s.NoError(err)
		s.True(revoked)

		// Metadata survives revocation.
		text, err := s.registry.Metadata(ctx, id)
		s.NoError(err)
		s.Equal(testMeta, text)
	})

	s.Run("second revocation reports pass not available", func() {
		id := s.issueTo(aliceID, testMeta)
		s.Require().NoError(s.registry.Revoke(ctx, aliceID, id))

		// The ownership binding is gone, so the holder check fails first.
		err := s.registry.Revoke(ctx, aliceID, id)
		s.True(dErrors.HasCode(err, dErrors.CodePassNotAvailable))
	})
}

// =============================================================================
// Transfer
// =============================================================================

func (s *RegistrySuite) TestTransfer() {
	ctx := context.Background()

	s.Run("only the recipient may execute the move", func() {
		id := s.issue(testMeta)
		err := s.registry.Transfer(ctx, adminID, id, adminID, aliceID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedHolder))
	})

	s.Run("stated sender must be the current owner", func() {
		id := s.issue(testMeta)
		err := s.registry.Transfer(ctx, aliceID, id, bobID, aliceID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedHolder))
	})

	s.Run("unissued pass reports unauthorized holder", func() {
		err := s.registry.Transfer(ctx, aliceID, 9999, adminID, aliceID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedHolder))
	})

	s.Run("recipient pull moves ownership exclusively", func() {
		id := s.issue(testMeta)
		s.NoError(s.registry.Transfer(ctx, aliceID, id, adminID, aliceID))

		owned, err := s.registry.OwnedBy(ctx, id, aliceID)
		s.NoError(err)
		s.True(owned)

		owned, err = s.registry.OwnedBy(ctx, id, adminID)
		s.NoError(err)
		s.False(owned)
	})

	s.Run("revoked pass is not transferable", func() {
		id := s.issueTo(aliceID, testMeta)
		s.Require().NoError(s.registry.SetNonTransferable(ctx, adminID, id))

		err := s.registry.Transfer(ctx, bobID, id, aliceID, bobID)
		s.True(dErrors.HasCode(err, dErrors.CodePreviouslyRevoked))
	})

	s.Run("holder may pull a pass to themselves", func() {
		id := s.issueTo(aliceID, testMeta)
		s.NoError(s.registry.Transfer(ctx, aliceID, id, aliceID, aliceID))

		owned, err := s.registry.OwnedBy(ctx, id, aliceID)
		s.NoError(err)
		s.True(owned)
	})
}

// =============================================================================
// Return To Issuer
// =============================================================================

func (s *RegistrySuite) TestReturnToIssuer() {
	ctx := context.Background()

	s.Run("unissued pass reports not available", func() {
		err := s.registry.ReturnToIssuer(ctx, aliceID, 9999)
		s.True(dErrors.HasCode(err, dErrors.CodePassNotAvailable))
	})

	s.Run("only the holder may return", func() {
		id := s.issueTo(aliceID, testMeta)
		err := s.registry.ReturnToIssuer(ctx, bobID, id)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedHolder))
	})

	s.Run("return hands ownership back to the admin", func() {
		id := s.issueTo(aliceID, testMeta)
		s.NoError(s.registry.ReturnToIssuer(ctx, aliceID, id))

		owner, present, err := s.registry.OwnerOf(ctx, id)
		s.NoError(err)
		s.True(present)
		s.Equal(adminID, owner)
	})
}

// =============================================================================
// Administrative Freeze (SetNonTransferable)
// =============================================================================

func (s *RegistrySuite) TestSetNonTransferable() {
	ctx := context.Background()

	s.Run("non-admin caller is rejected", func() {
		id := s.issueTo(aliceID, testMeta)
		err := s.registry.SetNonTransferable(ctx, aliceID, id)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAccess))
	})

	s.Run("freeze flags the pass but keeps the ownership binding", func() {
		id := s.issueTo(aliceID, testMeta)
		s.NoError(s.registry.SetNonTransferable(ctx, adminID, id))

		revoked, err := s.registry.IsRevoked(ctx, id)
		s.NoError(err)
		s.True(revoked)

		// Unlike holder revocation, the owner survives.
		owner, present, err := s.registry.OwnerOf(ctx, id)
		s.NoError(err)
		s.True(present)
		s.Equal(aliceID, owner)
	})

	s.Run("freezing an already revoked pass is rejected", func() {
		id := s.issueTo(aliceID, testMeta)
		s.Require().NoError(s.registry.SetNonTransferable(ctx, adminID, id))

		err := s.registry.SetNonTransferable(ctx, adminID, id)
		s.True(dErrors.HasCode(err, dErrors.CodePreviouslyRevoked))
	})
}

// =============================================================================
// Restore / Reissue
// =============================================================================

func (s *RegistrySuite) TestRestore() {
	ctx := context.Background()

	s.Run("non-admin caller is rejected", func() {
		err := s.registry.Restore(ctx, aliceID, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAccess))
	})

	s.Run("restoring a pass that is not revoked fails", func() {
		id := s.issue(testMeta)
		err := s.registry.Restore(ctx, adminID, id)
		s.True(dErrors.HasCode(err, dErrors.CodeRevocationFailed))
	})

	s.Run("reissue reports a different code for the same state", func() {
		id := s.issue(testMeta)
		err := s.registry.Reissue(ctx, adminID, id)
		s.True(dErrors.HasCode(err, dErrors.CodePassNotAvailable))
	})

	s.Run("restore clears the flag after an administrative freeze", func() {
		id := s.issueTo(aliceID, testMeta)
		s.Require().NoError(s.registry.SetNonTransferable(ctx, adminID, id))

		s.NoError(s.registry.Restore(ctx, adminID, id))

		revoked, err := s.registry.IsRevoked(ctx, id)
		s.NoError(err)
		s.False(revoked)

		// Ownership was never destroyed, so the pass is whole again.
		owned, err := s.registry.OwnedBy(ctx, id, aliceID)
		s.NoError(err)
		s.True(owned)
	})

	s.Run("restore never re-establishes destroyed ownership", func() {
		id := s.issueTo(aliceID, testMeta)
		s.Require().NoError(s.registry.Revoke(ctx, aliceID, id))

		s.NoError(s.registry.Restore(ctx, adminID, id))

		revoked, err := s.registry.IsRevoked(ctx, id)
		s.NoError(err)
		s.False(revoked)

		_, present, err := s.registry.OwnerOf(ctx, id)
		s.NoError(err)
		s.False(present)
	})
}

// =============================================================================
// Refund Check
// =============================================================================

func (s *RegistrySuite) TestProcessRefund() {
	ctx := context.Background()

	s.Run("non-admin caller is rejected", func() {
		_, err := s.registry.ProcessRefund(ctx, bobID, 1)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedAccess))
	})

	s.Run("refund applies to revoked passes only", func() {
		id := s.issue(testMeta)
		_, err := s.registry.ProcessRefund(ctx, adminID, id)
		s.True(dErrors.HasCode(err, dErrors.CodePassNotAvailable))
	})

	s.Run("frozen pass reports its surviving holder", func() {
		id := s.issueTo(aliceID, testMeta)
		s.Require().NoError(s.registry.SetNonTransferable(ctx, adminID, id))

		holder, err := s.registry.ProcessRefund(ctx, adminID, id)
		s.NoError(err)
		s.Equal(aliceID, holder)
	})

	s.Run("holder-revoked pass reports no holder", func() {
		id := s.issueTo(aliceID, testMeta)
		s.Require().NoError(s.registry.Revoke(ctx, aliceID, id))

		holder, err := s.registry.ProcessRefund(ctx, adminID, id)
		s.NoError(err)
		s.True(holder.IsZero())
	})

	s.Run("refund check does not change state", func() {
		id := s.issueTo(aliceID, testMeta)
		s.Require().NoError(s.registry.SetNonTransferable(ctx, adminID, id))

		_, err := s.registry.ProcessRefund(ctx, adminID, id)
		s.Require().NoError(err)

		revoked, err := s.registry.IsRevoked(ctx, id)
		s.NoError(err)
		s.True(revoked)
		owned, err := s.registry.OwnedBy(ctx, id, aliceID)
		s.NoError(err)
		s.True(owned)
	})
}

// =============================================================================
// Full Lifecycle
// =============================================================================

func (s *RegistrySuite) TestLifecycleScenario() {
	ctx := context.Background()

	// Admin mints, alice pulls, alice hands to bob, bob revokes, admin
	// restores; the pass ends valid but ownerless.
	id := s.issue("event pass 42")

	s.Require().NoError(s.registry.Transfer(ctx, aliceID, id, adminID, aliceID))
	s.Require().NoError(s.registry.Transfer(ctx, bobID, id, aliceID, bobID))

	owned, err := s.registry.OwnedBy(ctx, id, bobID)
	s.Require().NoError(err)
	s.Require().True(owned)

	s.Require().NoError(s.registry.Revoke(ctx, bobID, id))

	valid, err := s.registry.IsValid(ctx, id)
	s.NoError(err)
	s.False(valid)

	s.Require().NoError(s.registry.Restore(ctx, adminID, id))

	valid, err = s.registry.IsValid(ctx, id)
	s.NoError(err)
	s.True(valid)

	_, present, err := s.registry.OwnerOf(ctx, id)
	s.NoError(err)
	s.False(present)

	transferable, err := s.registry.IsTransferable(ctx, id)
	s.NoError(err)
	s.True(transferable)
}

// =============================================================================
// Audit Trail
// =============================================================================

func (s *RegistrySuite) TestAuditEvents() {
	ctx := context.Background()

	id := s.issueTo(aliceID, testMeta)
	s.Require().NoError(s.registry.Revoke(ctx, aliceID, id))

	events := s.audit.Events()
	s.Require().NotEmpty(events)

	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, string(e.Action))
	}
	s.Contains(actions, "pass_issued")
	s.Contains(actions, "pass_transferred")
	s.Contains(actions, "pass_revoked")

	last := events[len(events)-1]
	s.Equal(uint64(id), last.PassID)
	s.Equal(string(aliceID), last.Actor)
	s.NotZero(last.ID)
	s.False(last.Timestamp.IsZero())
}
