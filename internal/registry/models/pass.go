package models

import (
	"fmt"

	dErrors "passgate/pkg/domain-errors"
)

// PassID identifies a pass. IDs are allocated from a counter that only
// increases, so they are strictly monotonic and never reused.
type PassID uint64

func (id PassID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// Identity is a principal known to the hosting deployment. The transport
// layer authenticates callers and hands the registry an Identity; the
// registry never infers the caller from ambient state.
type Identity string

// IsZero reports whether the identity is absent.
func (i Identity) IsZero() bool {
	return i == ""
}

// PassStatus is the textual rendering of a pass's revocation state.
type PassStatus string

const (
	PassStatusActive  PassStatus = "Active"
	PassStatusRevoked PassStatus = "Revoked"
)

// StatusFor renders the revocation flag as a PassStatus.
func StatusFor(revoked bool) PassStatus {
	if revoked {
		return PassStatusRevoked
	}
	return PassStatusActive
}

// Defaults for the configurable registry bounds.
const (
	// DefaultMetadataMaxLen bounds pass metadata, matching the 128-character
	// limit of existing deployments.
	DefaultMetadataMaxLen = 128
	// DefaultBulkLimit bounds the number of passes minted per bulk call.
	DefaultBulkLimit = 50
)

// Pass is the registry's central entity.
//
// Invariants:
//   - Metadata is non-empty, bounded, and immutable once set
//   - Owner holds at most one identity; it is empty once the ownership
//     binding has been destroyed by revocation
//   - Revoked, once true, returns to false only through an explicit
//     administrative restore/reissue
type Pass struct {
	ID       PassID   `json:"id"`
	Metadata string   `json:"metadata"`
	Owner    Identity `json:"owner,omitempty"`
	Revoked  bool     `json:"revoked"`
}

// HasOwner reports whether the ownership binding still exists.
func (p *Pass) HasOwner() bool {
	return !p.Owner.IsZero()
}

// Status renders the pass's revocation state.
func (p *Pass) Status() PassStatus {
	return StatusFor(p.Revoked)
}

// ValidateMetadata checks the write-once metadata text against the
// configured bound. The bound is measured in bytes, matching the fixed-width
// string columns of existing deployments.
func ValidateMetadata(text string, maxLen int) error {
	if len(text) == 0 {
		return dErrors.New(dErrors.CodeInvalidPassData, "pass metadata is required")
	}
	if len(text) > maxLen {
		return dErrors.New(dErrors.CodeInvalidPassData,
			fmt.Sprintf("pass metadata exceeds %d characters", maxLen))
	}
	return nil
}
