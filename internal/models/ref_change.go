package models

import "strings"

const (
	branchPrefix = "refs/heads/"
	tagPrefix    = "refs/tags/"
)

// ZeroHash is the all-zero object id git uses for a missing side of a ref update
const ZeroHash = "0000000000000000000000000000000000000000"

// RefChangeType is the kind of ref update
type RefChangeType int

const (
	RefAdd RefChangeType = iota
	RefUpdate
	RefDelete
)

// String returns the lowercase name of the change type
func (t RefChangeType) String() string {
	switch t {
	case RefAdd:
		return "add"
	case RefUpdate:
		return "update"
	case RefDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// RefChange is a single update of a named reference
type RefChange struct {
	// RefID is the full ref name (e.g., "refs/heads/main")
	RefID string
	// FromHash is the old target, ZeroHash when the ref is created
	FromHash string
	// ToHash is the new target, ZeroHash when the ref is deleted
	ToHash string
	// Type of the update
	Type RefChangeType
}

// NewRefChange creates a RefChange, deriving the type from the hashes
func NewRefChange(refID, fromHash, toHash string) RefChange {
	changeType := RefUpdate
	switch {
	case isZeroHash(fromHash):
		changeType = RefAdd
	case isZeroHash(toHash):
		changeType = RefDelete
	}

	return RefChange{
		RefID:    refID,
		FromHash: fromHash,
		ToHash:   toHash,
		Type:     changeType,
	}
}

// IsTag returns true for refs under refs/tags/
func (r RefChange) IsTag() bool {
	return strings.HasPrefix(r.RefID, tagPrefix)
}

// IsBranch returns true for refs under refs/heads/
func (r RefChange) IsBranch() bool {
	return strings.HasPrefix(r.RefID, branchPrefix)
}

// DisplayID returns the ref name without its refs/heads/ or refs/tags/ prefix
func (r RefChange) DisplayID() string {
	if r.IsBranch() {
		return strings.TrimPrefix(r.RefID, branchPrefix)
	}
	return strings.TrimPrefix(r.RefID, tagPrefix)
}

func isZeroHash(hash string) bool {
	return hash == "" || strings.Trim(hash, "0") == ""
}
