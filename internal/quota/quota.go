package quota

import (
	"context"

	"filevault/internal/model"
)

// Package quota abstracts the per-user storage accounting ledger.
//
// The ledger is shared mutable state reached only through the operations
// below; implementations must make each call a single atomic operation against
// the backing store. Callers never read a counter, compute locally and write
// it back.
//
// Byte accounting is two-phase: Reserve places a provisional hold before any
// content write, then exactly one of Confirm (the write happened) or Release
// (it didn't) retires the hold. ReleaseUsed returns bytes whose content has
// been physically deleted.
type Ledger interface {
	// Reserve places a hold of n bytes against the user's quota. Returns
	// false when quota would be exceeded; no state changes in that case.
	Reserve(ctx context.Context, userID string, n int64) (bool, error)

	// Confirm converts a prior reservation of n bytes into used bytes.
	Confirm(ctx context.Context, userID string, n int64) error

	// Release drops a prior reservation of n bytes. Callers must not
	// double-release.
	Release(ctx context.Context, userID string, n int64) error

	// ReleaseUsed returns n confirmed bytes to the user's free allowance
	// after the underlying content has been deleted.
	ReleaseUsed(ctx context.Context, userID string, n int64) error

	// Usage reads the user's current accounting state.
	Usage(ctx context.Context, userID string) (*model.QuotaUsage, error)

	// EnsureUser creates the ledger row for a user if absent, with the
	// given quota. Existing rows are untouched.
	EnsureUser(ctx context.Context, userID string, quotaBytes int64) error
}
