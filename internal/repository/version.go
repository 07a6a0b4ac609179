package repository

import (
	"context"

	"filevault/internal/model"
)

// DeletedVersion describes the row removed by DeleteChecked together with the
// outcome of the in-transaction reference check on its storage path.
type DeletedVersion struct {
	FileID      string
	Seq         int
	StoragePath string
	Size        int64
	// PathReferenced is true when, after the row is gone, another version
	// or a file row still points at the same storage path.
	PathReferenced bool
}

// VersionRepository defines data access for file version rows.
type VersionRepository interface {
	// Create inserts a new version row. A collision on (file_id, seq)
	// yields ErrDuplicateSeq.
	Create(ctx context.Context, v *model.Version) (*model.Version, error)

	// FindByID returns a version by its ID.
	FindByID(ctx context.Context, id string) (*model.Version, error)

	// ListByFile returns all versions of a file ordered by seq descending.
	// No versions is an empty slice, not an error.
	ListByFile(ctx context.Context, fileID string) ([]model.Version, error)

	// MaxSeq returns the highest sequence number for a file, 0 when the
	// file has no versions.
	MaxSeq(ctx context.Context, fileID string) (int, error)

	// DeleteChecked removes the version row and, in the same transaction,
	// checks whether its storage path is still referenced by any other
	// version or file row. Returns sql.ErrNoRows when the row is already
	// gone.
	DeleteChecked(ctx context.Context, id string) (*DeletedVersion, error)

	// FilesExceedingCount returns the IDs of files whose version count is
	// strictly greater than max.
	FilesExceedingCount(ctx context.Context, max int) ([]string, error)

	// OldestExcess returns the versions of a file beyond the newest `keep`,
	// oldest first, so callers can trim them in order.
	OldestExcess(ctx context.Context, fileID string, keep int) ([]model.Version, error)
}
