package repository

import (
	"context"
	"time"

	"filevault/internal/model"
)

// FileRepository defines data access for file rows using SQL queries only.
// No business logic here, strictly persistence operations.
type FileRepository interface {
	// Create inserts a new file record and returns the stored row.
	Create(ctx context.Context, f *model.File) (*model.File, error)

	// FindByID returns a file by its ID. Soft-deleted files are not returned.
	FindByID(ctx context.Context, id string) (*model.File, error)

	// UpdateContent repoints the file at a new blob: storage path, size and
	// the modified timestamp change together.
	UpdateContent(ctx context.Context, id, storagePath string, size int64, updatedAt time.Time) error

	// SoftDelete marks the file deleted without touching its versions or blob.
	SoftDelete(ctx context.Context, id string) error
}
