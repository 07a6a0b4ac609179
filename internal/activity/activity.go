package activity

import "context"

// Package activity provides an append-only audit trail of file operations.
// Recording is fire-and-forget from the caller's perspective: a failed record
// must never fail the operation that produced it.

// Actions recorded by the services.
const (
	ActionUpload        = "file.upload"
	ActionFileDelete    = "file.delete"
	ActionVersionCreate = "version.create"
	ActionRestore       = "version.restore"
	ActionVersionDelete = "version.delete"
)

// Recorder appends events to the activity log.
type Recorder interface {
	Record(ctx context.Context, actorID, fileID, action, detail string) error
}
