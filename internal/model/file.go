package model

import "time"

// File represents a logical, mutable file owned by a user.
// This is a pure domain model with no database-specific dependencies or tags.
// StoragePath always names the blob holding the file's current content.
type File struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Filename    string     `json:"filename"`
	StoragePath string     `json:"storage_path"`
	Size        int64      `json:"size"`
	ContentType string     `json:"content_type"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
