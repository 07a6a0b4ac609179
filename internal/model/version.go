package model

import "time"

// Version is an immutable snapshot of a file's content taken just before the
// file was superseded. Seq is monotonic per file, starting at 1; the storage
// path never changes once the row exists.
type Version struct {
	ID          string    `json:"id"`
	FileID      string    `json:"file_id"`
	Seq         int       `json:"seq"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	Comment     string    `json:"comment,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}
