package model

import "time"

// Activity is one append-only event in the audit trail.
type Activity struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	FileID    string    `json:"file_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// QuotaUsage is a point-in-time readout of a user's storage accounting.
// Reserved bytes are provisional holds not yet confirmed or released.
type QuotaUsage struct {
	UserID   string `json:"user_id"`
	Quota    int64  `json:"quota_bytes"`
	Used     int64  `json:"used_bytes"`
	Reserved int64  `json:"reserved_bytes"`
}
