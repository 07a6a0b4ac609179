package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"filevault/internal/activity"
)

// RecorderPostgres appends activity rows to the activities table.
type RecorderPostgres struct {
	db *sql.DB
}

// NewRecorderPostgres creates a new Postgres-backed activity recorder.
func NewRecorderPostgres(db *sql.DB) *RecorderPostgres {
	return &RecorderPostgres{db: db}
}

var _ activity.Recorder = (*RecorderPostgres)(nil)

// Record inserts one event row.
func (r *RecorderPostgres) Record(ctx context.Context, actorID, fileID, action, detail string) error {
	const q = `
		INSERT INTO activities (id, actor_id, file_id, action, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q, uuid.New().String(), actorID, fileID, action, detail, time.Now().UTC())
	return err
}
