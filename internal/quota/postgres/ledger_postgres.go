package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"filevault/internal/model"
	"filevault/internal/quota"
)

// LedgerPostgres implements quota.Ledger on top of the users table. Every
// operation is a single UPDATE whose WHERE clause carries the accounting
// precondition, so concurrent callers serialize on the row without any
// in-process locking.
type LedgerPostgres struct {
	db *sql.DB
}

// NewLedgerPostgres creates a new Postgres-backed quota ledger.
func NewLedgerPostgres(db *sql.DB) *LedgerPostgres {
	return &LedgerPostgres{db: db}
}

var _ quota.Ledger = (*LedgerPostgres)(nil)

// Reserve holds n bytes if used + reserved + n still fits the quota.
func (l *LedgerPostgres) Reserve(ctx context.Context, userID string, n int64) (bool, error) {
	if n < 0 {
		return false, fmt.Errorf("negative reservation: %d", n)
	}
	const q = `
		UPDATE users
		SET reserved_bytes = reserved_bytes + $2
		WHERE id = $1 AND used_bytes + reserved_bytes + $2 <= quota_bytes
	`
	res, err := l.db.ExecContext(ctx, q, userID, n)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Confirm moves n bytes from reserved to used.
func (l *LedgerPostgres) Confirm(ctx context.Context, userID string, n int64) error {
	const q = `
		UPDATE users
		SET reserved_bytes = reserved_bytes - $2, used_bytes = used_bytes + $2
		WHERE id = $1 AND reserved_bytes >= $2
	`
	return l.execExpectingRow(ctx, q, userID, n, "confirm")
}

// Release drops n reserved bytes.
func (l *LedgerPostgres) Release(ctx context.Context, userID string, n int64) error {
	const q = `
		UPDATE users
		SET reserved_bytes = reserved_bytes - $2
		WHERE id = $1 AND reserved_bytes >= $2
	`
	return l.execExpectingRow(ctx, q, userID, n, "release")
}

// ReleaseUsed returns n confirmed bytes to the free allowance.
func (l *LedgerPostgres) ReleaseUsed(ctx context.Context, userID string, n int64) error {
	const q = `
		UPDATE users
		SET used_bytes = used_bytes - $2
		WHERE id = $1 AND used_bytes >= $2
	`
	return l.execExpectingRow(ctx, q, userID, n, "release used")
}

// Usage reads the user's counters.
func (l *LedgerPostgres) Usage(ctx context.Context, userID string) (*model.QuotaUsage, error) {
	const q = `
		SELECT id, quota_bytes, used_bytes, reserved_bytes
		FROM users
		WHERE id = $1
	`
	var u model.QuotaUsage
	if err := l.db.QueryRowContext(ctx, q, userID).Scan(&u.UserID, &u.Quota, &u.Used, &u.Reserved); err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureUser inserts the ledger row if missing; an existing row keeps its
// quota and counters.
func (l *LedgerPostgres) EnsureUser(ctx context.Context, userID string, quotaBytes int64) error {
	const q = `
		INSERT INTO users (id, quota_bytes)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := l.db.ExecContext(ctx, q, userID, quotaBytes)
	return err
}

func (l *LedgerPostgres) execExpectingRow(ctx context.Context, q, userID string, n int64, op string) error {
	res, err := l.db.ExecContext(ctx, q, userID, n)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("quota %s of %d bytes for user %s matched no row", op, n, userID)
	}
	return nil
}
