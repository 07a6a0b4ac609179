package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"filevault/internal/model"
	"filevault/internal/repository"
)

// pgUniqueViolation is the PostgreSQL error code for a unique constraint hit.
const pgUniqueViolation = "23505"

// VersionPostgres is a PostgreSQL implementation of repository.VersionRepository.
type VersionPostgres struct {
	db *sql.DB
}

// NewVersionPostgres creates a new VersionPostgres repository.
func NewVersionPostgres(db *sql.DB) *VersionPostgres {
	return &VersionPostgres{db: db}
}

var _ repository.VersionRepository = (*VersionPostgres)(nil)

// Create inserts a new version row. A (file_id, seq) collision is mapped to
// repository.ErrDuplicateSeq so the caller can recompute and retry.
func (r *VersionPostgres) Create(ctx context.Context, v *model.Version) (*model.Version, error) {
	const q = `
		INSERT INTO file_versions (id, file_id, seq, storage_path, size, comment, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, file_id, seq, storage_path, size, comment, created_by, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		v.ID,
		v.FileID,
		v.Seq,
		v.StoragePath,
		v.Size,
		v.Comment,
		v.CreatedBy,
		v.CreatedAt,
	)
	var out model.Version
	if err := row.Scan(
		&out.ID,
		&out.FileID,
		&out.Seq,
		&out.StoragePath,
		&out.Size,
		&out.Comment,
		&out.CreatedBy,
		&out.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, repository.ErrDuplicateSeq
		}
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single version by its ID.
func (r *VersionPostgres) FindByID(ctx context.Context, id string) (*model.Version, error) {
	const q = `
		SELECT id, file_id, seq, storage_path, size, comment, created_by, created_at
		FROM file_versions
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var v model.Version
	if err := scanVersion(row, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByFile returns all versions of a file, newest sequence first.
func (r *VersionPostgres) ListByFile(ctx context.Context, fileID string) ([]model.Version, error) {
	const q = `
		SELECT id, file_id, seq, storage_path, size, comment, created_by, created_at
		FROM file_versions
		WHERE file_id = $1
		ORDER BY seq DESC
	`
	rows, err := r.db.QueryContext(ctx, q, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVersions(rows)
}

// MaxSeq returns the highest sequence number for a file, 0 when none exist.
func (r *VersionPostgres) MaxSeq(ctx context.Context, fileID string) (int, error) {
	const q = `SELECT COALESCE(MAX(seq), 0) FROM file_versions WHERE file_id = $1`
	var max int
	if err := r.db.QueryRowContext(ctx, q, fileID).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// DeleteChecked removes the version row and checks, inside the same
// transaction, whether any other version or any file row still points at the
// removed row's storage path. Read-committed isolation is enough: the row is
// gone before the check runs, so two concurrent deletes of siblings sharing a
// path cannot both observe the path as unreferenced.
func (r *VersionPostgres) DeleteChecked(ctx context.Context, id string) (*repository.DeletedVersion, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const qDel = `
		DELETE FROM file_versions
		WHERE id = $1
		RETURNING file_id, seq, storage_path, size
	`
	var d repository.DeletedVersion
	if err := tx.QueryRowContext(ctx, qDel, id).Scan(
		&d.FileID,
		&d.Seq,
		&d.StoragePath,
		&d.Size,
	); err != nil {
		return nil, err
	}

	// Soft-deleted files still count as referencers: their content must stay
	// retrievable until they are purged.
	const qRef = `
		SELECT EXISTS (SELECT 1 FROM file_versions WHERE storage_path = $1)
		    OR EXISTS (SELECT 1 FROM files WHERE storage_path = $1)
	`
	if err := tx.QueryRowContext(ctx, qRef, d.StoragePath).Scan(&d.PathReferenced); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &d, nil
}

// FilesExceedingCount returns IDs of files holding more than max versions.
func (r *VersionPostgres) FilesExceedingCount(ctx context.Context, max int) ([]string, error) {
	const q = `
		SELECT file_id
		FROM file_versions
		GROUP BY file_id
		HAVING COUNT(*) > $1
	`
	rows, err := r.db.QueryContext(ctx, q, max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// OldestExcess returns the versions beyond the newest `keep`, oldest first.
// The cut is by row count, not sequence arithmetic, so gaps left by earlier
// deletions don't change how many rows survive.
func (r *VersionPostgres) OldestExcess(ctx context.Context, fileID string, keep int) ([]model.Version, error) {
	const q = `
		SELECT id, file_id, seq, storage_path, size, comment, created_by, created_at
		FROM file_versions
		WHERE file_id = $1
		  AND id NOT IN (
			SELECT id FROM file_versions WHERE file_id = $1 ORDER BY seq DESC LIMIT $2
		  )
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, q, fileID, keep)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVersions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner, v *model.Version) error {
	return row.Scan(
		&v.ID,
		&v.FileID,
		&v.Seq,
		&v.StoragePath,
		&v.Size,
		&v.Comment,
		&v.CreatedBy,
		&v.CreatedAt,
	)
}

func collectVersions(rows *sql.Rows) ([]model.Version, error) {
	items := make([]model.Version, 0)
	for rows.Next() {
		var v model.Version
		if err := scanVersion(rows, &v); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
