package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"filevault/internal/activity"
	"filevault/internal/apperr"
	"filevault/internal/model"
	"filevault/internal/quota"
	"filevault/internal/repository"
	"filevault/internal/storage"
)

// seqRetries bounds how often a writer recomputes the next sequence number
// after losing the (file, seq) uniqueness race: one initial attempt plus one
// retry.
const seqRetries = 2

// VersionService defines the use cases for file version management.
type VersionService interface {
	// CreateVersion snapshots the file's current content as a new version,
	// writes the new content under a fresh storage key and repoints the
	// file at it. The snapshot captures the pre-write path and size.
	CreateVersion(ctx context.Context, fileID string, r io.Reader, size int64, comment, actorID string) (*model.Version, error)

	// ListVersions returns the file's versions, newest sequence first.
	ListVersions(ctx context.Context, fileID, actorID string) ([]model.Version, error)

	// RestoreVersion snapshots the current content, then repoints the file
	// at the target version's stored path and size. No new bytes are
	// introduced, so quota is untouched. Returns the snapshot version.
	RestoreVersion(ctx context.Context, fileID, versionID, actorID string) (*model.Version, error)

	// DeleteVersion removes a version; its blob and quota bytes are
	// released only when no other version or file still references the
	// storage path.
	DeleteVersion(ctx context.Context, versionID, actorID string) error

	// CleanupOldVersions trims every file down to its newest maxPerFile
	// versions, deleting the oldest excess one at a time. Best-effort: a
	// single version's failure is logged and skipped. Returns the number
	// of versions deleted.
	CleanupOldVersions(ctx context.Context, maxPerFile int) (int, error)
}

type versionService struct {
	store    storage.Storage
	files    repository.FileRepository
	versions repository.VersionRepository
	ledger   quota.Ledger
	recorder activity.Recorder
}

// NewVersionService constructs a new VersionService.
func NewVersionService(store storage.Storage, files repository.FileRepository, versions repository.VersionRepository, ledger quota.Ledger, recorder activity.Recorder) VersionService {
	return &versionService{store: store, files: files, versions: versions, ledger: ledger, recorder: recorder}
}

func (s *versionService) CreateVersion(ctx context.Context, fileID string, r io.Reader, size int64, comment, actorID string) (*model.Version, error) {
	ctx, span := tracer.Start(ctx, "VersionService.CreateVersion",
		trace.WithAttributes(attribute.String("file.id", fileID), attribute.Int64("content.size", size)))
	defer span.End()

	if r == nil {
		return nil, apperr.New(apperr.BadRequest, "content is required")
	}
	if size < 0 {
		return nil, apperr.New(apperr.BadRequest, "size must not be negative")
	}

	file, err := s.loadOwnedFile(ctx, fileID, actorID)
	if err != nil {
		return nil, err
	}

	// Phase 1: hold the bytes before anything is written.
	ok, err := s.ledger.Reserve(ctx, file.OwnerID, size)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "reserve quota", err)
	}
	if !ok {
		return nil, apperr.Newf(apperr.QuotaExceeded, "not enough quota for %d bytes", size)
	}

	// Snapshot the pre-write state before the file row is mutated.
	snap, err := s.snapshotCurrent(ctx, file, comment, actorID)
	if err != nil {
		s.releaseReservation(ctx, file.OwnerID, size)
		return nil, err
	}

	key := newObjectKey()
	if _, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{Size: size, ContentType: file.ContentType}); err != nil {
		s.rollbackSnapshot(ctx, snap.ID)
		s.releaseReservation(ctx, file.OwnerID, size)
		return nil, apperr.Wrap(apperr.StorageWrite, "write content", err)
	}

	if err := s.files.UpdateContent(ctx, file.ID, key, size, time.Now().UTC()); err != nil {
		// The blob is orphaned if this delete fails; reconciliation is
		// out of scope, so only warn.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			logWarn("orphaned_blob", map[string]any{"storage_path": key, "error": delErr.Error()})
		}
		s.rollbackSnapshot(ctx, snap.ID)
		s.releaseReservation(ctx, file.OwnerID, size)
		return nil, apperr.Wrap(apperr.Internal, "update file content", err)
	}

	// Phase 2: the write landed; confirmation drift is reconciled out of
	// band, so a failure here is a warning only.
	if err := s.ledger.Confirm(ctx, file.OwnerID, size); err != nil {
		logWarn("quota_confirm_failed", map[string]any{"user_id": file.OwnerID, "bytes": size, "error": err.Error()})
	}

	s.record(ctx, actorID, file.ID, activity.ActionVersionCreate, fmt.Sprintf("created version %d of %q", snap.Seq, file.Filename))
	return snap, nil
}

func (s *versionService) ListVersions(ctx context.Context, fileID, actorID string) ([]model.Version, error) {
	file, err := s.loadOwnedFile(ctx, fileID, actorID)
	if err != nil {
		return nil, err
	}
	items, err := s.versions.ListByFile(ctx, file.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list versions", err)
	}
	return items, nil
}

func (s *versionService) RestoreVersion(ctx context.Context, fileID, versionID, actorID string) (*model.Version, error) {
	ctx, span := tracer.Start(ctx, "VersionService.RestoreVersion",
		trace.WithAttributes(attribute.String("file.id", fileID), attribute.String("version.id", versionID)))
	defer span.End()

	file, err := s.loadOwnedFile(ctx, fileID, actorID)
	if err != nil {
		return nil, err
	}

	target, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "version not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find version", err)
	}
	if target.FileID != file.ID {
		return nil, apperr.New(apperr.BadRequest, "version does not belong to this file")
	}

	// Repointing at a missing blob would leave the file unreadable, so the
	// target's content is verified first.
	ok, err := s.store.Exists(ctx, target.StoragePath)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageRead, "check version content", err)
	}
	if !ok {
		return nil, apperr.New(apperr.NotFound, "version content no longer available")
	}

	snap, err := s.snapshotCurrent(ctx, file, fmt.Sprintf("restoring to version %d", target.Seq), actorID)
	if err != nil {
		return nil, err
	}

	// Repoint only; no content write, no quota movement. Both the snapshot
	// and the restored-to version keep their references.
	if err := s.files.UpdateContent(ctx, file.ID, target.StoragePath, target.Size, time.Now().UTC()); err != nil {
		s.rollbackSnapshot(ctx, snap.ID)
		return nil, apperr.Wrap(apperr.Internal, "update file content", err)
	}

	s.record(ctx, actorID, file.ID, activity.ActionRestore, fmt.Sprintf("restored %q to version %d", file.Filename, target.Seq))
	return snap, nil
}

func (s *versionService) DeleteVersion(ctx context.Context, versionID, actorID string) error {
	ctx, span := tracer.Start(ctx, "VersionService.DeleteVersion",
		trace.WithAttributes(attribute.String("version.id", versionID)))
	defer span.End()

	if versionID == "" {
		return apperr.New(apperr.BadRequest, "version id is required")
	}

	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "version not found")
		}
		return apperr.Wrap(apperr.Internal, "find version", err)
	}

	file, err := s.loadOwnedFile(ctx, v.FileID, actorID)
	if err != nil {
		return err
	}

	d, err := s.removeVersion(ctx, v.ID, file.OwnerID)
	if err != nil {
		return err
	}

	s.record(ctx, actorID, file.ID, activity.ActionVersionDelete, fmt.Sprintf("deleted version %d of %q", d.Seq, file.Filename))
	return nil
}

func (s *versionService) CleanupOldVersions(ctx context.Context, maxPerFile int) (int, error) {
	ctx, span := tracer.Start(ctx, "VersionService.CleanupOldVersions",
		trace.WithAttributes(attribute.Int("retention.max_per_file", maxPerFile)))
	defer span.End()

	if maxPerFile < 1 {
		return 0, apperr.New(apperr.BadRequest, "version threshold must be at least 1")
	}

	fileIDs, err := s.versions.FilesExceedingCount(ctx, maxPerFile)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "find files over threshold", err)
	}

	deleted := 0
	for _, fileID := range fileIDs {
		file, err := s.files.FindByID(ctx, fileID)
		if err != nil {
			logWarn("retention_file_lookup_failed", map[string]any{"file_id": fileID, "error": err.Error()})
			continue
		}

		excess, err := s.versions.OldestExcess(ctx, fileID, maxPerFile)
		if err != nil {
			logWarn("retention_list_failed", map[string]any{"file_id": fileID, "error": err.Error()})
			continue
		}

		for _, v := range excess {
			d, err := s.removeVersion(ctx, v.ID, file.OwnerID)
			if err != nil {
				// A concurrent delete already removed the row; the
				// sweep stays idempotent by not counting it.
				if apperr.KindOf(err) == apperr.NotFound {
					continue
				}
				logWarn("retention_delete_failed", map[string]any{"file_id": fileID, "version_id": v.ID, "error": err.Error()})
				continue
			}
			deleted++
			s.record(ctx, SystemActor, fileID, activity.ActionVersionDelete, fmt.Sprintf("retention removed version %d", d.Seq))
		}
	}
	return deleted, nil
}

// loadOwnedFile fetches a live file and checks the acting user owns it.
func (s *versionService) loadOwnedFile(ctx context.Context, fileID, actorID string) (*model.File, error) {
	if fileID == "" {
		return nil, apperr.New(apperr.BadRequest, "file id is required")
	}
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "file not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find file", err)
	}
	if actorID != SystemActor && file.OwnerID != actorID {
		return nil, apperr.New(apperr.Forbidden, "file belongs to another user")
	}
	return file, nil
}

// snapshotCurrent creates a version row capturing the file's current storage
// path and size. Sequence assignment races are resolved by the (file, seq)
// uniqueness constraint: on collision the number is recomputed once.
func (s *versionService) snapshotCurrent(ctx context.Context, file *model.File, comment, actorID string) (*model.Version, error) {
	for attempt := 0; attempt < seqRetries; attempt++ {
		max, err := s.versions.MaxSeq(ctx, file.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "compute next sequence", err)
		}
		created, err := s.versions.Create(ctx, &model.Version{
			ID:          uuid.New().String(),
			FileID:      file.ID,
			Seq:         max + 1,
			StoragePath: file.StoragePath,
			Size:        file.Size,
			Comment:     comment,
			CreatedBy:   actorID,
			CreatedAt:   time.Now().UTC(),
		})
		if errors.Is(err, repository.ErrDuplicateSeq) {
			continue
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "create version", err)
		}
		return created, nil
	}
	return nil, apperr.New(apperr.Conflict, "too many concurrent writers, retry the operation")
}

// removeVersion deletes the row and, when the storage path became
// unreferenced, gives the bytes back and drops the blob. Failures past the
// row deletion leave at worst an orphaned blob or ledger drift, never a
// dangling reference, so they are warnings.
func (s *versionService) removeVersion(ctx context.Context, versionID, ownerID string) (*repository.DeletedVersion, error) {
	d, err := s.versions.DeleteChecked(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "version not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "delete version", err)
	}
	if !d.PathReferenced {
		if err := s.ledger.ReleaseUsed(ctx, ownerID, d.Size); err != nil {
			logWarn("quota_release_failed", map[string]any{"user_id": ownerID, "bytes": d.Size, "error": err.Error()})
		}
		if err := s.store.Delete(ctx, d.StoragePath); err != nil {
			logWarn("orphaned_blob", map[string]any{"storage_path": d.StoragePath, "error": err.Error()})
		}
	}
	return d, nil
}

// releaseReservation is the compensating action for Reserve. Its own failure
// leaves an orphaned reservation, reconciled out of band.
func (s *versionService) releaseReservation(ctx context.Context, userID string, n int64) {
	if err := s.ledger.Release(ctx, userID, n); err != nil {
		logWarn("reservation_release_failed", map[string]any{"user_id": userID, "bytes": n, "error": err.Error()})
	}
}

// rollbackSnapshot removes a version row created earlier in a failed
// operation. The row's path is still referenced by the file, so no blob or
// quota movement happens.
func (s *versionService) rollbackSnapshot(ctx context.Context, versionID string) {
	if _, err := s.versions.DeleteChecked(ctx, versionID); err != nil {
		logWarn("snapshot_rollback_failed", map[string]any{"version_id": versionID, "error": err.Error()})
	}
}

// record appends to the activity log; failures never affect the operation.
func (s *versionService) record(ctx context.Context, actorID, fileID, action, detail string) {
	if err := s.recorder.Record(ctx, actorID, fileID, action, detail); err != nil {
		logWarn("activity_record_failed", map[string]any{"action": action, "file_id": fileID, "error": err.Error()})
	}
}
