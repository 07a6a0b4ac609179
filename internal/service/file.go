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

// FileService defines the use cases for handling files themselves; version
// management lives in VersionService.
type FileService interface {
	// Upload stores the content and creates the file record, accounting
	// the bytes against the owner's quota.
	Upload(ctx context.Context, r io.Reader, filename, contentType string, size int64, ownerID string) (*model.File, error)

	// Get returns a single file by its ID.
	Get(ctx context.Context, id, actorID string) (*model.File, error)

	// Download streams the file's current content.
	Download(ctx context.Context, id, actorID string) (io.ReadCloser, *model.File, error)

	// PresignDownload returns a short-lived URL for fetching the file's
	// current content directly from object storage.
	PresignDownload(ctx context.Context, id, actorID string, expiry time.Duration) (string, error)

	// Delete soft-deletes the file record. Its blob and versions stay in
	// place; content cleanup remains the version engine's job.
	Delete(ctx context.Context, id, actorID string) error

	// Quota returns the user's storage accounting state.
	Quota(ctx context.Context, userID string) (*model.QuotaUsage, error)
}

type fileService struct {
	store    storage.Storage
	files    repository.FileRepository
	ledger   quota.Ledger
	recorder activity.Recorder
}

// NewFileService constructs a new FileService.
func NewFileService(store storage.Storage, files repository.FileRepository, ledger quota.Ledger, recorder activity.Recorder) FileService {
	return &fileService{store: store, files: files, ledger: ledger, recorder: recorder}
}

func (s *fileService) Upload(ctx context.Context, r io.Reader, filename, contentType string, size int64, ownerID string) (*model.File, error) {
	ctx, span := tracer.Start(ctx, "FileService.Upload",
		trace.WithAttributes(attribute.String("file.name", filename), attribute.Int64("content.size", size)))
	defer span.End()

	if r == nil {
		return nil, apperr.New(apperr.BadRequest, "content is required")
	}
	if filename == "" {
		return nil, apperr.New(apperr.BadRequest, "filename is required")
	}
	if size < 0 {
		return nil, apperr.New(apperr.BadRequest, "size must not be negative")
	}
	if ownerID == "" {
		return nil, apperr.New(apperr.BadRequest, "owner id is required")
	}

	ok, err := s.ledger.Reserve(ctx, ownerID, size)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "reserve quota", err)
	}
	if !ok {
		return nil, apperr.Newf(apperr.QuotaExceeded, "not enough quota for %d bytes", size)
	}

	key := newObjectKey()
	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": filename,
		},
	})
	if err != nil {
		s.releaseReservation(ctx, ownerID, size)
		return nil, apperr.Wrap(apperr.StorageWrite, "write content", err)
	}

	stored, err := s.files.Create(ctx, &model.File{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Filename:    filename,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			logWarn("orphaned_blob", map[string]any{"storage_path": key, "error": delErr.Error()})
		}
		s.releaseReservation(ctx, ownerID, size)
		return nil, apperr.Wrap(apperr.Internal, "save file record", err)
	}

	if err := s.ledger.Confirm(ctx, ownerID, size); err != nil {
		logWarn("quota_confirm_failed", map[string]any{"user_id": ownerID, "bytes": size, "error": err.Error()})
	}

	s.record(ctx, ownerID, stored.ID, activity.ActionUpload, fmt.Sprintf("uploaded %q (%d bytes)", filename, size))
	return stored, nil
}

func (s *fileService) Get(ctx context.Context, id, actorID string) (*model.File, error) {
	return s.loadOwnedFile(ctx, id, actorID)
}

func (s *fileService) Download(ctx context.Context, id, actorID string) (io.ReadCloser, *model.File, error) {
	file, err := s.loadOwnedFile(ctx, id, actorID)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, file.StoragePath)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.StorageRead, "read content", err)
	}
	return rc, file, nil
}

func (s *fileService) PresignDownload(ctx context.Context, id, actorID string, expiry time.Duration) (string, error) {
	file, err := s.loadOwnedFile(ctx, id, actorID)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignGet(ctx, file.StoragePath, expiry)
	if err != nil {
		return "", apperr.Wrap(apperr.StorageRead, "presign content", err)
	}
	return url, nil
}

func (s *fileService) Delete(ctx context.Context, id, actorID string) error {
	file, err := s.loadOwnedFile(ctx, id, actorID)
	if err != nil {
		return err
	}
	if err := s.files.SoftDelete(ctx, file.ID); err != nil {
		return apperr.Wrap(apperr.Internal, "delete file record", err)
	}
	s.record(ctx, actorID, file.ID, activity.ActionFileDelete, fmt.Sprintf("deleted %q", file.Filename))
	return nil
}

func (s *fileService) Quota(ctx context.Context, userID string) (*model.QuotaUsage, error) {
	if userID == "" {
		return nil, apperr.New(apperr.BadRequest, "user id is required")
	}
	u, err := s.ledger.Usage(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "read quota", err)
	}
	return u, nil
}

func (s *fileService) loadOwnedFile(ctx context.Context, id, actorID string) (*model.File, error) {
	if id == "" {
		return nil, apperr.New(apperr.BadRequest, "file id is required")
	}
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "file not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "find file", err)
	}
	if file.OwnerID != actorID {
		return nil, apperr.New(apperr.Forbidden, "file belongs to another user")
	}
	return file, nil
}

func (s *fileService) releaseReservation(ctx context.Context, userID string, n int64) {
	if err := s.ledger.Release(ctx, userID, n); err != nil {
		logWarn("reservation_release_failed", map[string]any{"user_id": userID, "bytes": n, "error": err.Error()})
	}
}

func (s *fileService) record(ctx context.Context, actorID, fileID, action, detail string) {
	if err := s.recorder.Record(ctx, actorID, fileID, action, detail); err != nil {
		logWarn("activity_record_failed", map[string]any{"action": action, "file_id": fileID, "error": err.Error()})
	}
}
