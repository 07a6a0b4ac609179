package mocks

import (
	"context"
	"io"
	"time"

	"filevault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Upload(ctx context.Context, r io.Reader, filename, contentType string, size int64, ownerID string) (*model.File, error) {
	args := m.Called(ctx, r, filename, contentType, size, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileService) Get(ctx context.Context, id, actorID string) (*model.File, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockFileService) Download(ctx context.Context, id, actorID string) (io.ReadCloser, *model.File, error) {
	args := m.Called(ctx, id, actorID)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	var f *model.File
	if args.Get(1) != nil {
		f = args.Get(1).(*model.File)
	}
	return rc, f, args.Error(2)
}

func (m *MockFileService) PresignDownload(ctx context.Context, id, actorID string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, actorID, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockFileService) Delete(ctx context.Context, id, actorID string) error {
	args := m.Called(ctx, id, actorID)
	return args.Error(0)
}

func (m *MockFileService) Quota(ctx context.Context, userID string) (*model.QuotaUsage, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuotaUsage), args.Error(1)
}
