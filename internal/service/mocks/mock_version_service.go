package mocks

import (
	"context"
	"io"

	"filevault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockVersionService struct {
	mock.Mock
}

func (m *MockVersionService) CreateVersion(ctx context.Context, fileID string, r io.Reader, size int64, comment, actorID string) (*model.Version, error) {
	args := m.Called(ctx, fileID, r, size, comment, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Version), args.Error(1)
}

func (m *MockVersionService) ListVersions(ctx context.Context, fileID, actorID string) ([]model.Version, error) {
	args := m.Called(ctx, fileID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Version), args.Error(1)
}

func (m *MockVersionService) RestoreVersion(ctx context.Context, fileID, versionID, actorID string) (*model.Version, error) {
	args := m.Called(ctx, fileID, versionID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Version), args.Error(1)
}

func (m *MockVersionService) DeleteVersion(ctx context.Context, versionID, actorID string) error {
	args := m.Called(ctx, versionID, actorID)
	return args.Error(0)
}

func (m *MockVersionService) CleanupOldVersions(ctx context.Context, maxPerFile int) (int, error) {
	args := m.Called(ctx, maxPerFile)
	return args.Int(0), args.Error(1)
}
