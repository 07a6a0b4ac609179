package mocks

import (
	"context"

	"filevault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Reserve(ctx context.Context, userID string, n int64) (bool, error) {
	args := m.Called(ctx, userID, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) Confirm(ctx context.Context, userID string, n int64) error {
	args := m.Called(ctx, userID, n)
	return args.Error(0)
}

func (m *MockLedger) Release(ctx context.Context, userID string, n int64) error {
	args := m.Called(ctx, userID, n)
	return args.Error(0)
}

func (m *MockLedger) ReleaseUsed(ctx context.Context, userID string, n int64) error {
	args := m.Called(ctx, userID, n)
	return args.Error(0)
}

func (m *MockLedger) Usage(ctx context.Context, userID string) (*model.QuotaUsage, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuotaUsage), args.Error(1)
}

func (m *MockLedger) EnsureUser(ctx context.Context, userID string, quotaBytes int64) error {
	args := m.Called(ctx, userID, quotaBytes)
	return args.Error(0)
}
