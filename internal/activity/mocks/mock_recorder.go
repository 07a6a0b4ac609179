package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, actorID, fileID, action, detail string) error {
	args := m.Called(ctx, actorID, fileID, action, detail)
	return args.Error(0)
}
