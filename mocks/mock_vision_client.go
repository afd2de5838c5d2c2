package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/menta2k/image-sorter/pkg/types"
)

// MockVisionClient is a mock implementation of client.VisionClient.
type MockVisionClient struct {
	mock.Mock
}

func (m *MockVisionClient) Analyze(ctx context.Context, src types.ImageSource) (*types.Analysis, error) {
	args := m.Called(ctx, src)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Analysis), args.Error(1)
}
