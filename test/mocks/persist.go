package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rollkit/bridge/types"
)

// MockCommitter is a mock implementation of the persist.Committer interface.
type MockCommitter struct {
	mock.Mock
}

// Commit mock implementation.
func (m *MockCommitter) Commit(ctx context.Context, blocks []*types.Block, li *types.LedgerInfoWithSignatures) error {
	args := m.Called(ctx, blocks, li)
	return args.Error(0)
}

// MockEpochChangeSender is a mock implementation of the persist.EpochChangeSender interface.
type MockEpochChangeSender struct {
	mock.Mock
}

// SendEpochChange mock implementation.
func (m *MockEpochChangeSender) SendEpochChange(ctx context.Context, proof *types.EpochChangeProof) error {
	args := m.Called(ctx, proof)
	return args.Error(0)
}
