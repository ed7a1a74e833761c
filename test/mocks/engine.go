package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rollkit/bridge/types"
)

// MockEngine is a mock implementation of the execution.Engine interface.
type MockEngine struct {
	mock.Mock
}

// ExecuteBlock mock implementation.
func (m *MockEngine) ExecuteBlock(ctx context.Context, parentID types.Hash, block *types.Block) (*types.ExecutionResult, error) {
	args := m.Called(ctx, parentID, block)
	var res *types.ExecutionResult
	if ret := args.Get(0); ret != nil {
		res = ret.(*types.ExecutionResult)
	}
	return res, args.Error(1)
}

// RecoverOrderedBlock mock implementation.
func (m *MockEngine) RecoverOrderedBlock(ctx context.Context, parentID types.Hash, block *types.Block) error {
	args := m.Called(ctx, parentID, block)
	return args.Error(0)
}

// RecoverExecutionBlocks mock implementation.
func (m *MockEngine) RecoverExecutionBlocks(ctx context.Context, blocks []*types.Block) error {
	args := m.Called(ctx, blocks)
	return args.Error(0)
}

// GetBlocksByRange mock implementation.
func (m *MockEngine) GetBlocksByRange(ctx context.Context, from, to uint64) ([]*types.Block, error) {
	args := m.Called(ctx, from, to)
	var blocks []*types.Block
	if ret := args.Get(0); ret != nil {
		blocks = ret.([]*types.Block)
	}
	return blocks, args.Error(1)
}

// SetFinal mock implementation.
func (m *MockEngine) SetFinal(ctx context.Context, number uint64) error {
	args := m.Called(ctx, number)
	return args.Error(0)
}
