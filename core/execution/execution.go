package execution

import (
	"context"

	"github.com/rollkit/bridge/types"
)

// Engine is the execution collaborator. Ordered blocks are handed to the engine, which
// computes their results. The bridge never interprets transaction payloads itself.
type Engine interface {
	// ExecuteBlock executes block on top of the state produced by parentID.
	// Requirements:
	// - Must be deterministic: the same block on the same parent yields the same result
	// - Must be idempotent for an already executed block id
	// - Must respect context cancellation/timeout
	//
	// Returns:
	// - *types.ExecutionResult: the result, with BlockID and BlockNumber matching block
	// - error: any execution error
	ExecuteBlock(ctx context.Context, parentID types.Hash, block *types.Block) (*types.ExecutionResult, error)

	// RecoverOrderedBlock re-submits a block that was ordered but not committed before
	// a restart. The block is executed again through the normal path afterwards.
	RecoverOrderedBlock(ctx context.Context, parentID types.Hash, block *types.Block) error

	// RecoverExecutionBlocks replays committed blocks, in ascending number order,
	// so the engine can rebuild its state after a restart.
	RecoverExecutionBlocks(ctx context.Context, blocks []*types.Block) error

	// GetBlocksByRange returns the executed blocks with numbers in [from, to), ascending.
	// Used to serve peers that are catching up.
	GetBlocksByRange(ctx context.Context, from, to uint64) ([]*types.Block, error)

	// SetFinal marks the block at number as committed.
	// Requirements:
	// - Must verify the block was executed
	// - Must be idempotent
	// - Must never revert a finalized block
	SetFinal(ctx context.Context, number uint64) error
}
