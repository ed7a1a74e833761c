package store

import (
	"context"

	"github.com/rollkit/bridge/types"
)

// Store persists committed blocks, their execution results and ledger certificates,
// plus ordered blocks that are not yet committed so they survive a restart.
type Store interface {
	// Height returns the number of the highest committed block.
	Height(ctx context.Context) (uint64, error)

	// SaveCommitted atomically stores a committed batch. results may be shorter than
	// blocks or hold nil entries for blocks whose result is unknown. The certificate
	// is stored under the number of the last block, and the height advances.
	SaveCommitted(ctx context.Context, blocks []*types.Block, results []*types.ExecutionResult, li *types.LedgerInfoWithSignatures) error

	// GetBlock returns the committed block at number.
	GetBlock(ctx context.Context, number uint64) (*types.Block, error)
	// GetBlockByID returns the committed block with the given id.
	GetBlockByID(ctx context.Context, id types.Hash) (*types.Block, error)
	// GetResult returns the execution result of the committed block at number.
	GetResult(ctx context.Context, number uint64) (*types.ExecutionResult, error)
	// GetLedgerInfo returns the certificate that committed the block at number.
	GetLedgerInfo(ctx context.Context, number uint64) (*types.LedgerInfoWithSignatures, error)
	// LatestLedgerInfo returns the most recent certificate.
	LatestLedgerInfo(ctx context.Context) (*types.LedgerInfoWithSignatures, error)

	// SaveOrdered records an ordered, uncommitted block.
	SaveOrdered(ctx context.Context, parentID types.Hash, block *types.Block) error
	// OrderedBlocks returns ordered blocks above the committed height, ascending.
	OrderedBlocks(ctx context.Context) ([]OrderedRecord, error)

	// SetMetadata saves arbitrary value in the store.
	SetMetadata(ctx context.Context, key string, value []byte) error
	// GetMetadata returns values stored for given key with SetMetadata.
	GetMetadata(ctx context.Context, key string) ([]byte, error)

	// Close safely closes underlying data storage, to ensure that data is actually saved.
	Close() error
}

// OrderedRecord is an ordered block with the id of its parent.
type OrderedRecord struct {
	ParentID types.Hash
	Block    *types.Block
}
