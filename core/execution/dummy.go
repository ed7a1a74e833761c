package execution

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"

	"github.com/rollkit/bridge/types"
)

var _ Engine = (*DummyEngine)(nil)

//---------------------
// DummyEngine
//---------------------

// DummyEngine is an in-memory Engine for tests and single-node runs. State roots are
// a hash chain over block ids, every transaction succeeds and uses its full gas limit.
type DummyEngine struct {
	mu          sync.RWMutex
	genesisRoot types.Hash
	blocks      map[uint64]*types.Block
	results     map[types.Hash]*types.ExecutionResult
	recovered   map[types.Hash]types.Hash // ordered block id -> parent id
	finalized   uint64
}

// NewDummyEngine creates a new DummyEngine instance.
func NewDummyEngine() *DummyEngine {
	return &DummyEngine{
		genesisRoot: types.HashBytes([]byte{1, 2, 3}),
		blocks:      make(map[uint64]*types.Block),
		results:     make(map[types.Hash]*types.ExecutionResult),
		recovered:   make(map[types.Hash]types.Hash),
	}
}

// ExecuteBlock simulates execution of block.
func (e *DummyEngine) ExecuteBlock(ctx context.Context, parentID types.Hash, block *types.Block) (*types.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("nil block")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if res, ok := e.results[block.ID()]; ok {
		return res, nil
	}

	prevRoot := e.genesisRoot
	if parent, ok := e.results[parentID]; ok {
		prevRoot = parent.StateRoot
	}

	res := e.execute(prevRoot, block)
	e.results[block.ID()] = res
	e.blocks[block.Number()] = block
	delete(e.recovered, block.ID())
	return res, nil
}

func (e *DummyEngine) execute(prevRoot types.Hash, block *types.Block) *types.ExecutionResult {
	hasher := sha256.New()
	hasher.Write(prevRoot[:])
	id := block.ID()
	hasher.Write(id[:])

	res := &types.ExecutionResult{
		BlockID:     id,
		BlockNumber: block.Number(),
		TxnStatuses: make([]types.TxnStatus, 0, len(block.Txns)),
	}
	for _, txn := range block.Txns {
		hasher.Write(txn.Hash[:])
		res.GasUsed += txn.GasLimit
		res.TxnStatuses = append(res.TxnStatuses, types.TxnStatus{
			Hash:    txn.Hash,
			GasUsed: txn.GasLimit,
			Success: true,
		})
	}
	copy(res.StateRoot[:], hasher.Sum(nil))
	return res
}

// RecoverOrderedBlock records block as pending re-execution.
func (e *DummyEngine) RecoverOrderedBlock(ctx context.Context, parentID types.Hash, block *types.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.results[block.ID()]; ok {
		return nil
	}
	e.recovered[block.ID()] = parentID
	return nil
}

// RecoverExecutionBlocks replays blocks and marks them final.
func (e *DummyEngine) RecoverExecutionBlocks(ctx context.Context, blocks []*types.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if block.Number() <= e.finalized && e.finalized != 0 {
			continue
		}
		prevRoot := e.genesisRoot
		if prev, ok := e.blocks[block.Number()-1]; ok {
			prevRoot = e.results[prev.ID()].StateRoot
		}
		e.results[block.ID()] = e.execute(prevRoot, block)
		e.blocks[block.Number()] = block
		e.finalized = block.Number()
	}
	return nil
}

// GetBlocksByRange returns executed blocks with numbers in [from, to).
func (e *DummyEngine) GetBlocksByRange(ctx context.Context, from, to uint64) ([]*types.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if to < from {
		return nil, fmt.Errorf("invalid range [%d, %d)", from, to)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var blocks []*types.Block
	for n, b := range e.blocks {
		if n >= from && n < to {
			blocks = append(blocks, b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Number() < blocks[j].Number() })
	return blocks, nil
}

// SetFinal marks block at given number as finalized.
func (e *DummyEngine) SetFinal(ctx context.Context, number uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.blocks[number]; !ok {
		return fmt.Errorf("cannot set finalized block at number %d", number)
	}
	if number > e.finalized {
		e.finalized = number
	}
	return nil
}

// Finalized returns the highest finalized block number.
func (e *DummyEngine) Finalized() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.finalized
}

// Recovered returns the ids of blocks submitted through RecoverOrderedBlock and not yet re-executed.
func (e *DummyEngine) Recovered() []types.Hash {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]types.Hash, 0, len(e.recovered))
	for id := range e.recovered {
		ids = append(ids, id)
	}
	return ids
}
