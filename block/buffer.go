package block

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/queue"
	"github.com/rollkit/bridge/types"
)

// DefaultRetention is the number of committed blocks kept for result lookups.
const DefaultRetention = 256

// BufferManager is the source of truth for block lifecycle state and the ingestion
// point for verified transactions. The ingestion queue and the block-state map
// are guarded by separate locks so that ingestion never waits on block-state work.
type BufferManager struct {
	txs *queue.Queue[*types.VerifiedTxn]

	mu              sync.RWMutex
	initialized     bool
	entries         map[types.Hash]*entry
	byNumber        map[uint64]types.BlockMeta
	committed       []types.Hash // commit order, oldest first
	latestCommitted uint64
	retention       int
	orderedCh       chan struct{}

	logger  log.Logger
	metrics *Metrics
}

// NewBufferManager creates a BufferManager that keeps the retention most recent
// committed blocks. A non-positive retention disables automatic eviction.
func NewBufferManager(retention int, logger log.Logger, metrics *Metrics) *BufferManager {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &BufferManager{
		txs:       queue.New[*types.VerifiedTxn](),
		entries:   make(map[types.Hash]*entry),
		byNumber:  make(map[uint64]types.BlockMeta),
		retention: retention,
		orderedCh: make(chan struct{}, 1),
		logger:    logger,
		metrics:   metrics,
	}
}

// PushTxns appends txns to the ingestion queue.
func (m *BufferManager) PushTxns(txns []*types.VerifiedTxn) error {
	m.txs.Add(txns...)
	m.metrics.IngestedTxs.Add(float64(len(txns)))
	m.metrics.QueuedTxs.Set(float64(m.txs.Len()))
	return nil
}

// PopTxns removes up to max transactions from the head of the ingestion queue.
// It never blocks.
func (m *BufferManager) PopTxns(max int) ([]*types.VerifiedTxn, error) {
	txns := m.txs.PopN(max)
	m.metrics.QueuedTxs.Set(float64(m.txs.Len()))
	return txns, nil
}

// TxNotifyCh is signalled after transactions are pushed.
func (m *BufferManager) TxNotifyCh() <-chan struct{} {
	return m.txs.NotifyCh()
}

// OrderedNotifyCh is signalled after a block is registered as ordered.
func (m *BufferManager) OrderedNotifyCh() <-chan struct{} {
	return m.orderedCh
}

// Init records the committed chain tip at startup. seed maps block numbers to the
// ids of already committed blocks. Init must be called exactly once; a second
// call panics.
func (m *BufferManager) Init(startNumber uint64, seed map[uint64]types.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		panic("block buffer manager initialized twice")
	}
	m.initialized = true
	m.latestCommitted = startNumber

	numbers := make([]uint64, 0, len(seed))
	for n := range seed {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for _, n := range numbers {
		id := seed[n]
		m.entries[id] = newEntry(n, types.ZeroHash, BlockState{Status: StatusCommitted})
		m.byNumber[n] = types.BlockMeta{ID: id, Number: n}
		m.committed = append(m.committed, id)
	}
	m.metrics.CommittedHeight.Set(float64(startNumber))
	m.logger.Info("block buffer initialized", "start", startNumber, "seeded", len(seed))
}

// SetOrderedBlocks registers block as ordered on top of parentID.
func (m *BufferManager) SetOrderedBlocks(parentID types.Hash, block *types.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	id := block.ID()
	if _, ok := m.entries[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBlock, id)
	}
	m.entries[id] = newEntry(block.Number(), parentID, BlockState{Status: StatusOrdered, Block: block})
	m.byNumber[block.Number()] = block.Meta
	m.metrics.OrderedBlocks.Add(1)
	m.metrics.NumTxs.Set(float64(len(block.Txns)))

	select {
	case m.orderedCh <- struct{}{}:
	default:
	}
	return nil
}

// SetComputeRes records the execution result of an ordered block, moving it to Computed.
func (m *BufferManager) SetComputeRes(blockID types.Hash, res *types.ExecutionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	e, ok := m.entries[blockID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	if e.state.Status != StatusOrdered {
		return TransitionError{BlockID: blockID, From: e.state.Status, To: StatusComputed}
	}
	if res.BlockID != blockID {
		return fmt.Errorf("result for block %s recorded under %s", res.BlockID, blockID)
	}

	e.state.Status = StatusComputed
	e.state.Result = res
	if meta, ok := m.byNumber[e.number]; ok && meta.ID == blockID {
		root := res.StateRoot
		meta.ExecutionHash = &root
		m.byNumber[e.number] = meta
	}
	close(e.computed)
	m.metrics.ComputedBlocks.Add(1)
	return nil
}

// GetExecutedRes waits until the block is Computed or Committed and returns its
// result. It returns early with ctx's error if ctx is done first.
func (m *BufferManager) GetExecutedRes(ctx context.Context, blockID types.Hash, number uint64) (*types.ExecutionResult, error) {
	m.mu.RLock()
	if !m.initialized {
		m.mu.RUnlock()
		return nil, ErrNotInitialized
	}
	e, ok := m.entries[blockID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	if e.number != number {
		return nil, fmt.Errorf("%w: block %s has number %d, requested %d", ErrUnknownBlock, blockID, e.number, number)
	}

	select {
	case <-e.computed:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if e.state.Result == nil {
		return nil, fmt.Errorf("%w: block %s", ErrNoResult, blockID)
	}
	return e.state.Result, nil
}

// SetCommitBlocks moves every referenced block from Computed to Committed. If any
// block is unknown or not Computed, no state changes.
func (m *BufferManager) SetCommitBlocks(refs []types.BlockRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}

	seen := make(map[types.Hash]struct{}, len(refs))
	for _, ref := range refs {
		e, ok := m.entries[ref.ID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownBlock, ref.ID)
		}
		if _, dup := seen[ref.ID]; dup || e.state.Status != StatusComputed {
			from := e.state.Status
			if dup {
				from = StatusCommitted
			}
			return TransitionError{BlockID: ref.ID, From: from, To: StatusCommitted}
		}
		seen[ref.ID] = struct{}{}
	}

	for _, ref := range refs {
		e := m.entries[ref.ID]
		e.state.Status = StatusCommitted
		m.committed = append(m.committed, ref.ID)
		if e.number > m.latestCommitted {
			m.latestCommitted = e.number
		}
	}
	m.metrics.CommittedBlocks.Add(float64(len(refs)))
	m.metrics.CommittedHeight.Set(float64(m.latestCommitted))

	if m.retention > 0 && len(m.committed) > m.retention {
		m.evictLocked(len(m.committed) - m.retention)
	}
	return nil
}

// PruneCommitted drops committed blocks numbered below below and returns how many
// were removed. Blocks that are not yet committed are never dropped.
func (m *BufferManager) PruneCommitted(below uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.committed[:0]
	removed := 0
	for _, id := range m.committed {
		e, ok := m.entries[id]
		if ok && e.number < below {
			m.dropLocked(id, e)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	clear(m.committed[len(kept):])
	m.committed = kept
	return removed
}

func (m *BufferManager) evictLocked(n int) {
	for _, id := range m.committed[:n] {
		if e, ok := m.entries[id]; ok {
			m.dropLocked(id, e)
		}
	}
	m.committed = append([]types.Hash(nil), m.committed[n:]...)
}

func (m *BufferManager) dropLocked(id types.Hash, e *entry) {
	delete(m.entries, id)
	if meta, ok := m.byNumber[e.number]; ok && meta.ID == id {
		delete(m.byNumber, e.number)
	}
}

// GetOrderedBlocks returns up to max consecutive ordered blocks starting at number from.
func (m *BufferManager) GetOrderedBlocks(from uint64, max int) []OrderedBlock {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []OrderedBlock
	for n := from; len(out) < max; n++ {
		meta, ok := m.byNumber[n]
		if !ok {
			break
		}
		e := m.entries[meta.ID]
		if e == nil || e.state.Status != StatusOrdered {
			break
		}
		out = append(out, OrderedBlock{ParentID: e.parentID, Block: e.state.Block})
	}
	return out
}

// State returns a snapshot of the block's lifecycle entry.
func (m *BufferManager) State(blockID types.Hash) (BlockState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[blockID]
	if !ok {
		return BlockState{}, false
	}
	return e.state, true
}

// Block returns the block registered under blockID.
func (m *BufferManager) Block(blockID types.Hash) (*types.Block, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[blockID]
	if !ok || e.state.Block == nil {
		return nil, false
	}
	return e.state.Block, true
}

// ParentOf returns the parent id recorded for blockID.
func (m *BufferManager) ParentOf(blockID types.Hash) (types.Hash, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[blockID]
	if !ok {
		return types.Hash{}, false
	}
	return e.parentID, true
}

// MetaByNumber returns the metadata of the block registered at number.
func (m *BufferManager) MetaByNumber(number uint64) (types.BlockMeta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	meta, ok := m.byNumber[number]
	return meta, ok
}

// LatestCommittedNumber returns the highest committed block number.
func (m *BufferManager) LatestCommittedNumber() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.latestCommitted
}

// Len returns the number of tracked blocks.
func (m *BufferManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
