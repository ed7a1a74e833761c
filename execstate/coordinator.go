// Package execstate tracks the execution side of block construction: gas used by
// blocks being built, cached execution results, block number lookups and the
// executed and committed watermarks.
package execstate

import (
	"fmt"
	"sync"

	"github.com/rollkit/bridge/pkg/cache"
	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/types"
)

// DefaultGasCap is the cumulative gas limit of a single block.
const DefaultGasCap uint64 = 1_000_000

// noneSeen marks an account or watermark that has not advanced yet.
const noneSeen int64 = -1

// BuildingAttr identifies a block under construction.
type BuildingAttr struct {
	ParentID types.Hash
	Number   uint64
}

// Config configures a Coordinator.
type Config struct {
	// GasCap bounds the summed gas limit of the transactions in one block.
	GasCap uint64
	// ResultCacheSize bounds the number of cached execution results.
	ResultCacheSize int
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{GasCap: DefaultGasCap, ResultCacheSize: cache.DefaultSize}
}

// Coordinator holds the shared execution state. All methods are safe for
// concurrent use.
type Coordinator struct {
	gasCap uint64

	mu        sync.Mutex
	accounts  map[types.Address]int64
	building  map[BuildingAttr]uint64
	numbers   map[types.Hash]uint64
	parents   map[types.Hash]types.Hash
	executed  int64
	committed int64

	results *cache.Cache[types.Hash, *types.ExecutionResult]

	logger  log.Logger
	metrics *Metrics
}

// NewCoordinator creates a Coordinator with both watermarks unset.
func NewCoordinator(cfg Config, logger log.Logger, metrics *Metrics) (*Coordinator, error) {
	if cfg.GasCap == 0 {
		cfg.GasCap = DefaultGasCap
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	results, err := cache.NewCache[types.Hash, *types.ExecutionResult](cfg.ResultCacheSize)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		gasCap:    cfg.GasCap,
		accounts:  make(map[types.Address]int64),
		building:  make(map[BuildingAttr]uint64),
		numbers:   make(map[types.Hash]uint64),
		parents:   make(map[types.Hash]types.Hash),
		executed:  noneSeen,
		committed: noneSeen,
		results:   results,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// GasCap returns the configured per-block gas cap.
func (c *Coordinator) GasCap() uint64 {
	return c.gasCap
}

// UpdateAccountSeqNum accepts txn and records its sequence number only if it
// directly follows the last accepted sequence number of its sender.
func (c *Coordinator) UpdateAccountSeqNum(txn *types.VerifiedTxn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	tracked, ok := c.accounts[txn.Sender]
	if !ok {
		tracked = noneSeen
	}
	if int64(txn.SequenceNumber) != tracked+1 {
		return false
	}
	c.accounts[txn.Sender] = int64(txn.SequenceNumber)
	return true
}

// AccountSeqNum returns the last accepted sequence number of addr.
func (c *Coordinator) AccountSeqNum(addr types.Address) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq, ok := c.accounts[addr]
	if !ok {
		return 0, false
	}
	return uint64(seq), true
}

// NextAccountSeqNum returns the only sequence number UpdateAccountSeqNum would
// accept from addr.
func (c *Coordinator) NextAccountSeqNum(addr types.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	tracked, ok := c.accounts[addr]
	if !ok {
		return 0
	}
	return uint64(tracked + 1)
}

// ResetAccounts forgets every tracked sequence number.
func (c *Coordinator) ResetAccounts() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accounts = make(map[types.Address]int64)
}

// CheckNewTxn charges txn's gas limit to the block identified by attr. It returns
// false, leaving the counter unchanged, when the charge would exceed the gas cap.
func (c *Coordinator) CheckNewTxn(attr BuildingAttr, txn *types.VerifiedTxn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	used := c.building[attr]
	if txn.GasLimit > c.gasCap || used > c.gasCap-txn.GasLimit {
		c.metrics.GasCapRejections.Add(1)
		return false
	}
	c.building[attr] = used + txn.GasLimit
	return true
}

// BuildingGas returns the gas charged so far to the block identified by attr.
func (c *Coordinator) BuildingGas(attr BuildingAttr) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.building[attr]
}

// DiscardBuilding drops the gas counter of a finished or abandoned block.
func (c *Coordinator) DiscardBuilding(attr BuildingAttr) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.building, attr)
}

// InsertNewBlock caches the execution result of blockID, replacing any previous one.
func (c *Coordinator) InsertNewBlock(blockID types.Hash, res *types.ExecutionResult) {
	c.results.SetItem(blockID, res)
}

// GetBlockResult returns the cached execution result of blockID.
func (c *Coordinator) GetBlockResult(blockID types.Hash) (*types.ExecutionResult, bool) {
	return c.results.GetItem(blockID)
}

// InsertBlockNumber records the number of blockID.
func (c *Coordinator) InsertBlockNumber(blockID types.Hash, number uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.numbers[blockID] = number
}

// GetBlockNumber returns the number of blockID. It panics if blockID was never
// registered with InsertBlockNumber.
func (c *Coordinator) GetBlockNumber(blockID types.Hash) uint64 {
	n, ok := c.LookupBlockNumber(blockID)
	if !ok {
		panic(fmt.Sprintf("block number of %s not registered", blockID))
	}
	return n
}

// LookupBlockNumber returns the number of blockID if it was registered.
func (c *Coordinator) LookupBlockNumber(blockID types.Hash) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.numbers[blockID]
	return n, ok
}

// SetParent records parent as the parent of child.
func (c *Coordinator) SetParent(child, parent types.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.parents[child] = parent
}

// Parent returns the recorded parent of child.
func (c *Coordinator) Parent(child types.Hash) (types.Hash, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.parents[child]
	return p, ok
}

// CasExecutedBlockNumber advances the executed watermark to n if n directly
// follows it and reports whether it did. Values at or below the watermark
// return false. A value skipping ahead panics.
func (c *Coordinator) CasExecutedBlockNumber(n uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok := casLocked(&c.executed, n, "executed")
	if ok {
		c.metrics.ExecutedHeight.Set(float64(n))
	}
	return ok
}

// CasCommittedBlockNumber advances the committed watermark, with the same rules
// as CasExecutedBlockNumber.
func (c *Coordinator) CasCommittedBlockNumber(n uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok := casLocked(&c.committed, n, "committed")
	if ok {
		c.metrics.CommittedHeight.Set(float64(n))
	}
	return ok
}

func casLocked(cur *int64, n uint64, name string) bool {
	next := *cur + 1
	if int64(n) > next {
		panic(fmt.Sprintf("%s block number jumped from %d to %d", name, *cur, n))
	}
	if int64(n) != next {
		return false
	}
	*cur = int64(n)
	return true
}

// ExecutedBlockNumber returns the executed watermark.
func (c *Coordinator) ExecutedBlockNumber() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return watermark(c.executed)
}

// CommittedBlockNumber returns the committed watermark.
func (c *Coordinator) CommittedBlockNumber() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return watermark(c.committed)
}

func watermark(v int64) (uint64, bool) {
	if v == noneSeen {
		return 0, false
	}
	return uint64(v), true
}

// InitWatermarks sets both watermarks to n. It is used once at startup, when the
// latest committed block is loaded from storage.
func (c *Coordinator) InitWatermarks(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.executed = int64(n)
	c.committed = int64(n)
	c.metrics.ExecutedHeight.Set(float64(n))
	c.metrics.CommittedHeight.Set(float64(n))
}

// PruneBelow forgets number and parent records of blocks numbered below n.
// Cached results are left to the cache's own eviction.
func (c *Coordinator) PruneBelow(n uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, num := range c.numbers {
		if num < n {
			delete(c.numbers, id)
			delete(c.parents, id)
			removed++
		}
	}
	for attr := range c.building {
		if attr.Number < n {
			delete(c.building, attr)
		}
	}
	return removed
}
