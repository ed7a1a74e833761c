// Package mempool sequences verified transactions per account. Transactions are
// admitted in any order and released strictly by sequence number, with no gaps.
package mempool

import (
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/types"
)

// btreeDegree is the branching factor of the per-account pending trees.
const btreeDegree = 8

func lessBySeq(a, b *types.VerifiedTxn) bool {
	return a.SequenceNumber < b.SequenceNumber
}

// Mempool holds pending transactions keyed by account and sequence number together
// with the next sequence number expected from each account (its watermark).
//
// DrainReady selects at most one transaction per account per call, visiting
// accounts in ascending address order. Callers that want more transactions from
// a single account call it again on the next block-construction pass.
type Mempool struct {
	mu         sync.Mutex
	pending    map[types.Address]*btree.BTreeG[*types.VerifiedTxn]
	watermarks map[types.Address]uint64
	size       int

	logger  log.Logger
	metrics *Metrics
}

// NewMempool returns an empty Mempool.
func NewMempool(logger log.Logger, metrics *Metrics) *Mempool {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Mempool{
		pending:    make(map[types.Address]*btree.BTreeG[*types.VerifiedTxn]),
		watermarks: make(map[types.Address]uint64),
		logger:     logger,
		metrics:    metrics,
	}
}

// Admit inserts txn into its account's pending set. Transactions below the
// account watermark and duplicate sequence numbers are dropped and Admit
// returns false. The first admitted transaction for a sequence number is kept.
func (mp *Mempool) Admit(txn *types.VerifiedTxn) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if txn.SequenceNumber < mp.watermarks[txn.Sender] {
		mp.logger.Debug("dropping stale transaction", "sender", txn.Sender, "seq", txn.SequenceNumber)
		mp.metrics.RejectedTxs.With("reason", "stale").Add(1)
		return false
	}

	tree, ok := mp.pending[txn.Sender]
	if !ok {
		tree = btree.NewG(btreeDegree, lessBySeq)
		mp.pending[txn.Sender] = tree
	}
	if tree.Has(txn) {
		mp.logger.Debug("dropping duplicate transaction", "sender", txn.Sender, "seq", txn.SequenceNumber)
		mp.metrics.RejectedTxs.With("reason", "duplicate").Add(1)
		return false
	}
	tree.ReplaceOrInsert(txn)
	mp.size++
	mp.updateGauges()
	return true
}

// NextReady returns the transaction at addr's watermark without removing it or
// advancing the watermark.
func (mp *Mempool) NextReady(addr types.Address) (*types.VerifiedTxn, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.readyLocked(addr)
}

func (mp *Mempool) readyLocked(addr types.Address) (*types.VerifiedTxn, bool) {
	tree, ok := mp.pending[addr]
	if !ok {
		return nil, false
	}
	return tree.Get(&types.VerifiedTxn{SequenceNumber: mp.watermarks[addr]})
}

// DrainReady makes a single pass over the accounts in ascending address order and
// selects the transaction at each account's watermark, advancing that watermark by
// one. It stops once max transactions are collected. Selected transactions stay in
// the pool until they are pruned on commit.
func (mp *Mempool) DrainReady(max int) []*types.VerifiedTxn {
	if max <= 0 {
		return nil
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	addrs := make([]types.Address, 0, len(mp.pending))
	for addr := range mp.pending {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Compare(addrs[j]) < 0 })

	var out []*types.VerifiedTxn
	for _, addr := range addrs {
		txn, ok := mp.readyLocked(addr)
		if !ok {
			continue
		}
		out = append(out, txn)
		mp.watermarks[addr] = txn.SequenceNumber + 1
		if len(out) == max {
			break
		}
	}
	mp.metrics.DrainedTxs.Add(float64(len(out)))
	return out
}

// Release hands back a transaction returned by DrainReady that did not make it
// into a block. The watermark is rewound only if nothing was drained after txn.
func (mp *Mempool) Release(txn *types.VerifiedTxn) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.watermarks[txn.Sender] != txn.SequenceNumber+1 {
		return false
	}
	mp.watermarks[txn.Sender] = txn.SequenceNumber
	return true
}

// Prune removes the transaction of addr at seq. Accounts left without pending
// transactions are dropped; their watermark is kept.
func (mp *Mempool) Prune(addr types.Address, seq uint64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pruneLocked(addr, seq)
	mp.updateGauges()
}

// PruneBlock removes every transaction of a committed block.
func (mp *Mempool) PruneBlock(block *types.Block) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, txn := range block.Txns {
		mp.pruneLocked(txn.Sender, txn.SequenceNumber)
	}
	mp.updateGauges()
}

func (mp *Mempool) pruneLocked(addr types.Address, seq uint64) {
	tree, ok := mp.pending[addr]
	if !ok {
		return
	}
	if _, removed := tree.Delete(&types.VerifiedTxn{SequenceNumber: seq}); removed {
		mp.size--
	}
	if tree.Len() == 0 {
		delete(mp.pending, addr)
	}
}

// ResetEpoch clears every watermark. Pending transactions are kept, so transactions
// that were ahead of their watermark may become ready only once the gap below them fills.
func (mp *Mempool) ResetEpoch() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.watermarks = make(map[types.Address]uint64)
	mp.logger.Info("mempool watermarks reset for new epoch", "pending", mp.size)
}

// AdvanceWatermark raises addr's watermark to next and drops pending
// transactions below it. Lower values are ignored. It is used when account
// state is rebuilt from committed blocks at startup.
func (mp *Mempool) AdvanceWatermark(addr types.Address, next uint64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if next <= mp.watermarks[addr] {
		return
	}
	mp.watermarks[addr] = next
	if tree, ok := mp.pending[addr]; ok {
		for {
			lowest, ok := tree.Min()
			if !ok || lowest.SequenceNumber >= next {
				break
			}
			tree.DeleteMin()
			mp.size--
		}
		if tree.Len() == 0 {
			delete(mp.pending, addr)
		}
	}
	mp.updateGauges()
}

// RewindWatermark lowers addr's watermark to next so that sequence numbers from
// next onwards can be admitted and drained again. Higher values are ignored.
func (mp *Mempool) RewindWatermark(addr types.Address, next uint64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if next >= mp.watermarks[addr] {
		return
	}
	mp.watermarks[addr] = next
}

// Watermark returns the next sequence number expected from addr.
func (mp *Mempool) Watermark(addr types.Address) uint64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.watermarks[addr]
}

// Size returns the number of pending transactions.
func (mp *Mempool) Size() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.size
}

// NumAccounts returns the number of accounts with pending transactions.
func (mp *Mempool) NumAccounts() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return len(mp.pending)
}

func (mp *Mempool) updateGauges() {
	mp.metrics.Size.Set(float64(mp.size))
	mp.metrics.Accounts.Set(float64(len(mp.pending)))
}
