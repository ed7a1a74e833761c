package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/block"
	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/store"
	"github.com/rollkit/bridge/test/mocks"
	"github.com/rollkit/bridge/types"
)

func TestRecoverEmptyStore(t *testing.T) {
	n := newTestNode(t, getTestConfig(), store.NewTestKVStore())
	require.NoError(t, n.recover(context.Background()))

	assert.Equal(t, types.ZeroHash, n.tipID)
	assert.Equal(t, uint64(0), n.tipNumber)
	executed, ok := n.Coordinator.ExecutedBlockNumber()
	require.True(t, ok)
	assert.Equal(t, uint64(0), executed)
	assert.Equal(t, uint64(1), n.certifier.Epoch())
}

func TestNodeRestart(t *testing.T) {
	cfg := getTestConfig()
	cfg.Node.EpochLength = 3
	kv := store.NewTestKVStore()
	ctx := context.Background()

	a, b := types.AddressFromByte(1), types.AddressFromByte(2)

	first := newTestNode(t, cfg, kv)
	stop := startNode(t, first.Node)
	for seq := uint64(0); seq < 4; seq++ {
		submit(t, first.Node, types.GetRandomTxn(a, seq, 100), types.GetRandomTxn(b, seq, 100))
	}
	waitForIdle(t, first.Node, 8)
	stop()

	height, err := first.Store.Height(ctx)
	require.NoError(t, err)
	tip, err := first.Store.GetBlock(ctx, height)
	require.NoError(t, err)
	latest, err := first.Store.LatestLedgerInfo(ctx)
	require.NoError(t, err)

	// an ordered block that never made it to commit before shutdown
	pending := types.NewBlock(tip.ID(), height+1, uint64(time.Now().UnixMicro()), nil,
		[]*types.VerifiedTxn{types.GetRandomTxn(a, 4, 100)})
	require.NoError(t, first.Store.SaveOrdered(ctx, tip.ID(), pending))

	second := newTestNode(t, cfg, kv)
	require.NoError(t, second.recover(ctx))

	// committed blocks were replayed into the fresh engine
	replayed, err := second.engine.GetBlocksByRange(ctx, 1, height+1)
	require.NoError(t, err)
	assert.Len(t, replayed, int(height))
	assert.Equal(t, height, second.engine.Finalized())

	// the ordered block waits for execution again
	assert.Equal(t, []types.Hash{pending.ID()}, second.engine.Recovered())
	st, ok := second.Buffer.State(pending.ID())
	require.True(t, ok)
	assert.Equal(t, block.StatusOrdered, st.Status)
	assert.Equal(t, pending.ID(), second.tipID)
	assert.Equal(t, height+1, second.tipNumber)

	// sequencing resumes after the last ordered transaction
	assert.Equal(t, uint64(5), second.Mempool.Watermark(a))
	assert.Equal(t, uint64(4), second.Mempool.Watermark(b))
	seq, ok := second.Coordinator.AccountSeqNum(a)
	require.True(t, ok)
	assert.Equal(t, uint64(4), seq)

	expectedEpoch := latest.LedgerInfo.Epoch
	if latest.EndsEpoch() {
		expectedEpoch++
	}
	assert.Equal(t, expectedEpoch, second.certifier.Epoch())
}

func TestNodeResumesAfterRestart(t *testing.T) {
	kv := store.NewTestKVStore()
	a := types.AddressFromByte(1)

	first := newTestNode(t, getTestConfig(), kv)
	stop := startNode(t, first.Node)
	submit(t, first.Node, types.GetRandomTxn(a, 0, 100), types.GetRandomTxn(a, 1, 100))
	waitForIdle(t, first.Node, 2)
	stop()

	second := newTestNode(t, getTestConfig(), kv)
	startNode(t, second.Node)
	// stale transaction is not admitted again
	submit(t, second.Node, types.GetRandomTxn(a, 1, 100), types.GetRandomTxn(a, 2, 100))
	waitForIdle(t, second.Node, 3)

	seqs := committedSeqs(t, second.Store)
	assert.Equal(t, []uint64{0, 1, 2}, seqs[a])

	// the new chain extends the old one
	ctx := context.Background()
	height, err := second.Store.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, height, second.engine.Finalized())
	for number := uint64(2); number <= height; number++ {
		info, err := second.Backend().BlockByNumber(ctx, number)
		require.NoError(t, err)
		parent, err := second.Store.GetBlock(ctx, number-1)
		require.NoError(t, err)
		require.NotNil(t, info.ParentID)
		assert.Equal(t, parent.ID(), *info.ParentID)
	}
}

func TestRecoverReplaysWithEngine(t *testing.T) {
	ctx := context.Background()
	kv := store.NewTestKVStore()
	st := store.New(store.NewPrefixKV(kv, mainPrefix))

	b1 := types.GetRandomBlock(types.ZeroHash, 1, 1)
	b2 := types.GetRandomBlock(b1.ID(), 2, 1)
	b3 := types.GetRandomBlock(b2.ID(), 3, 2)
	require.NoError(t, st.SaveCommitted(ctx, []*types.Block{b1, b2}, nil, types.GetRandomLedgerInfo(b2, 1, 1, false)))
	require.NoError(t, st.SaveOrdered(ctx, b2.ID(), b3))

	sameIDs := func(want ...*types.Block) any {
		return mock.MatchedBy(func(got []*types.Block) bool {
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i].ID() != want[i].ID() {
					return false
				}
			}
			return true
		})
	}
	engine := new(mocks.MockEngine)
	// the engine only executed block 1 before shutdown
	engine.On("GetBlocksByRange", mock.Anything, uint64(1), uint64(3)).Return([]*types.Block{b1}, nil)
	engine.On("RecoverExecutionBlocks", mock.Anything, sameIDs(b2)).Return(nil)
	engine.On("RecoverOrderedBlock", mock.Anything, b2.ID(), mock.MatchedBy(func(blk *types.Block) bool {
		return blk.ID() == b3.ID()
	})).Return(nil)

	n, err := New(getTestConfig(), engine, kv, nil, func(string) *Metrics { return NopMetrics() }, log.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, n.recover(ctx))
	engine.AssertExpectations(t)

	assert.Equal(t, b3.ID(), n.tipID)
	assert.Equal(t, uint64(3), n.tipNumber)
	st3, ok := n.Buffer.State(b3.ID())
	require.True(t, ok)
	assert.Equal(t, block.StatusOrdered, st3.Status)

	for _, txn := range b3.Txns {
		assert.Equal(t, txn.SequenceNumber+1, n.Mempool.Watermark(txn.Sender))
	}
}
