package node

import (
	"context"
	"errors"
	"testing"
	"time"

	ds "github.com/ipfs/go-datastore"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/core/execution"
	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/p2p/key"
	"github.com/rollkit/bridge/pkg/store"
	"github.com/rollkit/bridge/types"
)

const (
	waitTimeout  = 5 * time.Second
	pollInterval = 10 * time.Millisecond
)

func getTestConfig() config.Config {
	cfg := config.DefaultConfig
	cfg.RootDir = ""
	cfg.ChainID = "bridge-test"
	cfg.InMemory = true
	cfg.Node.ProposalInterval = config.DurationWrapper{Duration: 10 * time.Millisecond}
	cfg.P2P.ListenAddress = ""
	cfg.RPC.Address = ""
	cfg.Instrumentation = config.DefaultInstrumentationConfig()
	return cfg
}

type testNode struct {
	*Node
	engine *execution.DummyEngine
	key    *key.NodeKey
}

func newTestNode(t *testing.T, cfg config.Config, kv ds.Batching) *testNode {
	t.Helper()

	nodeKey, err := key.GenerateNodeKey()
	require.NoError(t, err)
	engine := execution.NewDummyEngine()
	n, err := New(cfg, engine, kv, nodeKey, func(string) *Metrics { return NopMetrics() }, log.NewTestLogger(t))
	require.NoError(t, err)
	return &testNode{Node: n, engine: engine, key: nodeKey}
}

// startNode runs n in the background. The returned function stops the node
// and waits for Run to return.
func startNode(t *testing.T, n *Node) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()

	var once bool
	stop := func() {
		if once {
			return
		}
		once = true
		cancel()
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("node stopped with error: %v", err)
			}
		case <-time.After(waitTimeout):
			t.Error("node did not stop in time")
		}
	}
	t.Cleanup(stop)
	return stop
}

func submit(t *testing.T, n *Node, txns ...*types.VerifiedTxn) {
	t.Helper()
	require.NoError(t, n.Buffer.PushTxns(txns))
}

// waitForHeight waits until the committed watermark reaches height.
func waitForHeight(t *testing.T, n *Node, height uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		committed, ok := n.Coordinator.CommittedBlockNumber()
		return ok && committed >= height
	}, waitTimeout, pollInterval)
}

// waitForIdle waits until every admitted transaction is committed and nothing
// is left in flight.
func waitForIdle(t *testing.T, n *Node, txns int) {
	t.Helper()
	require.Eventually(t, func() bool {
		if n.Mempool.Size() != 0 {
			return false
		}
		committed, _ := n.Coordinator.CommittedBlockNumber()
		executed, _ := n.Coordinator.ExecutedBlockNumber()
		if committed != executed {
			return false
		}
		return countCommittedTxns(t, n.Store) == txns
	}, waitTimeout, pollInterval)
}

func countCommittedTxns(t *testing.T, st store.Store) int {
	t.Helper()
	ctx := context.Background()
	height, err := st.Height(ctx)
	require.NoError(t, err)

	count := 0
	for number := uint64(1); number <= height; number++ {
		blk, err := st.GetBlock(ctx, number)
		require.NoError(t, err)
		count += len(blk.Txns)
	}
	return count
}

// committedSeqs returns the sequence numbers of each sender in chain order.
func committedSeqs(t *testing.T, st store.Store) map[types.Address][]uint64 {
	t.Helper()
	ctx := context.Background()
	height, err := st.Height(ctx)
	require.NoError(t, err)

	seqs := make(map[types.Address][]uint64)
	for number := uint64(1); number <= height; number++ {
		blk, err := st.GetBlock(ctx, number)
		require.NoError(t, err)
		for _, txn := range blk.Txns {
			seqs[txn.Sender] = append(seqs[txn.Sender], txn.SequenceNumber)
		}
	}
	return seqs
}
