package node

import (
	"context"
	"fmt"

	"github.com/rollkit/bridge/persist"
	"github.com/rollkit/bridge/types"
)

var _ persist.Committer = (*ledgerCommitter)(nil)

// ledgerCommitter makes a certified batch durable and releases the state held
// for it in memory.
type ledgerCommitter struct {
	n *Node
}

// Commit stores the batch, moves its blocks to Committed, advances the committed
// watermark, prunes the mempool and finalizes the blocks in the engine.
func (c *ledgerCommitter) Commit(ctx context.Context, blocks []*types.Block, li *types.LedgerInfoWithSignatures) error {
	n := c.n

	results := make([]*types.ExecutionResult, len(blocks))
	refs := make([]types.BlockRef, len(blocks))
	for i, blk := range blocks {
		refs[i] = blk.Ref()
		if res, ok := n.Coordinator.GetBlockResult(blk.ID()); ok {
			results[i] = res
		} else if st, ok := n.Buffer.State(blk.ID()); ok {
			results[i] = st.Result
		}
	}

	if err := n.Store.SaveCommitted(ctx, blocks, results, li); err != nil {
		return err
	}
	if err := n.Buffer.SetCommitBlocks(refs); err != nil {
		return err
	}
	for _, blk := range blocks {
		n.Coordinator.CasCommittedBlockNumber(blk.Number())
		n.Mempool.PruneBlock(blk)
	}

	last := blocks[len(blocks)-1].Number()
	if err := n.Engine.SetFinal(ctx, last); err != nil {
		return fmt.Errorf("failed to finalize block %d: %w", last, err)
	}

	if retention := uint64(n.conf.Node.Retention); retention > 0 && last >= retention {
		n.Coordinator.PruneBelow(last - retention + 1)
	}
	return nil
}
