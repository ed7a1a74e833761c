package node

import (
	"context"
	"errors"
	"fmt"

	ds "github.com/ipfs/go-datastore"

	"github.com/rollkit/bridge/types"
)

// lastEpochChangeKey holds the last epoch change proof received from a peer.
const lastEpochChangeKey = "last_epoch_change"

// recover rebuilds the in-memory state from the store: the engine catches up on
// committed blocks it is missing, account sequencing resumes after the last
// committed and ordered transactions, and ordered blocks that were not committed
// before shutdown are registered again for execution.
//
// An empty store starts from a virtual genesis block 0 whose id is the zero hash.
func (n *Node) recover(ctx context.Context) error {
	height, err := n.Store.Height(ctx)
	if err != nil {
		return err
	}

	tipID := types.ZeroHash
	if height > 0 {
		tipID, err = n.replayCommitted(ctx, height)
		if err != nil {
			return err
		}
	}
	n.Buffer.Init(height, map[uint64]types.Hash{height: tipID})
	n.Coordinator.InitWatermarks(height)
	n.Coordinator.InsertBlockNumber(tipID, height)

	li, err := n.Store.LatestLedgerInfo(ctx)
	switch {
	case errors.Is(err, ds.ErrNotFound):
		li = nil
	case err != nil:
		return err
	}
	n.certifier.resume(li)

	n.tipID, n.tipNumber = tipID, height
	records, err := n.Store.OrderedBlocks(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		blk := rec.Block
		if blk.Number() != n.tipNumber+1 || rec.ParentID != n.tipID {
			n.Logger.Warn("discarding ordered blocks after a gap", "number", blk.Number(), "expected", n.tipNumber+1)
			break
		}
		if err := n.Engine.RecoverOrderedBlock(ctx, rec.ParentID, blk); err != nil {
			return fmt.Errorf("failed to recover ordered block %d: %w", blk.Number(), err)
		}
		if err := n.registerOrdered(rec.ParentID, blk); err != nil {
			return err
		}
		n.resumeAccounts(blk)
		n.tipID, n.tipNumber = blk.ID(), blk.Number()
	}

	n.Logger.Info("recovered state", "height", height, "ordered", n.tipNumber-height, "epoch", n.certifier.Epoch())
	return nil
}

// replayCommitted walks the committed chain, resumes account sequencing and
// replays the blocks the engine has not executed. It returns the id of the
// block at height.
func (n *Node) replayCommitted(ctx context.Context, height uint64) (types.Hash, error) {
	executed, err := n.Engine.GetBlocksByRange(ctx, 1, height+1)
	if err != nil {
		return types.Hash{}, fmt.Errorf("failed to query engine blocks: %w", err)
	}
	next := uint64(1)
	for _, blk := range executed {
		if blk.Number() != next {
			break
		}
		next++
	}

	var (
		tipID  types.Hash
		replay []*types.Block
	)
	for number := uint64(1); number <= height; number++ {
		blk, err := n.Store.GetBlock(ctx, number)
		if err != nil {
			return types.Hash{}, err
		}
		n.resumeAccounts(blk)
		if number >= next {
			replay = append(replay, blk)
		}
		tipID = blk.ID()
	}

	if len(replay) > 0 {
		n.Logger.Info("replaying committed blocks", "from", next, "to", height)
		if err := n.Engine.RecoverExecutionBlocks(ctx, replay); err != nil {
			return types.Hash{}, fmt.Errorf("failed to replay committed blocks: %w", err)
		}
	}
	return tipID, nil
}

func (n *Node) resumeAccounts(blk *types.Block) {
	for _, txn := range blk.Txns {
		n.Coordinator.UpdateAccountSeqNum(txn)
		n.Mempool.AdvanceWatermark(txn.Sender, txn.SequenceNumber+1)
	}
}
