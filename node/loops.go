package node

import (
	"context"
	"fmt"
	"time"

	"github.com/rollkit/bridge/execstate"
	"github.com/rollkit/bridge/persist"
	"github.com/rollkit/bridge/types"
)

// ingestLoop moves verified transactions from the ingestion queue into the mempool.
func (n *Node) ingestLoop(ctx context.Context) error {
	batch := n.conf.Node.IngestBatchSize
	if batch <= 0 {
		batch = 1
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.Buffer.TxNotifyCh():
		}

		for {
			txns, err := n.Buffer.PopTxns(batch)
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				break
			}
			rejected := 0
			for _, txn := range txns {
				if !n.Mempool.Admit(txn) {
					rejected++
				}
			}
			if rejected > 0 {
				n.logger.Debug("transactions not admitted", "count", rejected, "batch", len(txns))
			}
		}
	}
}

// proposalLoop builds a block from the mempool on every tick. Empty blocks are
// not proposed.
func (n *Node) proposalLoop(ctx context.Context) error {
	ticker := time.NewTicker(n.conf.Node.ProposalInterval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := n.proposeBlock(ctx); err != nil {
			return err
		}
	}
}

func (n *Node) proposeBlock(ctx context.Context) error {
	candidates := n.Mempool.DrainReady(n.conf.Node.MaxBlockTxns)
	if len(candidates) == 0 {
		return nil
	}

	attr := execstate.BuildingAttr{ParentID: n.tipID, Number: n.tipNumber + 1}
	defer n.Coordinator.DiscardBuilding(attr)

	txns := make([]*types.VerifiedTxn, 0, len(candidates))
	for _, txn := range candidates {
		if next := n.Coordinator.NextAccountSeqNum(txn.Sender); txn.SequenceNumber != next {
			n.logger.Warn("out of sequence transaction", "sender", txn.Sender, "seq", txn.SequenceNumber, "expected", next)
			n.resyncAccount(txn, next)
			continue
		}
		if txn.GasLimit > n.Coordinator.GasCap() {
			n.logger.Warn("dropping transaction above gas cap", "sender", txn.Sender, "seq", txn.SequenceNumber, "gas", txn.GasLimit)
			n.Mempool.Prune(txn.Sender, txn.SequenceNumber)
			n.Mempool.Release(txn)
			continue
		}
		if !n.Coordinator.CheckNewTxn(attr, txn) {
			n.Mempool.Release(txn)
			continue
		}
		// the proposer is the only writer of account sequence numbers after recovery
		n.Coordinator.UpdateAccountSeqNum(txn)
		txns = append(txns, txn)
	}
	if len(txns) == 0 {
		return nil
	}

	blk := types.NewBlock(attr.ParentID, attr.Number, uint64(time.Now().UnixMicro()), nil, txns)
	if err := n.Store.SaveOrdered(ctx, attr.ParentID, blk); err != nil {
		return fmt.Errorf("failed to save ordered block %d: %w", attr.Number, err)
	}
	if err := n.registerOrdered(attr.ParentID, blk); err != nil {
		return err
	}
	n.tipID, n.tipNumber = blk.ID(), blk.Number()
	n.logger.Debug("proposed block", "number", blk.Number(), "id", blk.ID(), "txns", len(txns), "gas", n.Coordinator.BuildingGas(attr))
	return nil
}

// resyncAccount moves the mempool watermark of txn's sender back in line with
// the coordinator, which expects next. Transactions below next are already
// ordered and are dropped; transactions above it wait for the gap to fill.
func (n *Node) resyncAccount(txn *types.VerifiedTxn, next uint64) {
	if txn.SequenceNumber < next {
		n.Mempool.Prune(txn.Sender, txn.SequenceNumber)
		n.Mempool.AdvanceWatermark(txn.Sender, next)
		return
	}
	n.Mempool.RewindWatermark(txn.Sender, next)
}

func (n *Node) registerOrdered(parentID types.Hash, blk *types.Block) error {
	if err := n.Buffer.SetOrderedBlocks(parentID, blk); err != nil {
		return fmt.Errorf("failed to register ordered block %d: %w", blk.Number(), err)
	}
	n.Coordinator.InsertBlockNumber(blk.ID(), blk.Number())
	n.Coordinator.SetParent(blk.ID(), parentID)
	return nil
}

// executionLoop executes ordered blocks in number order and hands them to the
// certifier.
func (n *Node) executionLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.Buffer.OrderedNotifyCh():
		}
		if err := n.executePending(ctx); err != nil {
			return err
		}
	}
}

func (n *Node) executePending(ctx context.Context) error {
	for {
		executed, _ := n.Coordinator.ExecutedBlockNumber()
		ordered := n.Buffer.GetOrderedBlocks(executed+1, maxCommitBatch)
		if len(ordered) == 0 {
			return nil
		}
		for _, ob := range ordered {
			blk := ob.Block
			res, err := n.Engine.ExecuteBlock(ctx, ob.ParentID, blk)
			if err != nil {
				return fmt.Errorf("failed to execute block %d: %w", blk.Number(), err)
			}
			n.Coordinator.InsertNewBlock(blk.ID(), res)
			if err := n.Buffer.SetComputeRes(blk.ID(), res); err != nil {
				return err
			}
			n.Coordinator.CasExecutedBlockNumber(blk.Number())

			select {
			case n.executedCh <- blk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// certificationLoop certifies executed blocks in batches and waits for each
// batch to be committed before certifying the next one.
func (n *Node) certificationLoop(ctx context.Context) error {
	var pending []*types.Block
	for {
		if len(pending) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case blk := <-n.executedCh:
				pending = append(pending, blk)
			}
		}
	drain:
		for len(pending) < maxCommitBatch {
			select {
			case blk := <-n.executedCh:
				pending = append(pending, blk)
			default:
				break drain
			}
		}

		batch := n.certifier.cut(pending, maxCommitBatch)
		pending = pending[len(batch):]
		if err := n.certify(ctx, batch); err != nil {
			return err
		}
	}
}

func (n *Node) certify(ctx context.Context, blocks []*types.Block) error {
	last := blocks[len(blocks)-1]
	for _, blk := range blocks {
		if _, err := n.Buffer.GetExecutedRes(ctx, blk.ID(), blk.Number()); err != nil {
			return fmt.Errorf("block %d has no execution result: %w", blk.Number(), err)
		}
	}

	li, err := n.certifier.certify(last)
	if err != nil {
		return err
	}
	req := persist.Request{
		Blocks:     blocks,
		LedgerInfo: li,
		Completion: persist.NewCompletion(),
	}
	select {
	case n.commitCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	return req.Completion.Wait(ctx)
}

// commitLoop hands commit requests to the persisting stage.
func (n *Node) commitLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-n.commitCh:
			round, err := n.stage.Process(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to commit blocks up to %d: %w", req.LedgerInfo.LedgerInfo.BlockNumber, err)
			}
			n.logger.Debug("committed", "round", round, "height", req.LedgerInfo.LedgerInfo.BlockNumber, "blocks", len(req.Blocks))
		}
	}
}
