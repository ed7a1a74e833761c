package node

import (
	"context"
	"errors"
	"fmt"

	ds "github.com/ipfs/go-datastore"

	"github.com/rollkit/bridge/block"
	"github.com/rollkit/bridge/pkg/p2p"
	"github.com/rollkit/bridge/pkg/rpc/server"
	"github.com/rollkit/bridge/types"
)

// ErrP2PDisabled is returned for network queries when p2p is not configured.
var ErrP2PDisabled = errors.New("p2p is disabled")

var _ server.Backend = (*backend)(nil)

// backend serves the HTTP API from the node components.
type backend struct {
	n *Node
}

func (b *backend) SubmitTxns(_ context.Context, txns []*types.VerifiedTxn) error {
	return b.n.Buffer.PushTxns(txns)
}

func (b *backend) Watermarks(ctx context.Context) (server.Watermarks, error) {
	height, err := b.n.Store.Height(ctx)
	if err != nil {
		return server.Watermarks{}, err
	}
	w := server.Watermarks{
		StoreHeight:  height,
		MempoolSize:  b.n.Mempool.Size(),
		BufferedSize: b.n.Buffer.Len(),
	}
	if executed, ok := b.n.Coordinator.ExecutedBlockNumber(); ok {
		w.Executed = &executed
	}
	if committed, ok := b.n.Coordinator.CommittedBlockNumber(); ok {
		w.Committed = &committed
	}
	return w, nil
}

func (b *backend) Account(addr types.Address) server.AccountInfo {
	info := server.AccountInfo{
		Address:            addr,
		NextSequenceNumber: b.n.Mempool.Watermark(addr),
	}
	if seq, ok := b.n.Coordinator.AccountSeqNum(addr); ok {
		info.LastProposed = &seq
	}
	return info
}

func (b *backend) BlockByID(ctx context.Context, id types.Hash) (*server.BlockInfo, error) {
	if st, ok := b.n.Buffer.State(id); ok && st.Block != nil {
		info := blockInfo(st.Block, st.Status.String(), st.Result)
		if parent, ok := b.n.Buffer.ParentOf(id); ok {
			info.ParentID = &parent
		}
		return info, nil
	}

	blk, err := b.n.Store.GetBlockByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return b.committedInfo(ctx, blk)
}

func (b *backend) BlockByNumber(ctx context.Context, number uint64) (*server.BlockInfo, error) {
	if meta, ok := b.n.Buffer.MetaByNumber(number); ok {
		if st, ok := b.n.Buffer.State(meta.ID); ok && st.Block != nil {
			return b.BlockByID(ctx, meta.ID)
		}
	}

	blk, err := b.n.Store.GetBlock(ctx, number)
	if err != nil {
		return nil, notFound(err)
	}
	return b.committedInfo(ctx, blk)
}

func (b *backend) NetworkInfo() (p2p.NetworkInfo, error) {
	if b.n.P2P == nil {
		return p2p.NetworkInfo{}, ErrP2PDisabled
	}
	return b.n.P2P.GetNetworkInfo()
}

func (b *backend) committedInfo(ctx context.Context, blk *types.Block) (*server.BlockInfo, error) {
	res, err := b.n.Store.GetResult(ctx, blk.Number())
	if err != nil && !errors.Is(err, ds.ErrNotFound) {
		return nil, err
	}
	info := blockInfo(blk, block.StatusCommitted.String(), res)
	if blk.Number() > 1 {
		if parent, err := b.n.Store.GetBlock(ctx, blk.Number()-1); err == nil {
			id := parent.ID()
			info.ParentID = &id
		}
	}
	return info, nil
}

func blockInfo(blk *types.Block, status string, res *types.ExecutionResult) *server.BlockInfo {
	return &server.BlockInfo{
		ID:        blk.ID(),
		Number:    blk.Number(),
		Status:    status,
		Timestamp: blk.Meta.Timestamp,
		NumTxns:   len(blk.Txns),
		Result:    server.NewResultInfo(res),
	}
}

func notFound(err error) error {
	if errors.Is(err, ds.ErrNotFound) {
		return fmt.Errorf("%w: %w", server.ErrNotFound, err)
	}
	return err
}
