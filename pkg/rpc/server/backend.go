package server

import (
	"context"
	"errors"

	"github.com/rollkit/bridge/pkg/p2p"
	"github.com/rollkit/bridge/types"
)

// ErrNotFound is returned by a Backend for unknown blocks.
var ErrNotFound = errors.New("not found")

// Backend is the node surface served over HTTP.
type Backend interface {
	// SubmitTxns hands verified transactions to the ingestion queue.
	SubmitTxns(ctx context.Context, txns []*types.VerifiedTxn) error
	// Watermarks returns the executed and committed block numbers.
	Watermarks(ctx context.Context) (Watermarks, error)
	// Account returns the sequencing view of addr.
	Account(addr types.Address) AccountInfo
	// BlockByID looks a block up in memory first, then in the ledger store.
	BlockByID(ctx context.Context, id types.Hash) (*BlockInfo, error)
	// BlockByNumber looks a committed block up in the ledger store.
	BlockByNumber(ctx context.Context, number uint64) (*BlockInfo, error)
	// NetworkInfo returns the p2p identity, or an error when p2p is disabled.
	NetworkInfo() (p2p.NetworkInfo, error)
}

// Watermarks are the pipeline heights. A nil pointer means nothing was
// executed or committed yet.
type Watermarks struct {
	Executed     *uint64 `json:"executed"`
	Committed    *uint64 `json:"committed"`
	StoreHeight  uint64  `json:"store_height"`
	MempoolSize  int     `json:"mempool_size"`
	BufferedSize int     `json:"buffered_blocks"`
}

// AccountInfo is the sequencing state of one account.
type AccountInfo struct {
	Address types.Address `json:"address"`
	// NextSequenceNumber is the mempool watermark.
	NextSequenceNumber uint64 `json:"next_sequence_number"`
	// LastProposed is the last sequence number the coordinator accepted.
	LastProposed *uint64 `json:"last_proposed,omitempty"`
}

// BlockInfo describes a block and, once executed, its result.
type BlockInfo struct {
	ID        types.Hash  `json:"id"`
	Number    uint64      `json:"number"`
	ParentID  *types.Hash `json:"parent_id,omitempty"`
	Status    string      `json:"status"`
	Timestamp uint64      `json:"timestamp,omitempty"`
	NumTxns   int         `json:"num_txns"`
	Result    *ResultInfo `json:"result,omitempty"`
}

// ResultInfo is the JSON view of an execution result.
type ResultInfo struct {
	StateRoot types.Hash `json:"state_root"`
	GasUsed   uint64     `json:"gas_used"`
	Failed    int        `json:"failed_txns"`
}

// NewResultInfo summarizes res. It returns nil for a nil result.
func NewResultInfo(res *types.ExecutionResult) *ResultInfo {
	if res == nil {
		return nil
	}
	info := &ResultInfo{StateRoot: res.StateRoot, GasUsed: res.GasUsed}
	for _, st := range res.TxnStatuses {
		if !st.Success {
			info.Failed++
		}
	}
	return info
}

// TxnRequest is the JSON form of a submitted transaction. Its hash is derived
// on arrival.
type TxnRequest struct {
	Sender         types.Address `json:"sender"`
	SequenceNumber uint64        `json:"sequence_number"`
	ChainID        uint64        `json:"chain_id"`
	GasLimit       uint64        `json:"gas_limit"`
	Payload        []byte        `json:"payload"`
}

// SubmitRequest is the body of POST /txns.
type SubmitRequest struct {
	Txns []TxnRequest `json:"txns"`
}

// SubmitResponse is returned by POST /txns.
type SubmitResponse struct {
	Accepted int          `json:"accepted"`
	Hashes   []types.Hash `json:"hashes"`
}
