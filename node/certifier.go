package node

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/rollkit/bridge/pkg/p2p/key"
	"github.com/rollkit/bridge/types"
)

// soloCertifier stands in for BFT voting on a single node: it issues a ledger
// info for every committed batch, signed with the node key. Epochs end every
// epochLength blocks; zero disables epoch changes.
type soloCertifier struct {
	epochLength uint64
	nodeKey     *key.NodeKey

	mu    sync.Mutex
	epoch uint64
	round uint64
}

func newSoloCertifier(epochLength uint64, nodeKey *key.NodeKey) *soloCertifier {
	return &soloCertifier{
		epochLength: epochLength,
		nodeKey:     nodeKey,
		epoch:       1,
	}
}

// resume continues after the given certificate, nil for an empty ledger.
func (c *soloCertifier) resume(li *types.LedgerInfoWithSignatures) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if li == nil {
		return
	}
	c.epoch = li.LedgerInfo.Epoch
	c.round = li.LedgerInfo.Round
	if li.EndsEpoch() {
		c.epoch++
	}
}

// cut returns the leading blocks of pending that go under one certificate. A
// batch never spans an epoch boundary.
func (c *soloCertifier) cut(pending []*types.Block, max int) []*types.Block {
	end := min(len(pending), max)
	if c.epochLength == 0 {
		return pending[:end]
	}
	for i, blk := range pending[:end] {
		if blk.Number()%c.epochLength == 0 {
			return pending[:i+1]
		}
	}
	return pending[:end]
}

// certify issues the certificate committing every block up to last.
func (c *soloCertifier) certify(last *types.Block) (*types.LedgerInfoWithSignatures, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.round++
	info := types.LedgerInfo{
		Epoch:       c.epoch,
		Round:       c.round,
		BlockID:     last.ID(),
		BlockNumber: last.Number(),
	}
	if c.epochLength > 0 && last.Number()%c.epochLength == 0 {
		next := nextEpochState(c.epoch + 1)
		info.EndsEpoch = true
		info.NextEpochState = &next
	}

	li := &types.LedgerInfoWithSignatures{LedgerInfo: info}
	if c.nodeKey != nil {
		msg, err := cbor.Marshal(info)
		if err != nil {
			return nil, fmt.Errorf("failed to encode ledger info: %w", err)
		}
		sig, err := c.nodeKey.PrivKey.Sign(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to sign ledger info: %w", err)
		}
		li.Signatures = sig
	}

	if info.EndsEpoch {
		c.epoch++
	}
	return li, nil
}

// Epoch returns the current epoch.
func (c *soloCertifier) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.epoch
}

// nextEpochState is the validator set digest of a single node network.
func nextEpochState(epoch uint64) types.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], epoch)
	return types.HashBytes(buf[:])
}
