package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/types"
)

func chainOf(n int) []*types.Block {
	blocks := make([]*types.Block, n)
	parent := types.ZeroHash
	for i := range blocks {
		blocks[i] = types.GetRandomBlock(parent, uint64(i+1), 1)
		parent = blocks[i].ID()
	}
	return blocks
}

func TestSoloCertifierCut(t *testing.T) {
	blocks := chainOf(7)

	cases := []struct {
		name        string
		epochLength uint64
		max         int
		want        int
	}{
		{"no epochs", 0, 16, 7},
		{"bounded by max", 0, 4, 4},
		{"stops at boundary", 3, 16, 3},
		{"max before boundary", 5, 2, 2},
		{"boundary on first block", 1, 16, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newSoloCertifier(tc.epochLength, nil)
			assert.Len(t, c.cut(blocks, tc.max), tc.want)
		})
	}
}

func TestSoloCertifierEpochs(t *testing.T) {
	blocks := chainOf(4)
	c := newSoloCertifier(2, nil)

	li, err := c.certify(blocks[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), li.LedgerInfo.Round)
	assert.Equal(t, uint64(1), li.LedgerInfo.Epoch)
	assert.False(t, li.EndsEpoch())
	assert.Nil(t, li.Signatures)

	li, err = c.certify(blocks[1])
	require.NoError(t, err)
	assert.True(t, li.EndsEpoch())
	assert.Equal(t, uint64(1), li.LedgerInfo.Epoch)
	assert.Equal(t, blocks[1].ID(), li.LedgerInfo.BlockID)
	assert.Equal(t, uint64(2), c.Epoch())

	li, err = c.certify(blocks[3])
	require.NoError(t, err)
	assert.Equal(t, uint64(3), li.LedgerInfo.Round)
	assert.Equal(t, uint64(2), li.LedgerInfo.Epoch)
	assert.True(t, li.EndsEpoch())

	resumed := newSoloCertifier(2, nil)
	resumed.resume(li)
	assert.Equal(t, uint64(3), resumed.Epoch())
	next, err := resumed.certify(chainOf(5)[4])
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next.LedgerInfo.Round)

	resumed = newSoloCertifier(2, nil)
	resumed.resume(nil)
	assert.Equal(t, uint64(1), resumed.Epoch())
}
