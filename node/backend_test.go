package node

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/rpc/client"
	"github.com/rollkit/bridge/pkg/rpc/server"
	"github.com/rollkit/bridge/pkg/store"
	"github.com/rollkit/bridge/types"
)

func TestBackendOverHTTP(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	n := newTestNode(t, getTestConfig(), store.NewTestKVStore())
	startNode(t, n.Node)

	srv := httptest.NewServer(server.NewServer(n.Backend(), config.RPCConfig{}, log.NewTestLogger(t)).Handler())
	defer srv.Close()
	rpc := client.NewClient(srv.URL)

	sender := types.AddressFromByte(7)
	hashes, err := rpc.SubmitTxns(ctx,
		server.TxnRequest{Sender: sender, SequenceNumber: 0, ChainID: 1, GasLimit: 100, Payload: []byte("a")},
		server.TxnRequest{Sender: sender, SequenceNumber: 1, ChainID: 1, GasLimit: 100, Payload: []byte("b")},
	)
	require.NoError(err)
	require.Len(hashes, 2)
	waitForIdle(t, n.Node, 2)

	w, err := rpc.Watermarks(ctx)
	require.NoError(err)
	require.NotNil(w.Executed)
	require.NotNil(w.Committed)
	assert.Equal(*w.Executed, *w.Committed)
	assert.Equal(w.StoreHeight, *w.Committed)
	assert.Zero(w.MempoolSize)

	account, err := rpc.Account(ctx, sender)
	require.NoError(err)
	assert.Equal(uint64(2), account.NextSequenceNumber)

	info, err := rpc.BlockByNumber(ctx, 1)
	require.NoError(err)
	assert.Equal("committed", info.Status)
	assert.Equal(1, info.NumTxns)
	require.NotNil(info.Result)
	assert.Equal(uint64(100), info.Result.GasUsed)
	require.NotNil(info.ParentID)
	assert.Equal(types.ZeroHash, *info.ParentID)

	byID, err := rpc.BlockByID(ctx, info.ID)
	require.NoError(err)
	assert.Equal(info.Number, byID.Number)

	_, err = rpc.BlockByNumber(ctx, 1000)
	var apiErr *client.Error
	require.ErrorAs(err, &apiErr)
	assert.Equal(404, apiErr.Code)

	_, err = rpc.BlockByID(ctx, types.GetRandomHash())
	require.ErrorAs(err, &apiErr)
	assert.Equal(404, apiErr.Code)
}

func TestBackendBlockFromStore(t *testing.T) {
	ctx := context.Background()
	kv := store.NewTestKVStore()

	first := newTestNode(t, getTestConfig(), kv)
	stop := startNode(t, first.Node)
	submit(t, first.Node, types.GetRandomTxn(types.AddressFromByte(1), 0, 50))
	waitForIdle(t, first.Node, 1)
	stop()

	// a fresh node only knows block 1 from the store
	second := newTestNode(t, getTestConfig(), kv)
	require.NoError(t, second.recover(ctx))

	committed, err := second.Store.GetBlock(ctx, 1)
	require.NoError(t, err)
	info, err := second.Backend().BlockByID(ctx, committed.ID())
	require.NoError(t, err)
	assert.Equal(t, "committed", info.Status)
	assert.Equal(t, uint64(50), info.Result.GasUsed)
	assert.Nil(t, info.ParentID)

	_, err = second.Backend().NetworkInfo()
	assert.ErrorIs(t, err, ErrP2PDisabled)
}
