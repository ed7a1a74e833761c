package p2p

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/types"
)

type received struct {
	from  peer.ID
	proof *types.EpochChangeProof
}

func TestEpochChangeGossip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := log.NewTestLogger(t)
	clients := startTestNetwork(ctx, t, 3, map[int]hostDescr{
		1: {conns: []int{0}},
		2: {conns: []int{0}},
	}, logger)

	inboxes := make([]chan received, len(clients))
	gossipers := make([]*EpochChangeGossiper, len(clients))
	runDone := make(chan struct{}, len(clients))
	for i, c := range clients {
		inbox := make(chan received, 4)
		inboxes[i] = inbox
		g, err := NewEpochChangeGossiper(c.PubSub(), c.Host().ID(), "test-chain", func(_ context.Context, from peer.ID, proof *types.EpochChangeProof) {
			inbox <- received{from: from, proof: proof}
		}, logger, NopMetrics())
		require.NoError(t, err)
		gossipers[i] = g
		go func() {
			_ = g.Run(ctx)
			runDone <- struct{}{}
		}()
	}

	// publish only once the streams in both directions are up
	publisher := clients[0].Host().ID()
	require.Eventually(t, func() bool {
		if len(gossipers[0].Peers()) != 2 {
			return false
		}
		for _, g := range gossipers[1:] {
			if !slices.Contains(g.Peers(), publisher) {
				return false
			}
		}
		return true
	}, 10*time.Second, 50*time.Millisecond)

	block := types.GetRandomBlock(types.GetRandomHash(), 10, 1)
	proof := types.NewEpochChangeProof([]*types.LedgerInfoWithSignatures{types.GetRandomLedgerInfo(block, 3, 7, true)}, false)
	require.NoError(t, gossipers[0].SendEpochChange(ctx, proof))

	for _, i := range []int{1, 2} {
		select {
		case r := <-inboxes[i]:
			assert.Equal(t, publisher, r.from)
			require.Len(t, r.proof.LedgerInfos, 1)
			assert.Equal(t, proof.LedgerInfos[0].LedgerInfo, r.proof.LedgerInfos[0].LedgerInfo)
			assert.Equal(t, proof.LedgerInfos[0].Signatures, r.proof.LedgerInfos[0].Signatures)
			assert.Equal(t, uint64(3), r.proof.Epoch())
		case <-time.After(10 * time.Second):
			t.Fatalf("client %d did not receive the proof", i)
		}
	}

	// the publisher does not deliver its own proof
	select {
	case <-inboxes[0]:
		t.Fatal("publisher received its own proof")
	case <-time.After(100 * time.Millisecond):
	}

	// closing after the pubsub context is gone is a clean shutdown
	cancel()
	for range gossipers {
		<-runDone
	}
	for _, g := range gossipers {
		require.NoError(t, g.Close())
	}
}

func TestEpochChangeGossiperRejoinAfterClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients := startTestNetwork(ctx, t, 1, nil, log.NewNopLogger())
	ps := clients[0].PubSub()
	g, err := NewEpochChangeGossiper(ps, clients[0].Host().ID(), "test-chain", nil, log.NewNopLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, g.Close())

	// the topic and its validator are released and can be joined again
	again, err := NewEpochChangeGossiper(ps, clients[0].Host().ID(), "test-chain", nil, log.NewNopLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestSendEpochChangeRejectsInvalidProof(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients := startTestNetwork(ctx, t, 1, nil, log.NewNopLogger())
	g, err := NewEpochChangeGossiper(clients[0].PubSub(), clients[0].Host().ID(), "test-chain", nil, log.NewNopLogger(), nil)
	require.NoError(t, err)

	err = g.SendEpochChange(ctx, types.NewEpochChangeProof(nil, false))
	require.ErrorIs(t, err, ErrInvalidProof)
}

func TestValidateEpochChangeProof(t *testing.T) {
	block := types.GetRandomBlock(types.GetRandomHash(), 1, 0)
	ending := types.GetRandomLedgerInfo(block, 1, 1, true)
	notEnding := types.GetRandomLedgerInfo(block, 1, 1, false)

	cases := []struct {
		name  string
		proof *types.EpochChangeProof
		valid bool
	}{
		{"nil", nil, false},
		{"empty", types.NewEpochChangeProof(nil, false), false},
		{"nil ledger info", types.NewEpochChangeProof([]*types.LedgerInfoWithSignatures{nil}, false), false},
		{"does not end epoch", types.NewEpochChangeProof([]*types.LedgerInfoWithSignatures{notEnding}, false), false},
		{"valid", types.NewEpochChangeProof([]*types.LedgerInfoWithSignatures{ending}, false), true},
		{"valid chain", types.NewEpochChangeProof([]*types.LedgerInfoWithSignatures{notEnding, ending}, true), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateEpochChangeProof(tc.proof)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidProof)
			}
		})
	}
}

func TestEpochChangeTopic(t *testing.T) {
	assert.Equal(t, "/bridge-local/epoch-change/v1", EpochChangeTopic("bridge-local"))
}
