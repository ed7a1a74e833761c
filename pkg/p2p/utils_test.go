package p2p

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/sync"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/p2p/key"
)

type testNet []*Client

func (tn testNet) Close() (err error) {
	for i := range tn {
		err = errors.Join(err, tn[i].Close())
	}
	return
}

func (tn testNet) WaitForDHT() {
	for i := range tn {
		<-tn[i].dht.RefreshRoutingTable()
	}
}

type hostDescr struct {
	chainID string
	conns   []int
}

// copied from libp2p net/mock
var unicastAddr = net.ParseIP("2000::")

// copied from libp2p net/mock
func getAddr(sk crypto.PrivKey) (multiaddr.Multiaddr, error) {
	id, err := peer.IDFromPrivateKey(sk)
	if err != nil {
		return nil, err
	}
	suffix := id
	if len(id) > 8 {
		suffix = id[len(id)-8:]
	}
	ip := append(net.IP{}, unicastAddr...)
	copy(ip[net.IPv6len-len(suffix):], suffix)
	a, err := multiaddr.NewMultiaddr(fmt.Sprintf("/ip6/%s/tcp/4242", ip))
	if err != nil {
		return nil, fmt.Errorf("failed to create test multiaddr: %w", err)
	}
	return a, nil
}

func startTestNetwork(ctx context.Context, t *testing.T, n int, conf map[int]hostDescr, logger log.Logger) testNet {
	t.Helper()
	require := require.New(t)

	mnet := mocknet.New()
	t.Cleanup(func() { _ = mnet.Close() })

	keys := make([]*key.NodeKey, n)
	hosts := make([]host.Host, n)
	for i := 0; i < n; i++ {
		nodeKey, err := key.GenerateNodeKey()
		require.NoError(err)
		// generate our own addr
		addr, err := getAddr(nodeKey.PrivKey)
		require.NoError(err)
		h, err := mnet.AddPeer(nodeKey.PrivKey, addr)
		require.NoError(err)
		keys[i] = nodeKey
		hosts[i] = h
	}

	require.NoError(mnet.LinkAll())

	// prepare seed node lists
	seeds := make([]string, n)
	for src, descr := range conf {
		require.Less(src, n)
		for _, dst := range descr.conns {
			require.Less(dst, n)
			seeds[src] += hosts[dst].Addrs()[0].String() + "/p2p/" + hosts[dst].ID().String() + ","
		}
		seeds[src] = strings.TrimSuffix(seeds[src], ",")
	}

	clients := make(testNet, n)
	for i := 0; i < n; i++ {
		chainID := conf[i].chainID
		if chainID == "" {
			chainID = "test-chain"
		}
		client, err := NewClientWithHost(
			config.Config{
				ChainID: chainID,
				P2P: config.P2PConfig{
					Seeds: seeds[i],
				},
			},
			keys[i],
			sync.MutexWrap(datastore.NewMapDatastore()),
			logger,
			NopMetrics(),
			hosts[i],
		)
		require.NoError(err)
		clients[i] = client
	}

	for _, c := range clients {
		require.NoError(c.Start(ctx))
	}
	t.Cleanup(func() { _ = clients.Close() })

	return clients
}

// generateKey returns a fresh key for tests that never touch disk.
func generateKey(t *testing.T) *key.NodeKey {
	t.Helper()
	privKey, pubKey, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	return &key.NodeKey{PrivKey: privKey, PubKey: pubKey}
}
