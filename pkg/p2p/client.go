package p2p

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ipfs/go-datastore"
	libp2p "github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	cdiscovery "github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	discovery "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	discutil "github.com/libp2p/go-libp2p/p2p/discovery/util"
	routedhost "github.com/libp2p/go-libp2p/p2p/host/routed"
	"github.com/libp2p/go-libp2p/p2p/net/conngater"
	"github.com/multiformats/go-multiaddr"

	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/p2p/key"
)

const (
	// reAdvertisePeriod defines a period after which P2P client re-attempt advertising namespace in DHT.
	reAdvertisePeriod = 1 * time.Hour

	// peerLimit defines limit of number of peers returned during active peer discovery.
	peerLimit = 60
)

// Client is a P2P client, implemented with libp2p.
//
// The client connects to the configured seed nodes, joins the Kademlia DHT
// and looks for other nodes of the same chain. Gossip runs over GossipSub.
type Client struct {
	logger log.Logger

	conf    config.P2PConfig
	chainID string
	privKey crypto.PrivKey

	host  host.Host
	dht   *dht.IpfsDHT
	disc  *discovery.RoutingDiscovery
	gater *conngater.BasicConnectionGater
	ps    *pubsub.PubSub

	metrics *Metrics
}

// NetworkInfo describes the local node and its connections.
type NetworkInfo struct {
	ID             string    `json:"id"`
	NodeID         string    `json:"node_id"`
	Network        string    `json:"network"`
	ListenAddress  []string  `json:"listen_addresses"`
	ConnectedPeers []peer.ID `json:"connected_peers"`
}

// PeerConnection describes a single connection.
type PeerConnection struct {
	ID         string `json:"id"`
	IsOutbound bool   `json:"is_outbound"`
	RemoteAddr string `json:"remote_addr"`
}

// NewClient creates new Client object.
//
// Basic checks on parameters are done, and default parameters are provided for unset-configuration
func NewClient(
	conf config.Config,
	nodeKey *key.NodeKey,
	ds datastore.Datastore,
	logger log.Logger,
	metrics *Metrics,
) (*Client, error) {
	if nodeKey == nil {
		return nil, fmt.Errorf("node key is required")
	}
	if conf.ChainID == "" {
		return nil, fmt.Errorf("chain id is required")
	}

	gater, err := conngater.NewBasicConnectionGater(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection gater: %w", err)
	}

	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Client{
		conf:    conf.P2P,
		gater:   gater,
		privKey: nodeKey.PrivKey,
		chainID: conf.ChainID,
		logger:  logger.With("module", "p2p"),
		metrics: metrics,
	}, nil
}

// NewClientWithHost creates a Client that uses h instead of listening itself.
func NewClientWithHost(
	conf config.Config,
	nodeKey *key.NodeKey,
	ds datastore.Datastore,
	logger log.Logger,
	metrics *Metrics,
	h host.Host,
) (*Client, error) {
	c, err := NewClient(conf, nodeKey, ds, logger, metrics)
	if err != nil {
		return nil, err
	}

	expectedID, _ := peer.IDFromPrivateKey(nodeKey.PrivKey)
	if h.ID() != expectedID {
		return nil, fmt.Errorf(
			"injected host ID %s does not match node key ID %s",
			h.ID(),
			expectedID,
		)
	}

	c.host = h
	return c, nil
}

// Start establish Client's P2P connectivity.
//
// Following steps are taken:
// 1. Setup libp2p host, start listening for incoming connections.
// 2. Setup gossibsub.
// 3. Setup DHT, establish connection to seed nodes and initialize peer discovery.
// 4. Use active peer discovery to look for peers from same chain.
func (c *Client) Start(ctx context.Context) error {
	c.logger.Debug("starting P2P client")

	if c.host != nil {
		return c.startWithHost(ctx, c.host)
	}

	h, err := c.listen()
	if err != nil {
		return err
	}
	return c.startWithHost(ctx, h)
}

func (c *Client) startWithHost(ctx context.Context, h host.Host) error {
	c.host = h
	for _, a := range c.host.Addrs() {
		c.logger.Info("listening on", "address", fmt.Sprintf("%s/p2p/%s", a, c.host.ID()))
	}

	c.logger.Debug("setting up gossiping")
	if err := c.setupGossiping(ctx); err != nil {
		return err
	}

	c.logger.Debug("setting up DHT")
	if err := c.setupDHT(ctx); err != nil {
		return err
	}

	c.logger.Debug("setting up active peer discovery")
	if err := c.peerDiscovery(ctx); err != nil {
		return err
	}

	c.host.Network().Notify(&network.NotifyBundle{
		ConnectedF:    func(n network.Network, _ network.Conn) { c.metrics.Peers.Set(float64(len(n.Peers()))) },
		DisconnectedF: func(n network.Network, _ network.Conn) { c.metrics.Peers.Set(float64(len(n.Peers()))) },
	})
	return nil
}

// Close gently stops Client.
func (c *Client) Close() error {
	var dhtErr, hostErr error
	if c.dht != nil {
		dhtErr = c.dht.Close()
	}
	if c.host != nil {
		hostErr = c.host.Close()
	}
	return errors.Join(dhtErr, hostErr)
}

// Addrs returns listen addresses of Client.
func (c *Client) Addrs() []multiaddr.Multiaddr {
	return c.host.Addrs()
}

// Host returns the libp2p node in a peer-to-peer network
func (c *Client) Host() host.Host {
	return c.host
}

// PubSub returns the libp2p node pubsub for adding future subscriptions
func (c *Client) PubSub() *pubsub.PubSub {
	return c.ps
}

// ConnectionGater returns the client's connection gater
func (c *Client) ConnectionGater() *conngater.BasicConnectionGater {
	return c.gater
}

// PeerIDs returns list of peer IDs of connected peers excluding self and inactive
func (c *Client) PeerIDs() []peer.ID {
	peerIDs := make([]peer.ID, 0)
	for _, conn := range c.host.Network().Conns() {
		if conn.RemotePeer() != c.host.ID() {
			peerIDs = append(peerIDs, conn.RemotePeer())
		}
	}
	return peerIDs
}

// Peers returns list of peers connected to Client.
func (c *Client) Peers() []PeerConnection {
	conns := c.host.Network().Conns()
	res := make([]PeerConnection, 0, len(conns))
	for _, conn := range conns {
		res = append(res, PeerConnection{
			ID:         conn.RemotePeer().String(),
			IsOutbound: conn.Stat().Direction == network.DirOutbound,
			RemoteAddr: conn.RemoteMultiaddr().String(),
		})
	}
	return res
}

// GetNetworkInfo returns the identity of this node and its connected peers.
func (c *Client) GetNetworkInfo() (NetworkInfo, error) {
	if c.host == nil {
		return NetworkInfo{}, errors.New("p2p client not started")
	}
	addrs := make([]string, 0, len(c.host.Addrs()))
	for _, a := range c.host.Addrs() {
		addrs = append(addrs, fmt.Sprintf("%s/p2p/%s", a, c.host.ID()))
	}
	return NetworkInfo{
		ID:             c.host.ID().String(),
		NodeID:         key.PubKeyToID(c.privKey.GetPublic()),
		Network:        c.chainID,
		ListenAddress:  addrs,
		ConnectedPeers: c.PeerIDs(),
	}, nil
}

func (c *Client) listen() (host.Host, error) {
	maddr, err := multiaddr.NewMultiaddr(c.conf.ListenAddress)
	if err != nil {
		return nil, err
	}

	return libp2p.New(libp2p.ListenAddrs(maddr), libp2p.Identity(c.privKey), libp2p.ConnectionGater(c.gater))
}

func (c *Client) setupDHT(ctx context.Context) error {
	seeds := c.parseAddrInfoList(c.conf.Seeds)
	if len(seeds) == 0 {
		c.logger.Info("no seeds - only listening for connections")
	}

	for _, sa := range seeds {
		c.logger.Debug("seed", "addr", sa)
	}

	var err error
	c.dht, err = dht.New(ctx, c.host, dht.Mode(dht.ModeServer), dht.BootstrapPeers(seeds...))
	if err != nil {
		return fmt.Errorf("failed to create DHT: %w", err)
	}

	if err := c.dht.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to bootstrap DHT: %w", err)
	}

	c.host = routedhost.Wrap(c.host, c.dht)
	return nil
}

func (c *Client) peerDiscovery(ctx context.Context) error {
	if err := c.setupPeerDiscovery(ctx); err != nil {
		return err
	}
	c.advertise(ctx)
	return c.findPeers(ctx)
}

func (c *Client) setupPeerDiscovery(ctx context.Context) error {
	// wait for DHT
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.dht.RefreshRoutingTable():
	}
	c.disc = discovery.NewRoutingDiscovery(c.dht)
	return nil
}

func (c *Client) advertise(ctx context.Context) {
	discutil.Advertise(ctx, c.disc, c.getNamespace(), cdiscovery.TTL(reAdvertisePeriod))
}

func (c *Client) findPeers(ctx context.Context) error {
	peerCh, err := c.disc.FindPeers(ctx, c.getNamespace(), cdiscovery.Limit(peerLimit))
	if err != nil {
		return err
	}

	for peer := range peerCh {
		go c.tryConnect(ctx, peer)
	}
	return nil
}

// tryConnect attempts to connect to a peer and logs error if necessary
func (c *Client) tryConnect(ctx context.Context, peer peer.AddrInfo) {
	if peer.ID == c.host.ID() {
		return
	}

	err := c.host.Connect(ctx, peer)
	if err != nil && ctx.Err() == nil {
		c.logger.Error("failed to connect to peer", "peer", peer, "error", err)
	}
}

func (c *Client) setupGossiping(ctx context.Context) error {
	var err error
	c.ps, err = pubsub.NewGossipSub(ctx, c.host)
	return err
}

// parseAddrInfoList parses a comma separated string of multiaddrs into a list of peer.AddrInfo structs
func (c *Client) parseAddrInfoList(addrInfoStr string) []peer.AddrInfo {
	if len(addrInfoStr) == 0 {
		return []peer.AddrInfo{}
	}
	peers := strings.Split(addrInfoStr, ",")
	addrs := make([]peer.AddrInfo, 0, len(peers))
	for _, p := range peers {
		maddr, err := multiaddr.NewMultiaddr(p)
		if err != nil {
			c.logger.Error("failed to parse peer", "address", p, "error", err)
			continue
		}
		addrInfo, err := peer.AddrInfoFromP2pAddr(maddr)
		if err != nil {
			c.logger.Error("failed to create addr info for peer", "address", maddr, "error", err)
			continue
		}
		addrs = append(addrs, *addrInfo)
	}
	return addrs
}

// getNamespace returns unique string identifying the chain. It is used to
// advertise and find peers in the DHT.
func (c *Client) getNamespace() string {
	return c.chainID
}
