package node

import (
	"context"
	"errors"
	"fmt"

	ds "github.com/ipfs/go-datastore"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/multierr"

	"github.com/rollkit/bridge/block"
	"github.com/rollkit/bridge/core/execution"
	"github.com/rollkit/bridge/execstate"
	"github.com/rollkit/bridge/mempool"
	"github.com/rollkit/bridge/persist"
	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/p2p"
	"github.com/rollkit/bridge/pkg/p2p/key"
	"github.com/rollkit/bridge/pkg/rpc/server"
	"github.com/rollkit/bridge/pkg/service"
	"github.com/rollkit/bridge/pkg/store"
	"github.com/rollkit/bridge/types"
)

// prefixes used in KV store to separate ledger data from p2p data
var (
	mainPrefix = "0"
	p2pPrefix  = "1"
)

const (
	// executedBufferSize bounds the executed blocks waiting for certification.
	executedBufferSize = 64
	// maxCommitBatch bounds the number of blocks committed under one certificate.
	maxCommitBatch = 16
)

// Node connects all the components and orchestrates their work.
type Node struct {
	*service.BaseService

	conf    config.Config
	nodeKey *key.NodeKey

	Store       store.Store
	Engine      execution.Engine
	Buffer      *block.BufferManager
	Mempool     *mempool.Mempool
	Coordinator *execstate.Coordinator
	P2P         *p2p.Client

	stage     *persist.Stage
	gossiper  *p2p.EpochChangeGossiper
	certifier *soloCertifier
	rpcServer *server.Server
	metrics   *Metrics
	logger    log.Logger

	// tip of the ordered chain, owned by the proposal loop once running
	tipID     types.Hash
	tipNumber uint64

	executedCh chan *types.Block
	commitCh   chan persist.Request
}

// New creates a node on top of kv. The node key signs certificates and
// identifies the node on the p2p network; p2p is disabled when the listen
// address is empty.
func New(
	conf config.Config,
	engine execution.Engine,
	kv ds.Batching,
	nodeKey *key.NodeKey,
	metricsProvider MetricsProvider,
	logger log.Logger,
) (*Node, error) {
	if engine == nil {
		return nil, errors.New("execution engine is required")
	}
	if metricsProvider == nil {
		metricsProvider = DefaultMetricsProvider(conf.Instrumentation)
	}
	metrics := metricsProvider(conf.ChainID)

	coord, err := execstate.NewCoordinator(execstate.Config{
		GasCap:          conf.Node.GasCap,
		ResultCacheSize: conf.Node.ResultCacheSize,
	}, logger.With("module", "execstate"), metrics.ExecState)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	n := &Node{
		conf:        conf,
		nodeKey:     nodeKey,
		Store:       store.New(store.NewPrefixKV(kv, mainPrefix)),
		Engine:      engine,
		Buffer:      block.NewBufferManager(conf.Node.Retention, logger.With("module", "block"), metrics.Block),
		Mempool:     mempool.NewMempool(logger.With("module", "mempool"), metrics.Mempool),
		Coordinator: coord,
		metrics:     metrics,
		logger:      logger,
		executedCh:  make(chan *types.Block, executedBufferSize),
		commitCh:    make(chan persist.Request),
	}

	if conf.P2P.ListenAddress != "" {
		n.P2P, err = p2p.NewClient(conf, nodeKey, store.NewPrefixKV(kv, p2pPrefix), logger, metrics.P2P)
		if err != nil {
			return nil, err
		}
	}

	n.certifier = newSoloCertifier(conf.Node.EpochLength, nodeKey)
	n.rpcServer = server.NewServer(&backend{n: n}, conf.RPC, logger)
	n.BaseService = service.NewBaseService(logger, "Node", n)
	return n, nil
}

// Run recovers the node state from the store and runs every loop until ctx is
// done or one of them fails.
func (n *Node) Run(ctx context.Context) (err error) {
	if err := n.recover(ctx); err != nil {
		return fmt.Errorf("failed to recover node state: %w", err)
	}

	services := []service.Service{
		service.NewBaseService(n.logger, "Ingest", service.Func(n.ingestLoop)),
		service.NewBaseService(n.logger, "Proposer", service.Func(n.proposalLoop)),
		service.NewBaseService(n.logger, "Executor", service.Func(n.executionLoop)),
		service.NewBaseService(n.logger, "Certifier", service.Func(n.certificationLoop)),
		service.NewBaseService(n.logger, "Committer", service.Func(n.commitLoop)),
		n.rpcServer,
	}

	var sender persist.EpochChangeSender
	if n.P2P != nil {
		n.Logger.Info("starting P2P client")
		if err := n.P2P.Start(ctx); err != nil {
			return fmt.Errorf("error while starting P2P client: %w", err)
		}
		n.gossiper, err = p2p.NewEpochChangeGossiper(
			n.P2P.PubSub(),
			n.P2P.Host().ID(),
			n.conf.ChainID,
			n.onEpochChange,
			n.logger.With("module", "epoch"),
			n.metrics.P2P,
		)
		if err != nil {
			return multierr.Append(fmt.Errorf("failed to join epoch change topic: %w", err), n.P2P.Close())
		}
		sender = n.gossiper
		services = append(services, service.NewBaseService(n.logger, "EpochGossip", n.gossiper))
	}
	n.stage = persist.NewStage(&ledgerCommitter{n: n}, sender, n.logger.With("module", "persist"), n.metrics.Persist)

	services = append(services, n.instrumentationServices()...)

	defer func() {
		err = multierr.Append(err, n.stop())
	}()
	n.Logger.Info("node started", "height", n.Buffer.LatestCommittedNumber(), "tip", n.tipNumber)
	err = service.RunGroup(ctx, services...)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return err
}

func (n *Node) stop() error {
	n.Logger.Info("halting node...")
	var err error
	if n.gossiper != nil {
		err = multierr.Append(err, n.gossiper.Close())
	}
	if n.P2P != nil {
		err = multierr.Append(err, n.P2P.Close())
	}
	if err != nil {
		n.Logger.Error("errors while stopping node", "errors", err)
	}
	return err
}

// Backend returns the HTTP surface of the node.
func (n *Node) Backend() server.Backend {
	return &backend{n: n}
}

func (n *Node) onEpochChange(ctx context.Context, from peer.ID, proof *types.EpochChangeProof) {
	data, err := proof.MarshalBinary()
	if err != nil {
		n.Logger.Error("failed to encode received epoch change", "error", err)
		return
	}
	if err := n.Store.SetMetadata(ctx, lastEpochChangeKey, data); err != nil {
		n.Logger.Error("failed to store received epoch change", "error", err)
		return
	}
	n.Logger.Info("stored epoch change from peer", "peer", from, "epoch", proof.Epoch())
}
