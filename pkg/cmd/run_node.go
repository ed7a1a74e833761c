package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	ds "github.com/ipfs/go-datastore"
	"github.com/spf13/cobra"

	"github.com/rollkit/bridge/core/execution"
	"github.com/rollkit/bridge/node"
	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/p2p/key"
	"github.com/rollkit/bridge/pkg/store"
)

// shutdownTimeout bounds the wait for the node to stop after a signal.
const shutdownTimeout = 5 * time.Second

// OpenDatastore opens the node datastore: badger on disk, or badger in memory
// when the configuration asks for it.
func OpenDatastore(cfg config.Config, appName string) (ds.Batching, error) {
	if cfg.InMemory {
		return store.NewDefaultInMemoryKVStore()
	}
	return store.NewDefaultKVStore(cfg.RootDir, cfg.DBPath, appName)
}

// StartNode handles the node startup logic
func StartNode(
	logger log.Logger,
	cmd *cobra.Command,
	engine execution.Engine,
	datastore ds.Batching,
	nodeKey *key.NodeKey,
	nodeConfig config.Config,
) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	metrics := node.DefaultMetricsProvider(nodeConfig.Instrumentation)

	// Create and start the node
	bridgeNode, err := node.New(nodeConfig, engine, datastore, nodeKey, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	// Run the node with graceful shutdown
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("node panicked: %v", r)
				logger.Error("Recovered from panic in node", "panic", r)
				select {
				case errCh <- err:
				default:
					logger.Error("Error channel full", "error", err)
				}
			}
		}()

		err := bridgeNode.Run(ctx)
		select {
		case errCh <- err:
		default:
			logger.Error("Error channel full", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		logger.Info("shutting down node...")
		cancel()
	case <-ctx.Done():
		logger.Info("shutting down node...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("node error", "error", err)
			return err
		}
		return nil
	}

	// Wait for node to finish shutting down
	select {
	case <-time.After(shutdownTimeout):
		logger.Info("Node shutdown timed out")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error during shutdown", "error", err)
			return err
		}
	}

	return nil
}

// NewRunNodeCmd returns the command that starts a node backed by the in-process
// dummy execution engine.
func NewRunNodeCmd(appName string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"node", "run"},
		Short:   "Run the bridge node",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeConfig, err := ParseConfig(cmd)
			if err != nil {
				return err
			}

			logger := SetupLogger(nodeConfig.Log)

			if err := config.EnsureRoot(nodeConfig.RootDir); err != nil {
				return err
			}
			if _, err := os.Stat(config.ConfigPath(nodeConfig.RootDir)); errors.Is(err, os.ErrNotExist) {
				if err := config.WriteYamlConfig(nodeConfig); err != nil {
					return err
				}
			}

			nodeKey, err := key.LoadOrGenNodeKey(NodeKeyPath(nodeConfig.RootDir))
			if err != nil {
				return fmt.Errorf("failed to load node key: %w", err)
			}

			datastore, err := OpenDatastore(nodeConfig, appName)
			if err != nil {
				return fmt.Errorf("failed to open datastore: %w", err)
			}
			defer func() {
				if err := datastore.Close(); err != nil {
					logger.Error("failed to close datastore", "error", err)
				}
			}()

			return StartNode(logger, cmd, execution.NewDummyEngine(), datastore, nodeKey, nodeConfig)
		},
	}
	config.AddFlags(cmd)
	return cmd
}
