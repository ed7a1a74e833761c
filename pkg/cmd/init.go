package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/p2p/key"
)

// NodeKeyFile is the name of the node key file in the config directory.
const NodeKeyFile = "node_key.json"

// NodeKeyPath returns the location of the node key under rootDir.
func NodeKeyPath(rootDir string) string {
	return filepath.Join(rootDir, config.DefaultConfigDir, NodeKeyFile)
}

// InitCmd initializes the home directory with a default config file and a node key.
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: fmt.Sprintf("Initialize a new %s file", config.ConfigYaml),
	Long:  fmt.Sprintf("This command initializes the home directory with a default %s file and a node key.", config.ConfigYaml),
	RunE: func(cmd *cobra.Command, args []string) error {
		homePath, err := cmd.Flags().GetString(config.FlagRootDir)
		if err != nil {
			return fmt.Errorf("error reading home flag: %w", err)
		}

		if homePath == "" {
			return fmt.Errorf("home path is required")
		}

		configFilePath := config.ConfigPath(homePath)
		if _, err := os.Stat(configFilePath); err == nil {
			return fmt.Errorf("%s file already exists in the specified directory", config.ConfigYaml)
		}

		if err := config.EnsureRoot(homePath); err != nil {
			return err
		}

		// Create a config with default values
		cfg := config.DefaultConfig
		cfg.RootDir = homePath
		cfg.Instrumentation = config.DefaultInstrumentationConfig()

		chainID, err := cmd.Flags().GetString(config.FlagChainID)
		if err != nil {
			return fmt.Errorf("error reading chain id flag: %w", err)
		}
		if chainID != "" {
			cfg.ChainID = chainID
		}

		if err := config.WriteYamlConfig(cfg); err != nil {
			return fmt.Errorf("error writing %s file: %w", config.ConfigYaml, err)
		}

		nodeKey, err := key.LoadOrGenNodeKey(NodeKeyPath(homePath))
		if err != nil {
			return fmt.Errorf("failed to create node key: %w", err)
		}

		cmd.Printf("Initialized %s file in %s\n", config.ConfigYaml, homePath)
		cmd.Printf("Node ID: %s\n", nodeKey.ID())
		return nil
	},
}

func init() {
	InitCmd.Flags().String(config.FlagChainID, config.DefaultConfig.ChainID, "chain ID")
}
