package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/log"
)

// ParseConfig is an helpers that loads the node configuration and validates it.
func ParseConfig(cmd *cobra.Command) (config.Config, error) {
	nodeConfig, err := config.LoadNodeConfig(cmd, "")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load node config: %w", err)
	}

	if err := nodeConfig.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("failed to validate node config: %w", err)
	}

	return nodeConfig, nil
}

// SetupLogger configures and returns a logger based on the provided configuration.
// It applies the following settings from the config:
//   - Log format (text or JSON)
//   - Log level (debug, info, warn, error)
//   - Stack traces for error logs
//
// The returned logger is already configured with the "module" field set to "main".
func SetupLogger(cfg config.LogConfig) log.Logger {
	var opts []log.Option
	if cfg.Format == "json" {
		opts = append(opts, log.OutputJSONOption())
	}

	// Default to info if parsing fails
	level, _ := log.ParseLevel(cfg.Level)
	opts = append(opts, log.LevelOption(level), log.TraceOption(cfg.Trace))

	return log.NewLogger(os.Stderr, opts...).With("module", "main")
}
