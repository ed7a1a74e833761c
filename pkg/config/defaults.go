package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultDirPerm is the default permissions used when creating directories.
	DefaultDirPerm = 0750

	// DefaultConfigDir is the default directory for configuration files (e.g. bridge.yaml).
	DefaultConfigDir = "config"

	// DefaultDataDir is the default directory for data files (e.g. database).
	DefaultDataDir = "data"

	// DefaultListenAddress is a default listen address for P2P client.
	DefaultListenAddress = "/ip4/0.0.0.0/tcp/7676"
	// Version is the current bridge version
	// Please keep updated with each new release
	Version = "0.1.0"
	// DefaultLogLevel is the default log level for the application
	DefaultLogLevel = "info"
)

// DefaultRootDir returns the default root directory for the bridge
func DefaultRootDir() string {
	return DefaultRootDirWithName("bridge")
}

// DefaultRootDirWithName returns the default root directory for an application,
// based on the app name and the user's home directory
func DefaultRootDirWithName(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "."+appName)
}

// DefaultConfig keeps default values of Config
var DefaultConfig = Config{
	RootDir:  DefaultRootDir(),
	DBPath:   DefaultDataDir,
	ChainID:  "bridge-local",
	InMemory: false,
	Node: NodeConfig{
		ProposalInterval: DurationWrapper{100 * time.Millisecond},
		MaxBlockTxns:     1000,
		GasCap:           1_000_000,
		Retention:        256,
		ResultCacheSize:  4096,
		EpochLength:      0,
		IngestBatchSize:  1024,
	},
	P2P: P2PConfig{
		ListenAddress: DefaultListenAddress,
		Seeds:         "",
	},
	RPC: RPCConfig{
		Address: "127.0.0.1",
		Port:    7331,
	},
	Instrumentation: DefaultInstrumentationConfig(),
	Log: LogConfig{
		Level:  DefaultLogLevel,
		Format: "text",
		Trace:  false,
	},
}
