package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// flagPrefix is stripped from flag names before they are bound to config keys.
	flagPrefix = "bridge."

	// Base configuration flags

	// FlagRootDir is a flag for specifying the root directory
	FlagRootDir = "home"
	// FlagDBPath is a flag for specifying the database path
	FlagDBPath = "bridge.db_path"
	// FlagChainID is a flag for specifying the chain ID
	FlagChainID = "bridge.chain_id"
	// FlagInMemory is a flag for keeping all state in memory
	FlagInMemory = "bridge.in_memory"

	// Node configuration flags

	// FlagProposalInterval is a flag for specifying how often a block is proposed
	FlagProposalInterval = "bridge.node.proposal_interval"
	// FlagMaxBlockTxns is a flag for specifying the maximum number of transactions per block
	FlagMaxBlockTxns = "bridge.node.max_block_txns"
	// FlagGasCap is a flag for specifying the cumulative gas limit per block
	FlagGasCap = "bridge.node.gas_cap"
	// FlagRetention is a flag for specifying how many committed blocks stay in memory
	FlagRetention = "bridge.node.retention"
	// FlagResultCacheSize is a flag for specifying the execution result cache size
	FlagResultCacheSize = "bridge.node.result_cache_size"
	// FlagEpochLength is a flag for specifying the number of blocks per epoch
	FlagEpochLength = "bridge.node.epoch_length"
	// FlagIngestBatchSize is a flag for specifying how many transactions are moved to the mempool at once
	FlagIngestBatchSize = "bridge.node.ingest_batch_size"

	// P2P configuration flags

	// FlagP2PListenAddress is a flag for specifying the P2P listen address
	FlagP2PListenAddress = "bridge.p2p.listen_address"
	// FlagP2PSeeds is a flag for specifying the P2P seeds
	FlagP2PSeeds = "bridge.p2p.seeds"

	// Instrumentation configuration flags

	// FlagPrometheus is a flag for enabling Prometheus metrics
	FlagPrometheus = "bridge.instrumentation.prometheus"
	// FlagPrometheusListenAddr is a flag for specifying the Prometheus listen address
	FlagPrometheusListenAddr = "bridge.instrumentation.prometheus_listen_addr"
	// FlagMaxOpenConnections is a flag for specifying the maximum number of open connections
	FlagMaxOpenConnections = "bridge.instrumentation.max_open_connections"
	// FlagPprof is a flag for enabling pprof profiling endpoints for runtime debugging
	FlagPprof = "bridge.instrumentation.pprof"
	// FlagPprofListenAddr is a flag for specifying the pprof listen address
	FlagPprofListenAddr = "bridge.instrumentation.pprof_listen_addr"

	// Logging configuration flags

	// FlagLogLevel is a flag for specifying the log level
	FlagLogLevel = "bridge.log.level"
	// FlagLogFormat is a flag for specifying the log format
	FlagLogFormat = "bridge.log.format"
	// FlagLogTrace is a flag for enabling stack traces in error logs
	FlagLogTrace = "bridge.log.trace"

	// RPC configuration flags

	// FlagRPCAddress is a flag for specifying the RPC server address
	FlagRPCAddress = "bridge.rpc.address"
	// FlagRPCPort is a flag for specifying the RPC server port
	FlagRPCPort = "bridge.rpc.port"
)

// DurationWrapper is a wrapper for time.Duration that implements encoding.TextMarshaler and encoding.TextUnmarshaler
// needed for YAML marshalling/unmarshalling especially for time.Duration
type DurationWrapper struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler to format the duration as text
func (d DurationWrapper) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler to parse the duration from text
func (d *DurationWrapper) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Config stores the bridge configuration.
type Config struct {
	// Base configuration
	RootDir  string `mapstructure:"-" yaml:"-" comment:"Root directory where bridge files are located"`
	DBPath   string `mapstructure:"db_path" yaml:"db_path" comment:"Path inside the root directory where the database is located"`
	ChainID  string `mapstructure:"chain_id" yaml:"chain_id" comment:"Chain ID accepted by the node"`
	InMemory bool   `mapstructure:"in_memory" yaml:"in_memory" comment:"Keep all state in memory. Nothing survives a restart."`

	// Node specific configuration
	Node NodeConfig `mapstructure:"node" yaml:"node"`

	// P2P configuration
	P2P P2PConfig `mapstructure:"p2p" yaml:"p2p"`

	// RPC configuration
	RPC RPCConfig `mapstructure:"rpc" yaml:"rpc"`

	// Instrumentation configuration
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation" yaml:"instrumentation"`

	// Logging configuration
	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// NodeConfig contains the block pipeline parameters.
type NodeConfig struct {
	ProposalInterval DurationWrapper `mapstructure:"proposal_interval" yaml:"proposal_interval" comment:"How often a block is proposed (duration). Examples: \"100ms\", \"1s\"."`
	MaxBlockTxns     int             `mapstructure:"max_block_txns" yaml:"max_block_txns" comment:"Maximum number of transactions drained from the mempool for one block."`
	GasCap           uint64          `mapstructure:"gas_cap" yaml:"gas_cap" comment:"Cumulative gas limit of the transactions in one block."`
	Retention        int             `mapstructure:"retention" yaml:"retention" comment:"Number of committed blocks kept in memory for result lookups. Use 0 to keep everything."`
	ResultCacheSize  int             `mapstructure:"result_cache_size" yaml:"result_cache_size" comment:"Number of execution results cached by the execution-state coordinator."`
	EpochLength      uint64          `mapstructure:"epoch_length" yaml:"epoch_length" comment:"Number of blocks per epoch for single-node operation. Use 0 to never end an epoch."`
	IngestBatchSize  int             `mapstructure:"ingest_batch_size" yaml:"ingest_batch_size" comment:"Maximum number of transactions moved from the ingestion queue into the mempool at once."`
}

// LogConfig contains all logging configuration parameters
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" comment:"Log level (debug, info, warn, error)"`
	Format string `mapstructure:"format" yaml:"format" comment:"Log format (text, json)"`
	Trace  bool   `mapstructure:"trace" yaml:"trace" comment:"Enable stack traces in error logs"`
}

// P2PConfig contains all peer-to-peer networking configuration parameters
type P2PConfig struct {
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address" comment:"Multiaddress to listen for incoming connections. Leave empty to disable epoch change gossip."`
	Seeds         string `mapstructure:"seeds" yaml:"seeds" comment:"Comma separated list of seed multiaddresses (with /p2p/<peer id>) to connect to"`
}

// RPCConfig contains all RPC server configuration parameters
type RPCConfig struct {
	Address string `mapstructure:"address" yaml:"address" comment:"Address to bind the RPC server to (host). Leave empty to disable the server."`
	Port    uint16 `mapstructure:"port" yaml:"port" comment:"Port to bind the RPC server to."`
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs error
	if c.Node.ProposalInterval.Duration <= 0 {
		errs = multierror.Append(errs, errors.New("node.proposal_interval must be positive"))
	}
	if c.Node.MaxBlockTxns <= 0 {
		errs = multierror.Append(errs, errors.New("node.max_block_txns must be positive"))
	}
	if c.Node.GasCap == 0 {
		errs = multierror.Append(errs, errors.New("node.gas_cap must be positive"))
	}
	if c.Node.Retention < 0 {
		errs = multierror.Append(errs, errors.New("node.retention can't be negative"))
	}
	if c.Node.IngestBatchSize <= 0 {
		errs = multierror.Append(errs, errors.New("node.ingest_batch_size must be positive"))
	}
	if c.Instrumentation != nil {
		if err := c.Instrumentation.ValidateBasic(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errs
}

// AddGlobalFlags registers the basic configuration flags that are common across applications
// This includes logging configuration and root directory settings
func AddGlobalFlags(cmd *cobra.Command, appName string) {
	cmd.PersistentFlags().String(FlagLogLevel, DefaultConfig.Log.Level, "Set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().String(FlagLogFormat, DefaultConfig.Log.Format, "Set the log format (text, json)")
	cmd.PersistentFlags().Bool(FlagLogTrace, DefaultConfig.Log.Trace, "Enable stack traces in error logs")
	cmd.PersistentFlags().String(FlagRootDir, DefaultRootDirWithName(appName), "Root directory for application data")
}

// AddFlags adds bridge specific configuration options to cobra Command.
func AddFlags(cmd *cobra.Command) {
	def := DefaultConfig

	// Add base flags
	cmd.Flags().String(FlagDBPath, def.DBPath, "path for the node database")
	cmd.Flags().String(FlagChainID, def.ChainID, "chain ID")
	cmd.Flags().Bool(FlagInMemory, def.InMemory, "keep all state in memory")

	// Node configuration flags
	cmd.Flags().Duration(FlagProposalInterval, def.Node.ProposalInterval.Duration, "interval between block proposals")
	cmd.Flags().Int(FlagMaxBlockTxns, def.Node.MaxBlockTxns, "maximum number of transactions per block")
	cmd.Flags().Uint64(FlagGasCap, def.Node.GasCap, "cumulative gas limit per block")
	cmd.Flags().Int(FlagRetention, def.Node.Retention, "committed blocks kept in memory (0 keeps everything)")
	cmd.Flags().Int(FlagResultCacheSize, def.Node.ResultCacheSize, "execution result cache size")
	cmd.Flags().Uint64(FlagEpochLength, def.Node.EpochLength, "blocks per epoch (0 never ends an epoch)")
	cmd.Flags().Int(FlagIngestBatchSize, def.Node.IngestBatchSize, "transactions moved from the ingestion queue at once")

	// P2P configuration flags
	cmd.Flags().String(FlagP2PListenAddress, def.P2P.ListenAddress, "P2P listen multiaddress")
	cmd.Flags().String(FlagP2PSeeds, def.P2P.Seeds, "Comma separated list of seed nodes to connect to")

	// RPC configuration flags
	cmd.Flags().String(FlagRPCAddress, def.RPC.Address, "RPC server address (host)")
	cmd.Flags().Uint16(FlagRPCPort, def.RPC.Port, "RPC server port")

	// Instrumentation configuration flags
	instrDef := DefaultInstrumentationConfig()
	cmd.Flags().Bool(FlagPrometheus, instrDef.Prometheus, "enable Prometheus metrics")
	cmd.Flags().String(FlagPrometheusListenAddr, instrDef.PrometheusListenAddr, "Prometheus metrics listen address")
	cmd.Flags().Int(FlagMaxOpenConnections, instrDef.MaxOpenConnections, "maximum number of simultaneous connections for metrics")
	cmd.Flags().Bool(FlagPprof, instrDef.Pprof, "enable pprof HTTP endpoint")
	cmd.Flags().String(FlagPprofListenAddr, instrDef.PprofListenAddr, "pprof HTTP server listening address")
}

// LoadNodeConfig loads the node configuration in the following order of precedence:
// 1. DefaultConfig (lowest priority)
// 2. YAML configuration file
// 3. Command line flags (highest priority)
func LoadNodeConfig(cmd *cobra.Command, home string) (Config, error) {
	// Create a new Viper instance to avoid conflicts with any global Viper
	v := viper.New()

	config := DefaultConfig
	config.Instrumentation = DefaultInstrumentationConfig()
	setDefaultsInViper(v, config)

	if home == "" {
		home, _ = cmd.Flags().GetString(FlagRootDir)
	}
	config.RootDir = home

	v.SetConfigName(ConfigBaseName)
	v.SetConfigType(ConfigExtension)
	if home != "" {
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, DefaultConfigDir))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) {
			return config, fmt.Errorf("error reading YAML configuration: %w", err)
		}
	}

	var flagErrs error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !strings.HasPrefix(f.Name, flagPrefix) {
			return
		}
		if err := v.BindPFlag(strings.TrimPrefix(f.Name, flagPrefix), f); err != nil {
			flagErrs = multierror.Append(flagErrs, err)
		}
	})
	if flagErrs != nil {
		return config, fmt.Errorf("unable to bind flags: %w", flagErrs)
	}

	if err := v.Unmarshal(&config, decoderOptions); err != nil {
		return config, fmt.Errorf("unable to decode configuration: %w", err)
	}
	config.RootDir = home
	return config, nil
}

func decoderOptions(c *mapstructure.DecoderConfig) {
	c.TagName = "mapstructure"
	c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		durationWrapperHook,
	)
}

func durationWrapperHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if t != reflect.TypeOf(DurationWrapper{}) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		duration, err := time.ParseDuration(v)
		if err != nil {
			return nil, err
		}
		return DurationWrapper{Duration: duration}, nil
	case time.Duration:
		return DurationWrapper{Duration: v}, nil
	}
	return data, nil
}

// setDefaultsInViper registers every default value under its mapstructure key.
func setDefaultsInViper(v *viper.Viper, config Config) {
	v.SetDefault("db_path", config.DBPath)
	v.SetDefault("chain_id", config.ChainID)
	v.SetDefault("in_memory", config.InMemory)

	v.SetDefault("node.proposal_interval", config.Node.ProposalInterval.String())
	v.SetDefault("node.max_block_txns", config.Node.MaxBlockTxns)
	v.SetDefault("node.gas_cap", config.Node.GasCap)
	v.SetDefault("node.retention", config.Node.Retention)
	v.SetDefault("node.result_cache_size", config.Node.ResultCacheSize)
	v.SetDefault("node.epoch_length", config.Node.EpochLength)
	v.SetDefault("node.ingest_batch_size", config.Node.IngestBatchSize)

	v.SetDefault("p2p.listen_address", config.P2P.ListenAddress)
	v.SetDefault("p2p.seeds", config.P2P.Seeds)

	v.SetDefault("rpc.address", config.RPC.Address)
	v.SetDefault("rpc.port", config.RPC.Port)

	v.SetDefault("instrumentation.prometheus", config.Instrumentation.Prometheus)
	v.SetDefault("instrumentation.prometheus_listen_addr", config.Instrumentation.PrometheusListenAddr)
	v.SetDefault("instrumentation.max_open_connections", config.Instrumentation.MaxOpenConnections)
	v.SetDefault("instrumentation.namespace", config.Instrumentation.Namespace)
	v.SetDefault("instrumentation.pprof", config.Instrumentation.Pprof)
	v.SetDefault("instrumentation.pprof_listen_addr", config.Instrumentation.PprofListenAddr)

	v.SetDefault("log.level", config.Log.Level)
	v.SetDefault("log.format", config.Log.Format)
	v.SetDefault("log.trace", config.Log.Trace)
}
