package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/pkg/config"
)

func TestParseFlags(t *testing.T) {
	home := t.TempDir()
	args := []string{
		"start",
		"--home", home,
		"--" + config.FlagChainID, "flag-chain",
		"--" + config.FlagInMemory,
		"--" + config.FlagProposalInterval, "250ms",
		"--" + config.FlagMaxBlockTxns, "42",
		"--" + config.FlagGasCap, "123456",
		"--" + config.FlagRetention, "7",
		"--" + config.FlagEpochLength, "9",
		"--" + config.FlagP2PListenAddress, "/ip4/127.0.0.1/tcp/26656",
		"--" + config.FlagP2PSeeds, "seed1,seed2",
		"--" + config.FlagRPCAddress, "127.0.0.1",
		"--" + config.FlagRPCPort, "8080",
		"--" + config.FlagPrometheus,
		"--" + config.FlagLogLevel, "debug",
		"--" + config.FlagLogFormat, "json",
	}

	var parsed config.Config
	start := NewRunNodeCmd("bridged")
	start.RunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		parsed, err = ParseConfig(cmd)
		return err
	}

	_, err := executeCommand(newRootCmd(t, start), args...)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"RootDir", parsed.RootDir, home},
		{"ChainID", parsed.ChainID, "flag-chain"},
		{"InMemory", parsed.InMemory, true},
		{"ProposalInterval", parsed.Node.ProposalInterval.Duration, 250 * time.Millisecond},
		{"MaxBlockTxns", parsed.Node.MaxBlockTxns, 42},
		{"GasCap", parsed.Node.GasCap, uint64(123456)},
		{"Retention", parsed.Node.Retention, 7},
		{"EpochLength", parsed.Node.EpochLength, uint64(9)},
		{"ListenAddress", parsed.P2P.ListenAddress, "/ip4/127.0.0.1/tcp/26656"},
		{"Seeds", parsed.P2P.Seeds, "seed1,seed2"},
		{"RPCAddress", parsed.RPC.Address, "127.0.0.1"},
		{"RPCPort", parsed.RPC.Port, uint16(8080)},
		{"Prometheus", parsed.Instrumentation.Prometheus, true},
		{"LogLevel", parsed.Log.Level, "debug"},
		{"LogFormat", parsed.Log.Format, "json"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.got, tc.name)
	}
}

func TestParseFlagsInvalid(t *testing.T) {
	start := NewRunNodeCmd("bridged")
	start.RunE = func(cmd *cobra.Command, _ []string) error {
		_, err := ParseConfig(cmd)
		return err
	}

	_, err := executeCommand(newRootCmd(t, start), "start", "--home", t.TempDir(), "--"+config.FlagMaxBlockTxns, "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_block_txns")
}

func TestRunNodeCmdStopsOnCancel(t *testing.T) {
	home := t.TempDir()
	root := newRootCmd(t, NewRunNodeCmd("bridged"))
	root.SetArgs([]string{
		"start",
		"--home", home,
		"--" + config.FlagInMemory,
		"--" + config.FlagP2PListenAddress, "",
		"--" + config.FlagRPCAddress, "",
		"--" + config.FlagProposalInterval, "10ms",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(300*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("start command did not return after the context was cancelled")
	}

	assert.FileExists(t, config.ConfigPath(home))
	assert.FileExists(t, NodeKeyPath(home))
}
