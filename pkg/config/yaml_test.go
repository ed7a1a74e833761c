package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYamlConfigOperations(t *testing.T) {
	testCases := []struct {
		name     string
		setup    func(t *testing.T, dir string) *Config
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "Write and read custom config values",
			setup: func(t *testing.T, dir string) *Config {
				cfg := DefaultConfig
				cfg.RootDir = dir
				cfg.P2P.Seeds = "/ip4/10.0.0.1/tcp/7676/p2p/peer1,/ip4/10.0.0.2/tcp/7676/p2p/peer2"
				cfg.Node.ProposalInterval = DurationWrapper{250 * time.Millisecond}
				cfg.Node.EpochLength = 32

				require.NoError(t, WriteYamlConfig(cfg))

				return &cfg
			},
			validate: func(t *testing.T, cfg *Config) {
				require.Equal(t, DefaultConfig.P2P.ListenAddress, cfg.P2P.ListenAddress)
				require.Equal(t, "/ip4/10.0.0.1/tcp/7676/p2p/peer1,/ip4/10.0.0.2/tcp/7676/p2p/peer2", cfg.P2P.Seeds)
				require.Equal(t, 250*time.Millisecond, cfg.Node.ProposalInterval.Duration)
				require.Equal(t, uint64(32), cfg.Node.EpochLength)
			},
		},
		{
			name: "Initialize default config values",
			setup: func(t *testing.T, dir string) *Config {
				cfg := DefaultConfig
				cfg.RootDir = dir

				require.NoError(t, WriteYamlConfig(cfg))

				return &cfg
			},
			validate: func(t *testing.T, cfg *Config) {
				require.Equal(t, DefaultConfig.P2P.ListenAddress, cfg.P2P.ListenAddress)
				require.Equal(t, DefaultConfig.P2P.Seeds, cfg.P2P.Seeds)
				require.Equal(t, DefaultConfig.Node, cfg.Node)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tempDir := t.TempDir()

			tc.setup(t, tempDir)

			cmd := &cobra.Command{Use: "test"}
			AddFlags(cmd)
			AddGlobalFlags(cmd, "")
			args := []string{"--home=" + tempDir}
			require.NoError(t, cmd.ParseFlags(args))

			cfg, err := LoadNodeConfig(cmd, "")
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			tc.validate(t, &cfg)

			fromFile, err := ReadYaml(tempDir)
			require.NoError(t, err)
			tc.validate(t, &fromFile)
		})
	}
}

func TestWriteYamlConfigComments(t *testing.T) {
	cfg := DefaultConfig
	cfg.RootDir = t.TempDir()
	require.NoError(t, WriteYamlConfig(cfg))

	data, err := os.ReadFile(ConfigPath(cfg.RootDir))
	require.NoError(t, err)
	assert.Contains(t, string(data), "How often a block is proposed")
	assert.Contains(t, string(data), "proposal_interval:")
	assert.NotContains(t, string(data), cfg.RootDir)
}

func TestReadYamlMissing(t *testing.T) {
	_, err := ReadYaml(t.TempDir())
	require.ErrorIs(t, err, ErrReadYaml)

	_, err = ReadYaml("")
	require.ErrorIs(t, err, ErrReadYaml)
}

func TestEnsureRoot(t *testing.T) {
	dir := t.TempDir() + "/nested/root"
	require.NoError(t, EnsureRoot(dir))
	for _, sub := range []string{dir, dir + "/" + DefaultConfigDir, dir + "/" + DefaultDataDir} {
		info, err := os.Stat(sub)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	require.Error(t, EnsureRoot(""))
}
