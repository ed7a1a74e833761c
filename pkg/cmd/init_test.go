package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/p2p/key"
)

func TestInitCmd(t *testing.T) {
	home := filepath.Join(t.TempDir(), "bridge")

	output, err := executeCommand(newRootCmd(t, InitCmd), "init", "--home", home, "--"+config.FlagChainID, "init-test")
	require.NoError(t, err)
	assert.Contains(t, output, "Node ID:")

	cfg, err := config.ReadYaml(home)
	require.NoError(t, err)
	assert.Equal(t, "init-test", cfg.ChainID)
	assert.DirExists(t, filepath.Join(home, config.DefaultDataDir))

	nodeKey, err := key.LoadNodeKey(NodeKeyPath(home))
	require.NoError(t, err)
	assert.Contains(t, output, nodeKey.ID())

	// a second init does not overwrite the existing config
	_, err = executeCommand(newRootCmd(t, InitCmd), "init", "--home", home)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
