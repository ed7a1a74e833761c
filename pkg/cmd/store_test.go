package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/pkg/config"
)

func TestUnsafeCleanDataDir(t *testing.T) {
	tempDir := t.TempDir()

	// Create some test files and directories
	subDir := filepath.Join(tempDir, "subdir")
	require.NoError(t, os.Mkdir(subDir, 0755))
	testFile := filepath.Join(tempDir, "testfile.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("test content"), 0o600))

	require.NoError(t, UnsafeCleanDataDir(tempDir))

	// Ensure the directory is empty
	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestUnsafeCleanMissingDir(t *testing.T) {
	require.NoError(t, UnsafeCleanDataDir(filepath.Join(t.TempDir(), "missing")))
}

func TestStoreUnsafeCleanCmd(t *testing.T) {
	home := t.TempDir()
	cfg := config.DefaultConfig
	cfg.RootDir = home
	cfg.Instrumentation = config.DefaultInstrumentationConfig()
	require.NoError(t, config.EnsureRoot(home))
	require.NoError(t, config.WriteYamlConfig(cfg))

	dataDir := filepath.Join(home, cfg.DBPath)
	testFile := filepath.Join(dataDir, "testfile.txt")
	require.NoError(t, os.WriteFile(testFile, []byte("test content"), 0o600))

	output, err := executeCommand(newRootCmd(t, StoreUnsafeCleanCmd), "unsafe-clean", "--home", home)
	require.NoError(t, err)
	require.Contains(t, output, "have been removed")

	require.NoFileExists(t, testFile)
	require.DirExists(t, dataDir)
	require.FileExists(t, config.ConfigPath(home))
}
