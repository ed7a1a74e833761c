package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"

	"github.com/rollkit/bridge/pkg/config"
)

// executeCommand executes the given Cobra command with the provided args
// and captures its stdout/stderr.
func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// newRootCmd returns a root command carrying the global flags with sub attached.
func newRootCmd(t *testing.T, sub ...*cobra.Command) *cobra.Command {
	t.Helper()
	root := &cobra.Command{Use: "bridged"}
	config.AddGlobalFlags(root, "bridged")
	root.AddCommand(sub...)
	return root
}
