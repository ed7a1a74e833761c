package main

import (
	"fmt"
	"os"

	cmds "github.com/rollkit/bridge/cmd/bridged/cmd"
	bridgecmd "github.com/rollkit/bridge/pkg/cmd"
)

func main() {
	// Initiate the root command
	rootCmd := cmds.RootCmd

	// Add subcommands to the root command
	rootCmd.AddCommand(
		bridgecmd.NewRunNodeCmd(cmds.AppName),
		bridgecmd.VersionCmd,
		bridgecmd.NetInfoCmd,
		bridgecmd.StoreUnsafeCleanCmd,
		bridgecmd.InitCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		// Print to stderr and exit with error
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
