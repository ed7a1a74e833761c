package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rollkit/bridge/pkg/config"
)

const (
	// AppName is the name of the application, the name of the command, and the name of the home directory.
	AppName = "bridged"
)

func init() {
	config.AddGlobalFlags(RootCmd, AppName)
}

// RootCmd is the root command for the bridge node.
var RootCmd = &cobra.Command{
	Use:   AppName,
	Short: "Bridged orders transactions into blocks, executes them and persists the certified results.",
}
