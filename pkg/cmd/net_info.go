package cmd

import (
	"fmt"
	"net"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/rpc/client"
)

// NetInfoCmd returns information about the running node via RPC
var NetInfoCmd = &cobra.Command{
	Use:   "net-info",
	Short: "Get information about a running node via RPC",
	Long:  "This command retrieves the node information via RPC from a running node in the specified directory (or current directory if not specified).",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeConfig, err := ParseConfig(cmd)
		if err != nil {
			return fmt.Errorf("error parsing config: %w", err)
		}

		// Get RPC address from config
		if nodeConfig.RPC.Address == "" {
			return fmt.Errorf("RPC address not found in node configuration")
		}
		baseURL := "http://" + net.JoinHostPort(nodeConfig.RPC.Address, strconv.Itoa(int(nodeConfig.RPC.Port)))
		rpc := client.NewClient(baseURL)

		netInfo, err := rpc.NetInfo(cmd.Context())
		if err != nil {
			return fmt.Errorf("error calling net_info: %w", err)
		}
		watermarks, err := rpc.Watermarks(cmd.Context())
		if err != nil {
			return fmt.Errorf("error calling watermarks: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Node ID:\t%s\n", netInfo.NodeID)
		fmt.Fprintf(w, "Network:\t%s\n", netInfo.Network)
		for i, addr := range netInfo.ListenAddress {
			fmt.Fprintf(w, "Listen [%d]:\t%s/p2p/%s\n", i+1, addr, netInfo.ID)
		}
		fmt.Fprintf(w, "Peers:\t%d\n", len(netInfo.ConnectedPeers))
		for _, p := range netInfo.ConnectedPeers {
			fmt.Fprintf(w, "\t%s\n", p)
		}
		if watermarks.Committed != nil {
			fmt.Fprintf(w, "Committed:\t%d\n", *watermarks.Committed)
		}
		if watermarks.Executed != nil {
			fmt.Fprintf(w, "Executed:\t%d\n", *watermarks.Executed)
		}
		fmt.Fprintf(w, "Mempool:\t%d\n", watermarks.MempoolSize)
		return w.Flush()
	},
}

func init() {
	NetInfoCmd.Flags().String(config.FlagRPCAddress, config.DefaultConfig.RPC.Address, "RPC server address (host)")
	NetInfoCmd.Flags().Uint16(config.FlagRPCPort, config.DefaultConfig.RPC.Port, "RPC server port")
}
