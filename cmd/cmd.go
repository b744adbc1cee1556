package cmd

import (
	"github.com/named-data/ndnrpc/bridge"
	"github.com/named-data/ndnrpc/std/utils"
	"github.com/named-data/ndnrpc/tools"
	"github.com/named-data/ndnrpc/tools/keys"
	"github.com/spf13/cobra"
)

const banner = `
             _
  _ __   __| |_ __  _ __ _ __   ___
 | '_ \ / _  | '_ \| '__| '_ \ / __|
 | | | | (_| | | | | |  | |_) | (__
 |_| |_|\__,_|_| |_|_|  | .__/ \___|
                        |_|
Named Data Networking gRPC Bridge
`

var CmdNDNRpc = &cobra.Command{
	Use:     "ndnrpc",
	Short:   "Named Data Networking gRPC Bridge",
	Long:    banner[1:],
	Version: utils.Version,
}

func init() {
	cobra.EnableCommandSorting = false
	CmdNDNRpc.Root().CompletionOptions.HiddenDefaultCmd = true
	CmdNDNRpc.PersistentFlags().BoolP("help", "h", false, "Print usage")
	CmdNDNRpc.PersistentFlags().Lookup("help").Hidden = true

	CmdNDNRpc.AddGroup(&cobra.Group{ID: "daemons", Title: "Daemons"})
	CmdNDNRpc.AddCommand(cmdBridge())

	CmdNDNRpc.AddGroup(&cobra.Group{ID: "keys", Title: "Security Tools"})
	CmdNDNRpc.AddCommand(keys.CmdKeys())

	CmdNDNRpc.AddGroup(&cobra.Group{ID: "tools", Title: "Debug Tools"})
	CmdNDNRpc.AddCommand(tools.CmdCall())
}

func cmdBridge() *cobra.Command {
	cmdBridge := &cobra.Command{
		Use:   "bridge",
		Short: "NDN-gRPC Bridge",
		Long: `NDN-gRPC Bridge

Serves gRPC methods under NDN name prefixes, and exposes NDN names
to gRPC clients through a gateway.`,
		GroupID: "daemons",
	}

	cmdBridge.AddGroup(&cobra.Group{ID: "run", Title: "Bridge Daemon"})
	cmdBridge.AddCommand(bridge.CmdBridge)

	return cmdBridge
}
