package tools

import (
	"time"

	"github.com/spf13/cobra"
)

func CmdCall() *cobra.Command {
	tool := &ToolCall{timeout: 4000 * time.Millisecond}
	cmd := &cobra.Command{
		GroupID: "tools",
		Use:     "call NAME",
		Short:   "Express a request Interest and print the response",
		Long: `Express an Interest for NAME carrying the standard input as
ApplicationParameters, and write the reassembled response to stdout.
Application errors are printed as gRPC status codes.`,
		Args:    cobra.ExactArgs(1),
		Example: `  echo -n hello | ndnrpc call /svc/echo/1 > out.bin`,
		Run:     tool.run,
	}
	cmd.Flags().StringVar(&tool.face, "face", "", "forwarder URI, defaults to the client configuration")
	cmd.Flags().StringVar(&tool.trust, "trust", "", "PEM file of trusted public keys")
	cmd.Flags().DurationVarP(&tool.timeout, "timeout", "t", tool.timeout, "request timeout")
	cmd.Flags().BoolVar(&tool.noParams, "no-params", false, "do not read parameters from stdin")
	return cmd
}
