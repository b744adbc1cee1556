package main

import (
	"os"

	"github.com/named-data/ndnrpc/cmd"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := cmd.CmdNDNRpc.Execute(); err != nil {
		os.Exit(1)
	}
}
