package bridge

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/utils"
	"github.com/named-data/ndnrpc/std/utils/toolutils"
	"github.com/spf13/cobra"
)

var CmdBridge = &cobra.Command{
	Use:     "run CONFIG-FILE",
	Short:   "Start the NDN-gRPC bridge",
	GroupID: "run",
	Version: utils.Version,
	Args:    cobra.ExactArgs(1),
	Run:     run,
}

// LoadConfig reads, overrides from the environment and validates a
// configuration file.
func LoadConfig(file string) (*Config, error) {
	config := DefaultConfig()
	if err := toolutils.ReadYaml(config, file); err != nil {
		return nil, err
	}
	config.ApplyEnv()
	if err := config.Parse(); err != nil {
		return nil, err
	}
	return config, nil
}

func run(cmd *cobra.Command, args []string) {
	config, err := LoadConfig(args[0])
	if err != nil {
		log.Fatal(nil, "Configuration error", "err", err)
		return
	}

	level, _ := log.ParseLevel(config.Log.Level)
	log.Default().SetLevel(level)

	bridge := NewBridge(config, Deps{})
	if err = bridge.Start(); err != nil {
		log.Fatal(bridge, "Failed to start bridge", "err", err)
		return
	}

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt, syscall.SIGTERM)
	receivedSig := <-sigChannel
	log.Info(bridge, "Received signal - exit", "signal", receivedSig)

	if err = bridge.Stop(); err != nil {
		log.Error(bridge, "Error during shutdown", "err", err)
	}
}
