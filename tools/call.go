package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/named-data/ndnrpc/bridge"
	"github.com/named-data/ndnrpc/bridge/rpc"
	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/engine"
	"github.com/named-data/ndnrpc/std/log"
	"github.com/named-data/ndnrpc/std/security"
	"github.com/spf13/cobra"
)

// ToolCall expresses one request through a consumer-only bridge.
type ToolCall struct {
	face     string
	trust    string
	timeout  time.Duration
	noParams bool

	deps bridge.Deps
}

func (tc *ToolCall) String() string {
	return "call"
}

func (tc *ToolCall) run(_ *cobra.Command, args []string) {
	name, err := enc.NameFromStr(args[0])
	if err != nil || len(name) == 0 {
		log.Fatal(tc, "Invalid name", "name", args[0])
		return
	}

	var params []byte
	if !tc.noParams {
		if params, err = io.ReadAll(os.Stdin); err != nil {
			log.Fatal(tc, "Unable to read parameters", "err", err)
			return
		}
	}

	t1 := time.Now()
	res, err := tc.Call(name, params)
	if err != nil {
		st := rpc.ToStatus(err)
		fmt.Fprintf(os.Stderr, "Request failed: %s: %s\n", st.Code(), st.Message())
		os.Exit(1)
		return
	}
	t2 := time.Now()

	os.Stdout.Write(res)
	fmt.Fprintf(os.Stderr, "Response: %d bytes\n", len(res))
	fmt.Fprintf(os.Stderr, "Time taken: %s\n", t2.Sub(t1))
}

// Call starts a bridge without routes or gateway, expresses the request
// and stops the bridge.
func (tc *ToolCall) Call(name enc.Name, params []byte) ([]byte, error) {
	config := bridge.DefaultConfig()
	config.Bridge.Enabled = false
	config.Bridge.Face = tc.face
	if config.Bridge.Face == "" {
		config.Bridge.Face = engine.GetClientConfig().TransportUri
	}
	config.Pit.DefaultLifetimeMillis = int(tc.timeout.Milliseconds())
	config.Pit.SweepIntervalMillis = 100

	deps := tc.deps
	if deps.Face == nil {
		f, err := engine.NewFace(config.Bridge.Face)
		if err != nil {
			return nil, err
		}
		// give up quickly when no forwarder is running
		f.NewBackOff = func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), 2)
		}
		deps.Face = f
	}
	if deps.Trust == nil && tc.trust != "" {
		trust, err := security.LoadTrustStore(tc.trust)
		if err != nil {
			return nil, err
		}
		deps.Trust = trust
	}

	b := bridge.NewBridge(config, deps)
	if err := b.Start(); err != nil {
		return nil, err
	}
	defer b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
	defer cancel()
	return b.Express(ctx, name, params)
}
