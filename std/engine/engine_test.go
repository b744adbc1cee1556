package engine_test

import (
	"testing"

	"github.com/named-data/ndnrpc/std/engine"
	tu "github.com/named-data/ndnrpc/std/utils/testutils"
	"github.com/stretchr/testify/require"
)

func TestClientConfigEnv(t *testing.T) {
	tu.SetT(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NDN_CLIENT_TRANSPORT", "tcp://127.0.0.1:6363")
	require.Equal(t, "tcp://127.0.0.1:6363", engine.GetClientConfig().TransportUri)

	f := tu.NoErr(engine.NewFace(""))
	require.Equal(t, "face (stream-transport (tcp://127.0.0.1:6363))", f.String())

	_, err := engine.NewFace("bogus://x")
	require.Error(t, err)
}
