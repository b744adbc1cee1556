package keys

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/named-data/ndnrpc/std/ndn"
	"github.com/named-data/ndnrpc/std/security"
	tu "github.com/named-data/ndnrpc/std/utils/testutils"
	"github.com/stretchr/testify/require"
)

func TestKeygenExport(t *testing.T) {
	tu.SetT(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.db")

	out := &bytes.Buffer{}
	tool := &ToolKeys{out: out}
	require.NoError(t, tool.Keygen(path, "/svc/echo"))
	generated := out.String()
	require.Contains(t, generated, "NDN PUBLIC KEY")

	tool.isDefault = true
	require.NoError(t, tool.Keygen(path, "/svc"))

	out.Reset()
	require.NoError(t, tool.Export(path, "/svc/echo"))
	require.Equal(t, generated, out.String())

	// exported keys load as a trust store
	pemFile := filepath.Join(dir, "trust.pem")
	require.NoError(t, os.WriteFile(pemFile, out.Bytes(), 0o644))
	trust := tu.NoErr(security.LoadTrustStore(pemFile))
	require.Equal(t, 1, trust.Len())

	ks := tu.NoErr(security.OpenKeyStore(path))
	defer ks.Close()
	entries := ks.List()
	require.Len(t, entries, 2)
	require.Equal(t, "/svc", entries[0].Owner.String())
	require.True(t, entries[0].IsDefault)
	require.False(t, entries[1].IsDefault)
	require.Equal(t, "/svc", ks.Signer().KeyName().String())

	err := tool.Export(path, "/missing")
	require.ErrorIs(t, err, ndn.ErrKeyNotFound)
}

func TestList(t *testing.T) {
	tu.SetT(t)
	path := filepath.Join(t.TempDir(), "keys.db")
	out := &bytes.Buffer{}
	tool := &ToolKeys{out: out}

	require.NoError(t, tool.List(path))
	require.Empty(t, out.String())

	require.NoError(t, tool.Keygen(path, "/svc/echo"))
	out.Reset()
	require.NoError(t, tool.List(path))
	require.Contains(t, out.String(), "      name=/svc/echo\n")
	require.Contains(t, out.String(), "   default=no\n")

	tool.isDefault = true
	require.NoError(t, tool.Keygen(path, "/svc/calc"))
	out.Reset()
	require.NoError(t, tool.List(path))
	require.Contains(t, out.String(), "   default=yes\n")
}

func TestKeygenInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")
	tool := &ToolKeys{out: &bytes.Buffer{}}
	require.Error(t, tool.Keygen(path, "/"))
	require.Error(t, tool.Keygen(path, "/a/unknown=x"))
	require.Error(t, tool.Keygen(filepath.Join(t.TempDir(), "no", "such", "dir", "keys.db"), "/a"))
}
