// Package keys manages the signing identities of the bridge key store.
package keys

import (
	"fmt"
	"io"
	"os"

	enc "github.com/named-data/ndnrpc/std/encoding"
	"github.com/named-data/ndnrpc/std/ndn"
	"github.com/named-data/ndnrpc/std/security"
	sig "github.com/named-data/ndnrpc/std/security/signer"
	"github.com/named-data/ndnrpc/std/utils"
	"github.com/named-data/ndnrpc/std/utils/toolutils"
	"github.com/spf13/cobra"
)

type ToolKeys struct {
	out io.Writer

	isDefault bool
}

func CmdKeys() *cobra.Command {
	t := &ToolKeys{out: os.Stdout}

	cmd := &cobra.Command{
		GroupID: "keys",
		Use:     "keys",
		Short:   "Manage signing identities",
		Long: `Manage the signing identities of a bridge key store.

Responses to Interests under a route prefix are signed with the key of the
route identity. Public keys exported as PEM can be loaded by a consumer
bridge as its trust store.`,
	}

	keygen := &cobra.Command{
		Use:   "keygen KEY-STORE IDENTITY",
		Short: "Generate an Ed25519 key for an identity",
		Args:  cobra.ExactArgs(2),
		Example: `  ndnrpc keys keygen /var/lib/ndnrpc/keys.db /svc/echo
  ndnrpc keys keygen --default /var/lib/ndnrpc/keys.db /svc`,
		Run: func(_ *cobra.Command, args []string) {
			exitOnError(t.Keygen(args[0], args[1]))
		},
	}
	keygen.Flags().BoolVar(&t.isDefault, "default", false, "Use as the fallback identity")
	cmd.AddCommand(keygen)

	cmd.AddCommand(&cobra.Command{
		Use:     "list KEY-STORE",
		Short:   "List the identities of a key store",
		Args:    cobra.ExactArgs(1),
		Example: `  ndnrpc keys list /var/lib/ndnrpc/keys.db`,
		Run: func(_ *cobra.Command, args []string) {
			exitOnError(t.List(args[0]))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "export KEY-STORE IDENTITY",
		Short:   "Print the public key of an identity as PEM",
		Args:    cobra.ExactArgs(2),
		Example: `  ndnrpc keys export /var/lib/ndnrpc/keys.db /svc/echo >> trust.pem`,
		Run: func(_ *cobra.Command, args []string) {
			exitOnError(t.Export(args[0], args[1]))
		},
	})

	return cmd
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// Keygen creates a key for identity, replacing any existing one, and
// prints its public key.
func (t *ToolKeys) Keygen(path string, identity string) error {
	name, err := enc.NameFromStr(identity)
	if err != nil || len(name) == 0 {
		return fmt.Errorf("invalid identity: %s", identity)
	}

	ks, err := security.OpenKeyStore(path)
	if err != nil {
		return fmt.Errorf("failed to open key store: %w", err)
	}
	defer ks.Close()

	signer, secret, err := sig.KeygenEd25519(name)
	if err != nil {
		return fmt.Errorf("failed to generate Ed25519 key: %w", err)
	}
	if err = ks.Insert(name, ndn.SignatureEd25519, secret, t.isDefault); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	pub, err := signer.Public()
	if err != nil {
		return err
	}
	t.out.Write(security.PemEncodePublic(name, pub))
	return nil
}

func (t *ToolKeys) List(path string) error {
	ks, err := security.OpenKeyStore(path)
	if err != nil {
		return fmt.Errorf("failed to open key store: %w", err)
	}
	defer ks.Close()

	p := toolutils.StatusPrinter{File: t.out, Padding: 10}
	for _, e := range ks.List() {
		fmt.Fprintln(t.out, "Identity:")
		p.Print("name", e.Owner)
		p.Print("type", e.Type)
		p.Print("default", utils.If(e.IsDefault, "yes", "no"))
	}
	return nil
}

func (t *ToolKeys) Export(path string, identity string) error {
	name, err := enc.NameFromStr(identity)
	if err != nil {
		return fmt.Errorf("invalid identity: %s", identity)
	}

	ks, err := security.OpenKeyStore(path)
	if err != nil {
		return fmt.Errorf("failed to open key store: %w", err)
	}
	defer ks.Close()

	for _, e := range ks.List() {
		if e.Owner.Equal(name) {
			t.out.Write(security.PemEncodePublic(e.Owner, e.Public))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ndn.ErrKeyNotFound, name)
}
