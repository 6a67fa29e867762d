package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openshare-go/openshare/pkg/identity"
)

func init() {
	keygenCmd.Flags().StringVar(&keygenPath, "identity", defaultIdentityPath(), "Path to write the identity file")
	rootCmd.AddCommand(keygenCmd)
}

var keygenPath string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new device identity",
	Long:  `Generate an Ed25519 keypair and save it to disk for signing manifests and handshakes.`,
	RunE:  runKeygen,
}

func runKeygen(cmd *cobra.Command, args []string) error {
	id, err := identity.GenerateAndStore(keygenPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "identity written to %s (fingerprint %s)\n", keygenPath, id.Fingerprint())
	return nil
}
