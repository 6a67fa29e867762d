package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openshare-go/openshare/pkg/chunkstore"
	"github.com/openshare-go/openshare/pkg/identity"
	"github.com/openshare-go/openshare/pkg/transfer"
)

func init() {
	receiveCmd.Flags().StringVar(&receiveIdentityPath, "identity", defaultIdentityPath(), "Path to this device's identity file")
	receiveCmd.Flags().StringVar(&receiveOutputDir, "out", ".", "Directory to write the received file to")
	receiveCmd.Flags().IntVar(&receivePort, "port", 0, "Port to listen on (overrides config)")
	receiveCmd.Flags().StringVar(&receiveTransportName, "transport", "", "Transport to use: tcp or quic (overrides config)")
	rootCmd.AddCommand(receiveCmd)
}

var (
	receiveIdentityPath  string
	receiveOutputDir     string
	receivePort          int
	receiveTransportName string
)

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Listen for and accept one incoming file transfer",
	RunE:  runReceive,
}

func runReceive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if receiveTransportName != "" {
		cfg.Listen.Transport = receiveTransportName
	}
	if receivePort != 0 {
		cfg.Listen.Port = receivePort
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	id, err := identity.LoadOrGenerate(receiveIdentityPath)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	t := resolveTransport(cfg.Listen.Transport)
	addr := fmt.Sprintf(":%d", cfg.Listen.Port)

	ctx := context.Background()
	listener, err := t.Listen(ctx, addr, selfSignedTLSConfig())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer listener.Close()
	fmt.Fprintf(os.Stderr, "listening on %s (%s), fingerprint %s\n", addr, t.Name(), id.Fingerprint())

	conn, err := listener.Accept(ctx)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()

	store, err := chunkstore.NewFilesystemStore(cfg.Storage.DataDir)
	if err != nil {
		return err
	}

	receiver := transfer.NewReceiver(id, store)
	m, err := receiver.Receive(conn, receiveOutputDir)
	if err != nil {
		return fmt.Errorf("receive failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "received %s\n", m.Summary())
	return nil
}

// selfSignedTLSConfig is a placeholder identity for the transport's TLS
// layer; the certificate does not authenticate the peer, and the session
// handshake run by the CLI is given no peer key, so it does not either.
func selfSignedTLSConfig() *tls.Config {
	cert, err := ephemeralSelfSignedCert()
	if err != nil {
		return &tls.Config{InsecureSkipVerify: true}
	}
	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: true,
	}
}
