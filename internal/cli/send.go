package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openshare-go/openshare/pkg/chunkstore"
	"github.com/openshare-go/openshare/pkg/identity"
	"github.com/openshare-go/openshare/pkg/transfer"
)

func init() {
	sendCmd.Flags().StringVar(&sendIdentityPath, "identity", defaultIdentityPath(), "Path to this device's identity file")
	sendCmd.Flags().StringVar(&sendTransportName, "transport", "", "Transport to use: tcp or quic (overrides config)")
	rootCmd.AddCommand(sendCmd)
}

var (
	sendIdentityPath  string
	sendTransportName string
)

var sendCmd = &cobra.Command{
	Use:   "send FILE ADDRESS",
	Short: "Send a file to a peer at ADDRESS",
	Args:  cobra.ExactArgs(2),
	RunE:  runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	filePath, addr := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sendTransportName != "" {
		cfg.Listen.Transport = sendTransportName
	}

	id, err := identity.LoadOrGenerate(sendIdentityPath)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	store := chunkstore.NewMemoryStore()
	m, err := ingestFile(filePath, cfg.Listen.ChunkSize, id, store)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", filePath, err)
	}
	fmt.Fprintf(os.Stderr, "sending %s to %s\n", m.Summary(), addr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t := resolveTransport(cfg.Listen.Transport)
	conn, err := t.Dial(ctx, addr, clientTLSConfig())
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	sender := transfer.NewSender(id, store)
	if err := sender.Send(conn, m); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	fmt.Fprintln(os.Stderr, "transfer complete")
	return nil
}
