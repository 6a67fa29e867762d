package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/openshare-go/openshare/internal/config"
	"github.com/openshare-go/openshare/pkg/chunkstore"
	"github.com/openshare-go/openshare/pkg/identity"
	"github.com/openshare-go/openshare/pkg/manifest"
	"github.com/openshare-go/openshare/pkg/transport"
	"github.com/openshare-go/openshare/pkg/transport/quic"
	"github.com/openshare-go/openshare/pkg/transport/tcp"
)

func defaultIdentityPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".openshare-identity"
	}
	return filepath.Join(home, ".openshare", "identity")
}

func loadConfig() (config.Config, error) {
	return config.LoadConfig(config.DefaultConfigPath())
}

func resolveTransport(name string) transport.Transport {
	if name == "tcp" {
		return tcp.New()
	}
	return quic.New()
}

// ingestFile builds a signed manifest for path and stores every chunk it
// references in store, so a Sender can later satisfy every chunk hash it
// advertises. It reads path twice: once via manifest.BuildFromFile to
// compute the authoritative chunk hashes, once to copy that same data into
// store, so the two never disagree about how a chunk's id is derived.
func ingestFile(path string, chunkSize int, id *identity.Identity, store chunkstore.Store) (*manifest.Manifest, error) {
	m, err := manifest.BuildFromFile(path, chunkSize)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	for _, expected := range m.ChunkHashes {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			storedID, putErr := store.Put(buf[:n])
			if putErr != nil {
				return nil, fmt.Errorf("store chunk: %w", putErr)
			}
			if storedID != expected {
				return nil, fmt.Errorf("chunk id mismatch while ingesting %s: got %s, want %s", path, storedID, expected)
			}
		}
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("read %s: %w", path, readErr)
		}
	}

	if err := m.Sign(id); err != nil {
		return nil, err
	}
	return m, nil
}
