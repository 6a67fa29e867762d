package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/openshare-go/openshare/pkg/chunkstore"
	"github.com/openshare-go/openshare/pkg/codec/cborcanon"
	"github.com/openshare-go/openshare/pkg/identity"
	"github.com/openshare-go/openshare/pkg/manifest"
	"github.com/openshare-go/openshare/pkg/protoerr"
	"github.com/openshare-go/openshare/pkg/session"
)

// Receiver drives the receiving side of a transfer: Idle -> Handshaking ->
// ManifestRecv -> ChunkRecv -> Assemble -> Done, with any step
// transitioning to Failed.
type Receiver struct {
	ID    *identity.Identity
	Store chunkstore.Store

	// PeerPubKey, if set, is verified against the initiator's handshake
	// signature. Leave nil to accept any initiator.
	PeerPubKey []byte

	state State
}

// NewReceiver returns a Receiver in state Idle.
func NewReceiver(id *identity.Identity, store chunkstore.Store) *Receiver {
	return &Receiver{ID: id, Store: store, state: StateIdle}
}

// State returns the receiver's current state.
func (r *Receiver) State() State { return r.state }

// Receive runs the full receiver protocol over conn and materializes the
// transferred file under outputDir. It aborts immediately on the first
// chunk mismatch rather than logging and continuing, since assembly would
// fail regardless once a chunk is dropped.
func (r *Receiver) Receive(conn session.Duplex, outputDir string) (*manifest.Manifest, error) {
	r.state = StateHandshaking
	sess, err := session.ResponderHandshake(conn, r.ID, r.PeerPubKey)
	if err != nil {
		r.state = StateFailed
		return nil, err
	}

	r.state = StateManifestRecv
	manifestBytes, err := sess.ReadEncrypted(conn)
	if err != nil {
		r.state = StateFailed
		return nil, err
	}

	var m manifest.Manifest
	if err := cborcanon.Unmarshal(manifestBytes, &m); err != nil {
		r.state = StateFailed
		return nil, protoerr.Wrap(protoerr.KindInvalidSignature, "decode manifest", err)
	}
	if err := m.Verify(); err != nil {
		r.state = StateFailed
		return nil, err
	}
	if err := validateFilename(m.Filename); err != nil {
		r.state = StateFailed
		return nil, err
	}

	r.state = StateChunkRecv
	for _, expected := range m.ChunkHashes {
		data, err := sess.ReadEncrypted(conn)
		if err != nil {
			r.state = StateFailed
			return nil, err
		}

		sum := sha256.Sum256(data)
		got := hex.EncodeToString(sum[:])
		if got != expected {
			r.state = StateFailed
			return nil, protoerr.New(protoerr.KindChunkMismatch,
				"received chunk hashes to "+got+", expected "+expected)
		}

		storedID, err := r.Store.Put(data)
		if err != nil {
			r.state = StateFailed
			return nil, protoerr.Wrap(protoerr.KindIo, "store chunk "+expected, err)
		}
		if storedID != expected {
			r.state = StateFailed
			return nil, protoerr.New(protoerr.KindChunkMismatch,
				"store assigned id "+storedID+" to a chunk matching "+expected)
		}
	}

	r.state = StateAssemble
	if err := r.assemble(&m, outputDir); err != nil {
		r.state = StateFailed
		return nil, err
	}

	r.state = StateDone
	return &m, nil
}

func (r *Receiver) assemble(m *manifest.Manifest, outputDir string) error {
	outPath := filepath.Join(outputDir, m.Filename)
	f, err := os.Create(outPath)
	if err != nil {
		return protoerr.Wrap(protoerr.KindIo, "create output file", err)
	}
	defer f.Close()

	for _, chunkHash := range m.ChunkHashes {
		data, ok, err := r.Store.Get(chunkHash)
		if err != nil {
			return protoerr.Wrap(protoerr.KindIo, "read chunk "+chunkHash+" for assembly", err)
		}
		if !ok {
			return protoerr.New(protoerr.KindMissingChunk, "chunk "+chunkHash+" absent from store during assembly")
		}
		if _, err := f.Write(data); err != nil {
			return protoerr.Wrap(protoerr.KindIo, "write chunk "+chunkHash+" to output", err)
		}
	}
	return nil
}

func validateFilename(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return protoerr.New(protoerr.KindInvalidSignature, "manifest filename is not a bare file name: "+name)
	}
	return nil
}
