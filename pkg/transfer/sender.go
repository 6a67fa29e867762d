package transfer

import (
	"github.com/openshare-go/openshare/pkg/chunkstore"
	"github.com/openshare-go/openshare/pkg/codec/cborcanon"
	"github.com/openshare-go/openshare/pkg/identity"
	"github.com/openshare-go/openshare/pkg/manifest"
	"github.com/openshare-go/openshare/pkg/protoerr"
	"github.com/openshare-go/openshare/pkg/session"
)

// Sender drives the sending side of a transfer: Idle -> Handshaking ->
// ManifestSend -> ChunkSend -> Done, with any step transitioning to Failed.
type Sender struct {
	ID    *identity.Identity
	Store chunkstore.Store

	// PeerPubKey, if set, is verified against the responder's handshake
	// signature. Leave nil to accept any responder (unauthenticated,
	// matching the open question in the handshake design).
	PeerPubKey []byte

	state State
}

// NewSender returns a Sender in state Idle.
func NewSender(id *identity.Identity, store chunkstore.Store) *Sender {
	return &Sender{ID: id, Store: store, state: StateIdle}
}

// State returns the sender's current state.
func (s *Sender) State() State { return s.state }

// Send runs the full sender protocol over conn: sign m if unsigned, perform
// the initiator handshake, send the manifest, then send each chunk in
// manifest order. A chunk absent from the store is fatal ChunkMissing — it
// would otherwise desynchronize the receiver, which expects exactly one
// frame per chunk hash.
func (s *Sender) Send(conn session.Duplex, m *manifest.Manifest) error {
	s.state = StateIdle
	if len(m.SenderSig) == 0 {
		if err := m.Sign(s.ID); err != nil {
			s.state = StateFailed
			return err
		}
	}

	s.state = StateHandshaking
	sess, err := session.InitiatorHandshake(conn, s.ID, s.PeerPubKey)
	if err != nil {
		s.state = StateFailed
		return err
	}

	s.state = StateManifestSend
	manifestBytes, err := cborcanon.Marshal(m)
	if err != nil {
		s.state = StateFailed
		return protoerr.Wrap(protoerr.KindIo, "encode manifest", err)
	}
	if err := sess.SendEncrypted(conn, manifestBytes); err != nil {
		s.state = StateFailed
		return err
	}

	s.state = StateChunkSend
	for _, chunkHash := range m.ChunkHashes {
		data, ok, err := s.Store.Get(chunkHash)
		if err != nil {
			s.state = StateFailed
			return protoerr.Wrap(protoerr.KindIo, "read chunk "+chunkHash, err)
		}
		if !ok {
			s.state = StateFailed
			return protoerr.New(protoerr.KindChunkMissing, "chunk "+chunkHash+" missing from local store")
		}
		if err := sess.SendEncrypted(conn, data); err != nil {
			s.state = StateFailed
			return err
		}
	}

	s.state = StateDone
	return nil
}
