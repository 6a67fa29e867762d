package session

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	"github.com/openshare-go/openshare/pkg/constants"
	"github.com/openshare-go/openshare/pkg/identity"
	"github.com/openshare-go/openshare/pkg/protoerr"
	"github.com/openshare-go/openshare/pkg/wire"
)

// message is one 128-byte handshake message: x_pub(32) || nonce(32) ||
// signature(64).
type message struct {
	xPub [constants.PubKeyLen]byte
	nonce [constants.NonceLen]byte
	sig  [constants.SigLen]byte
}

func (m *message) bytes() []byte {
	out := make([]byte, 0, constants.HandshakeMessageLen)
	out = append(out, m.xPub[:]...)
	out = append(out, m.nonce[:]...)
	out = append(out, m.sig[:]...)
	return out
}

func parseMessage(b []byte) (*message, error) {
	if len(b) != constants.HandshakeMessageLen {
		return nil, protoerr.New(protoerr.KindHandshakeTooShort,
			"handshake message is not exactly 128 bytes")
	}
	var m message
	copy(m.xPub[:], b[0:32])
	copy(m.nonce[:], b[32:64])
	copy(m.sig[:], b[64:128])
	return &m, nil
}

// buildOwnMessage generates a fresh ephemeral X25519 keypair and a random
// nonce, signs x_pub||nonce under id, and returns the message along with
// the ephemeral secret (never transmitted, never reused).
func buildOwnMessage(id *identity.Identity) (msg *message, secret [32]byte, err error) {
	if _, err = rand.Read(secret[:]); err != nil {
		return nil, secret, err
	}

	var m message
	curve25519.ScalarBaseMult(&m.xPub, &secret)
	if _, err = rand.Read(m.nonce[:]); err != nil {
		return nil, secret, err
	}

	toSign := append(append([]byte(nil), m.xPub[:]...), m.nonce[:]...)
	sig := id.Sign(toSign)
	copy(m.sig[:], sig)

	return &m, secret, nil
}

// verifyPeerMessage checks the peer's signature over x_pub||nonce when a
// pre-known peer public key is supplied. Passing a nil peerPubKey skips
// verification and produces an unauthenticated session key, matching the
// reference implementation's behavior — callers that have a way to learn
// the peer's identity key out of band (a prior pairing, a discovery record)
// should always supply it.
func verifyPeerMessage(peerPubKey []byte, m *message) error {
	if peerPubKey == nil {
		return nil
	}
	toVerify := append(append([]byte(nil), m.xPub[:]...), m.nonce[:]...)
	if !identity.Verify(peerPubKey, toVerify, m.sig[:]) {
		return protoerr.New(protoerr.KindInvalidSignature, "peer handshake signature does not verify")
	}
	return nil
}

// InitiatorHandshake runs the initiator side of the handshake over rw:
// send our message first, then read the responder's. peerPubKey, if
// non-nil, authenticates the responder's signature.
func InitiatorHandshake(rw Duplex, id *identity.Identity, peerPubKey []byte) (*Session, error) {
	own, secret, err := buildOwnMessage(id)
	if err != nil {
		return nil, err
	}
	if err := wire.WriteFrame(rw, own.bytes()); err != nil {
		return nil, protoerr.Wrap(protoerr.KindIo, "send initiator handshake message", err)
	}

	peerBytes, err := wire.ReadFrame(rw)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindHandshakeTooShort, "read responder handshake message", err)
	}
	peer, err := parseMessage(peerBytes)
	if err != nil {
		return nil, err
	}
	if err := verifyPeerMessage(peerPubKey, peer); err != nil {
		return nil, err
	}

	return deriveSession(secret, peer.xPub, own.nonce, peer.nonce)
}

// ResponderHandshake runs the responder side of the handshake over rw:
// read the initiator's message first, then send ours. peerPubKey, if
// non-nil, authenticates the initiator's signature.
func ResponderHandshake(rw Duplex, id *identity.Identity, peerPubKey []byte) (*Session, error) {
	peerBytes, err := wire.ReadFrame(rw)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindHandshakeTooShort, "read initiator handshake message", err)
	}
	peer, err := parseMessage(peerBytes)
	if err != nil {
		return nil, err
	}
	if err := verifyPeerMessage(peerPubKey, peer); err != nil {
		return nil, err
	}

	own, secret, err := buildOwnMessage(id)
	if err != nil {
		return nil, err
	}
	if err := wire.WriteFrame(rw, own.bytes()); err != nil {
		return nil, protoerr.Wrap(protoerr.KindIo, "send responder handshake message", err)
	}

	return deriveSession(secret, peer.xPub, peer.nonce, own.nonce)
}
