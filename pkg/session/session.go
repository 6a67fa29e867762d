// Package session implements the ephemeral handshake and AEAD session (C4):
// an X25519 key agreement authenticated by Ed25519 signatures, a
// HKDF-SHA256 derived session key, and XChaCha20-Poly1305 encrypted
// framing over that key.
package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/openshare-go/openshare/pkg/constants"
	"github.com/openshare-go/openshare/pkg/identity"
	"github.com/openshare-go/openshare/pkg/protoerr"
	"github.com/openshare-go/openshare/pkg/wire"
)

// Duplex is the capability set a Session needs from its transport: blocking
// reads and writes over one bidirectional byte stream. Any reliable ordered
// stream satisfies it — a TCP socket, a TLS connection, a QUIC stream, or an
// in-memory net.Pipe in tests.
type Duplex interface {
	io.Reader
	io.Writer
}

// Session is the in-memory AEAD context produced by a successful handshake.
// It owns the derived key material exclusively and is not persisted; it
// lives only for the lifetime of one connection.
type Session struct {
	aead cipher.AEAD
	key  [constants.SessionKeyLen]byte
}

// Key returns the 32-byte derived session key. Exposed for tests that check
// both peers of a handshake agree on it; callers of the transfer protocol
// have no other use for it.
func (s *Session) Key() [constants.SessionKeyLen]byte {
	return s.key
}

// SendEncrypted draws a fresh random XChaCha20-Poly1305 nonce, seals
// plaintext under empty associated data, and writes the result as a single
// C3 frame carrying nonce || ciphertext+tag.
func (s *Session) SendEncrypted(w io.Writer, plaintext []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("session: generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nil, nonce, plaintext, nil)
	frame := make([]byte, 0, len(nonce)+len(sealed))
	frame = append(frame, nonce...)
	frame = append(frame, sealed...)

	if err := wire.WriteFrame(w, frame); err != nil {
		return protoerr.Wrap(protoerr.KindIo, "write encrypted frame", err)
	}
	return nil
}

// ReadEncrypted reads one C3 frame, splits it into nonce and ciphertext,
// and opens it under the session's AEAD. Any failure — a too-short frame or
// a failed AEAD open — is fatal.
func (s *Session) ReadEncrypted(r io.Reader) ([]byte, error) {
	frame, err := wire.ReadFrame(r)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindIo, "read encrypted frame", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(frame) < nonceSize {
		return nil, protoerr.New(protoerr.KindDecryptionFailed, "encrypted frame shorter than nonce")
	}

	nonce, ciphertext := frame[:nonceSize], frame[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindDecryptionFailed, "AEAD open failed", err)
	}
	return plaintext, nil
}

// deriveSession runs the shared key-agreement tail common to both roles:
// reject an all-zero DH output, derive the session key via
// HKDF-SHA256(info = nonceInitiator || nonceResponder), and instantiate the
// AEAD.
func deriveSession(ourSecret, peerPublic, nonceInitiator, nonceResponder [constants.NonceLen]byte) (*Session, error) {
	shared, err := curve25519.X25519(ourSecret[:], peerPublic[:])
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindHandshakeTooShort, "X25519 key agreement failed", err)
	}
	if isAllZero(shared) {
		return nil, protoerr.New(protoerr.KindHandshakeTooShort, "X25519 output is the all-zero point")
	}

	info := append(append([]byte(nil), nonceInitiator[:]...), nonceResponder[:]...)
	kdf := hkdf.New(sha256.New, shared, nil, info)

	var key [constants.SessionKeyLen]byte
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return nil, fmt.Errorf("session: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("session: construct AEAD: %w", err)
	}

	return &Session{aead: aead, key: key}, nil
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
