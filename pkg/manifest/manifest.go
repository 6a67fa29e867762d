// Package manifest implements the signed file manifest (C2): a filename,
// total size, and ordered list of chunk ids, optionally signed by the
// sender's long-term identity.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/openshare-go/openshare/pkg/codec/cborcanon"
	"github.com/openshare-go/openshare/pkg/identity"
	"github.com/openshare-go/openshare/pkg/protoerr"
)

// Manifest describes a file as an ordered sequence of content-addressed
// chunks, plus an optional Ed25519 signature over its own canonical
// encoding.
type Manifest struct {
	Filename     string   `cbor:"filename"`
	Size         uint64   `cbor:"size"`
	ChunkHashes  []string `cbor:"chunk_hashes"`
	SenderPubKey []byte   `cbor:"sender_pubkey,omitempty"`
	SenderSig    []byte   `cbor:"sender_sig,omitempty"`
}

// BuildFromFile constructs a Manifest from the file at path, splitting it
// into fixed chunkSize windows and hashing each with SHA-256. The filename
// is the basename of path, normalized to Unicode NFC so the same display
// name produces identical signed bytes on every platform.
func BuildFromFile(path string, chunkSize int) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindIo, "open source file", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindIo, "stat source file", err)
	}

	m, err := BuildFromReader(f, filepath.Base(path), chunkSize)
	if err != nil {
		return nil, err
	}
	m.Size = uint64(info.Size())
	return m, nil
}

// BuildFromReader constructs a Manifest by reading all of r in chunkSize
// windows. It is the basis BuildFromFile and tests build on directly.
func BuildFromReader(r io.Reader, filename string, chunkSize int) (*Manifest, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("manifest: chunk size must be positive, got %d", chunkSize)
	}

	m := &Manifest{
		Filename:    norm.NFC.String(filepath.Base(filename)),
		ChunkHashes: []string{},
	}

	buf := make([]byte, chunkSize)
	var total uint64
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			sum := sha256.Sum256(buf[:n])
			m.ChunkHashes = append(m.ChunkHashes, hex.EncodeToString(sum[:]))
			total += uint64(n)
		}
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, protoerr.Wrap(protoerr.KindIo, "read source data", err)
		}
	}

	m.Size = total
	return m, nil
}

// canonicalBytes returns the canonical CBOR encoding of the manifest with
// SenderSig cleared to absent, the exact bytes signatures cover.
func (m *Manifest) canonicalBytes() ([]byte, error) {
	clone := *m
	clone.SenderSig = nil
	return cborcanon.Marshal(&clone)
}

// Sign signs the manifest under id, setting SenderPubKey and SenderSig.
func (m *Manifest) Sign(id *identity.Identity) error {
	m.SenderPubKey = append([]byte(nil), id.PublicKey...)
	m.SenderSig = nil

	data, err := m.canonicalBytes()
	if err != nil {
		return fmt.Errorf("manifest: canonical encode for signing: %w", err)
	}
	m.SenderSig = id.Sign(data)
	return nil
}

// Verify checks the manifest's embedded signature against its own embedded
// public key.
func (m *Manifest) Verify() error {
	if len(m.SenderSig) == 0 || len(m.SenderPubKey) == 0 {
		return protoerr.New(protoerr.KindMissingSignature, "manifest has no signature or public key")
	}
	return m.VerifyWith(m.SenderPubKey)
}

// VerifyWith checks the manifest's signature against the supplied pubkey,
// ignoring any embedded SenderPubKey.
func (m *Manifest) VerifyWith(pubkey []byte) error {
	if len(m.SenderSig) != 64 {
		return protoerr.New(protoerr.KindMalformedSignature, "signature is not 64 bytes")
	}
	if len(pubkey) != 32 {
		return protoerr.New(protoerr.KindMalformedSignature, "public key is not 32 bytes")
	}

	data, err := m.canonicalBytes()
	if err != nil {
		return fmt.Errorf("manifest: canonical encode for verification: %w", err)
	}
	if !identity.Verify(pubkey, data, m.SenderSig) {
		return protoerr.New(protoerr.KindInvalidSignature, "signature does not verify")
	}
	return nil
}

// Summary returns a short human-readable description, used only for
// diagnostic/progress output — never part of the wire protocol.
func (m *Manifest) Summary() string {
	return fmt.Sprintf("%s (%d bytes, %d chunks)", m.Filename, m.Size, len(m.ChunkHashes))
}
