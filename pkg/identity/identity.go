// Package identity implements the long-term device identity: an Ed25519
// keypair used to sign manifests and handshake messages.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Identity is a long-term Ed25519 keypair owned by a device.
type Identity struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// Generate creates a fresh identity from the system CSPRNG.
func Generate() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	return &Identity{PublicKey: pub, PrivateKey: priv}, nil
}

// GenerateAndStore creates a fresh identity and persists it at path.
func GenerateAndStore(path string) (*Identity, error) {
	id, err := Generate()
	if err != nil {
		return nil, err
	}
	if err := id.Save(path); err != nil {
		return nil, err
	}
	return id, nil
}

// Load reads an identity from its raw 32-byte Ed25519 seed at path.
func Load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("load identity: expected %d-byte seed, got %d", ed25519.SeedSize, len(data))
	}
	priv := ed25519.NewKeyFromSeed(data)
	return &Identity{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

// LoadOrGenerate loads the identity at path, generating and persisting a
// fresh one if no file exists yet.
func LoadOrGenerate(path string) (*Identity, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return GenerateAndStore(path)
	}
	return Load(path)
}

// Save writes the identity's raw 32-byte Ed25519 seed to path, creating
// parent directories as needed. The file is not human-readable and must be
// kept secret.
func (id *Identity) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	seed := id.PrivateKey.Seed()
	if err := os.WriteFile(path, seed, 0o600); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// Sign produces a 64-byte Ed25519 signature over msg.
func (id *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.PrivateKey, msg)
}

// Verify reports whether sig is a valid Ed25519 signature over msg under pub.
// pub must be exactly 32 bytes.
func Verify(pub, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

// Fingerprint returns the first four bytes of the public key as lowercase hex,
// a short human-readable identifier for diagnostics.
func (id *Identity) Fingerprint() string {
	return hex.EncodeToString(id.PublicKey[:4])
}

// FullFingerprint returns the full public key as lowercase hex.
func (id *Identity) FullFingerprint() string {
	return hex.EncodeToString(id.PublicKey)
}
