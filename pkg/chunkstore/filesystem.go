package chunkstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FilesystemStore is the reference Store implementation: a chunk with id h
// lives at <root>/chunks/<h[0:2]>/<h>. The two-character prefix keeps
// directory fanout bounded on large stores; it is an implementation detail,
// not part of the wire protocol.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore returns a store rooted at root, creating the chunks
// directory if it does not already exist.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	chunksDir := filepath.Join(root, "chunks")
	if err := os.MkdirAll(chunksDir, 0o755); err != nil {
		return nil, fmt.Errorf("chunkstore: create chunks dir: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

// Put implements Store. The write is atomic: data lands in a temp file
// beside the final path and is renamed into place, so a concurrent or
// crashed writer can never make a partially written chunk visible.
func (s *FilesystemStore) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	id := hex.EncodeToString(sum[:])

	path := s.chunkPath(id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("chunkstore: create chunk dir: %w", err)
	}

	tmpPath := filepath.Join(dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("chunkstore: write temp chunk: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("chunkstore: rename chunk into place: %w", err)
	}
	return id, nil
}

// Get implements Store.
func (s *FilesystemStore) Get(id string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.chunkPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("chunkstore: read chunk %s: %w", id, err)
	}
	return data, true, nil
}

func (s *FilesystemStore) chunkPath(id string) string {
	prefix := id
	if len(id) >= 2 {
		prefix = id[:2]
	}
	return filepath.Join(s.root, "chunks", prefix, id)
}
