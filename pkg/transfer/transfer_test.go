package transfer

import (
	"bytes"
	"net"
	"os"
	"sync"
	"testing"

	"github.com/openshare-go/openshare/pkg/chunkstore"
	"github.com/openshare-go/openshare/pkg/identity"
	"github.com/openshare-go/openshare/pkg/manifest"
	"github.com/openshare-go/openshare/pkg/protoerr"
	"github.com/openshare-go/openshare/pkg/session"
)

func mustIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("identity.Generate failed: %v", err)
	}
	return id
}

func runTransfer(t *testing.T, data []byte, filename string, chunkSize int) (outputDir string, received *manifest.Manifest) {
	t.Helper()

	senderStore := chunkstore.NewMemoryStore()
	m, err := manifest.BuildFromReader(bytes.NewReader(data), filename, chunkSize)
	if err != nil {
		t.Fatalf("BuildFromReader failed: %v", err)
	}
	for _, chunk := range splitIntoChunks(data, chunkSize) {
		if _, err := senderStore.Put(chunk); err != nil {
			t.Fatalf("senderStore.Put failed: %v", err)
		}
	}

	senderID := mustIdentity(t)
	receiverID := mustIdentity(t)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	outputDir, err = os.MkdirTemp("", "transfer-test-out")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(outputDir) })

	receiverStore := chunkstore.NewMemoryStore()

	var wg sync.WaitGroup
	wg.Add(2)
	var sendErr, recvErr error
	go func() {
		defer wg.Done()
		sender := NewSender(senderID, senderStore)
		sendErr = sender.Send(clientConn, m)
	}()
	go func() {
		defer wg.Done()
		receiver := NewReceiver(receiverID, receiverStore)
		received, recvErr = receiver.Receive(serverConn, outputDir)
	}()
	wg.Wait()

	if sendErr != nil {
		t.Fatalf("Send failed: %v", sendErr)
	}
	if recvErr != nil {
		t.Fatalf("Receive failed: %v", recvErr)
	}
	return outputDir, received
}

func splitIntoChunks(data []byte, chunkSize int) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	return chunks
}

// Two fresh identities, an in-memory pipe, two stores: end-to-end
// transfer of a 17-byte file reconstructs it byte-identical.
func TestEndToEndSmallFile(t *testing.T) {
	data := []byte("Hello, OpenShare!")
	outputDir, m := runTransfer(t, data, "test.txt", 262144)

	got, err := os.ReadFile(outputDir + "/test.txt")
	if err != nil {
		t.Fatalf("failed to read reconstructed file: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("reconstructed file mismatch: got %q, want %q", got, data)
	}
	if len(m.ChunkHashes) != 1 {
		t.Errorf("expected 1 chunk hash, got %d", len(m.ChunkHashes))
	}
}

// A file spanning multiple chunks reconstructs byte-identical.
func TestEndToEndMultiChunkFile(t *testing.T) {
	const chunkSize = 32
	data := make([]byte, 2*chunkSize+1)
	for i := range data {
		data[i] = byte(i % 251)
	}

	outputDir, m := runTransfer(t, data, "multi.bin", chunkSize)

	got, err := os.ReadFile(outputDir + "/multi.bin")
	if err != nil {
		t.Fatalf("failed to read reconstructed file: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("reconstructed multi-chunk file does not match original")
	}
	if len(m.ChunkHashes) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(m.ChunkHashes))
	}
}

// Sender-side hazard fix: a chunk hash the local store cannot produce is
// fatal ChunkMissing, not a skipped warning.
func TestSenderFailsOnMissingChunk(t *testing.T) {
	senderStore := chunkstore.NewMemoryStore()
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	m := &manifest.Manifest{
		Filename:    "missing.bin",
		Size:        4,
		ChunkHashes: []string{"0000000000000000000000000000000000000000000000000000000000000000"},
	}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	responderID := mustIdentity(t)
	go func() {
		// answer the handshake as the responder, then drain whatever the
		// sender manages to write before failing, so none of Send's reads
		// or writes block forever.
		if _, err := session.ResponderHandshake(serverConn, responderID, nil); err != nil {
			return
		}
		buf := make([]byte, 4096)
		for {
			if _, err := serverConn.Read(buf); err != nil {
				return
			}
		}
	}()

	sender := NewSender(id, senderStore)
	err = sender.Send(clientConn, m)
	if !protoerr.Is(err, protoerr.KindChunkMissing) {
		t.Fatalf("Send with a missing chunk = %v, want KindChunkMissing", err)
	}
	if sender.State() != StateFailed {
		t.Errorf("sender state = %v, want StateFailed", sender.State())
	}
}

// substituteStore answers every Get with the same bytes, so a Sender
// transmits validly encrypted content that does not hash to the id the
// manifest lists.
type substituteStore struct {
	chunkstore.Store
	data []byte
}

func (s substituteStore) Get(id string) ([]byte, bool, error) {
	return s.data, true, nil
}

// A chunk mismatch aborts the receiver immediately
// rather than continuing to assembly.
func TestReceiverAbortsOnChunkMismatch(t *testing.T) {
	wrongChunk := []byte("not the expected content")
	senderStore := substituteStore{Store: chunkstore.NewMemoryStore(), data: wrongChunk}

	senderID := mustIdentity(t)
	receiverID := mustIdentity(t)

	m := &manifest.Manifest{
		Filename:    "mismatch.bin",
		Size:        uint64(len(wrongChunk)),
		ChunkHashes: []string{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
	}
	if err := m.Sign(senderID); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	outputDir, err := os.MkdirTemp("", "transfer-mismatch-test")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(outputDir)

	receiverStore := chunkstore.NewMemoryStore()

	var wg sync.WaitGroup
	wg.Add(2)
	var sendErr, recvErr error
	go func() {
		defer wg.Done()
		sender := NewSender(senderID, senderStore)
		sendErr = sender.Send(clientConn, m)
	}()
	go func() {
		defer wg.Done()
		receiver := NewReceiver(receiverID, receiverStore)
		_, recvErr = receiver.Receive(serverConn, outputDir)
	}()
	wg.Wait()

	_ = sendErr // sender believes it sent a valid chunk; only the receiver detects the mismatch
	if !protoerr.Is(recvErr, protoerr.KindChunkMismatch) {
		t.Fatalf("Receive on mismatched chunk = %v, want KindChunkMismatch", recvErr)
	}

	if _, err := os.Stat(outputDir + "/mismatch.bin"); err == nil {
		t.Error("output file should not exist after an aborted receive")
	}
}

func TestReceiverAcceptsManifestAutoSignedBySender(t *testing.T) {
	senderStore := chunkstore.NewMemoryStore()
	senderID := mustIdentity(t)
	receiverID := mustIdentity(t)

	data := []byte("content")
	m, err := manifest.BuildFromReader(bytes.NewReader(data), "f.bin", 1024)
	if err != nil {
		t.Fatalf("BuildFromReader failed: %v", err)
	}
	for _, chunk := range splitIntoChunks(data, 1024) {
		senderStore.Put(chunk)
	}
	// deliberately do not sign m before constructing the sender's raw send

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	outputDir, err := os.MkdirTemp("", "transfer-unsigned-test")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(outputDir)

	var wg sync.WaitGroup
	wg.Add(2)
	var recvErr error
	go func() {
		defer wg.Done()
		sender := NewSender(senderID, senderStore)
		// Sender.Send signs automatically if unsigned, so this case can
		// only be exercised by tampering after signing.
		sender.Send(clientConn, m)
	}()
	go func() {
		defer wg.Done()
		receiver := NewReceiver(receiverID, chunkstore.NewMemoryStore())
		_, recvErr = receiver.Receive(serverConn, outputDir)
	}()
	wg.Wait()

	if recvErr != nil {
		t.Errorf("expected Receive to succeed since Send auto-signs, got: %v", recvErr)
	}
}
