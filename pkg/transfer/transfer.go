// Package transfer implements the end-to-end sender/receiver state machines
// (C5) that compose the chunk store, manifest, and session packages into a
// complete file transfer over one connection.
package transfer

// State is a transfer state machine's current step. Sender and receiver
// share Idle, Handshaking, Done and Failed; each of the other states belongs
// to one role. Both transition to StateFailed on any error.
type State string

const (
	StateIdle         State = "Idle"
	StateHandshaking  State = "Handshaking"
	StateManifestSend State = "ManifestSend"
	StateManifestRecv State = "ManifestRecv"
	StateChunkSend    State = "ChunkSend"
	StateChunkRecv    State = "ChunkRecv"
	StateAssemble     State = "Assemble"
	StateDone         State = "Done"
	StateFailed       State = "Failed"
)
