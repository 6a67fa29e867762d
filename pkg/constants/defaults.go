// Package constants defines cross-cutting defaults shared by the core packages.
package constants

const (
	// DefaultChunkSize is the default window size used to split a file into
	// chunks, in bytes (256 KiB).
	DefaultChunkSize = 256 * 1024

	// DefaultListenPort is the default TCP/QUIC port for the transfer service.
	DefaultListenPort = 9876

	// DefaultServiceType is the mDNS service type advertised for discovery.
	DefaultServiceType = "_openshare._tcp.local."

	// MaxFrameSize is the hard upper bound on a single C3 frame's payload,
	// enforced before any allocation.
	MaxFrameSize = 10 * 1024 * 1024

	// PubKeyLen, NonceLen and SigLen are the fixed field widths of a
	// handshake message: x_pub(32) || nonce(32) || signature(64).
	PubKeyLen = 32
	NonceLen  = 32
	SigLen    = 64

	// HandshakeMessageLen is the exact wire length of one handshake message.
	HandshakeMessageLen = PubKeyLen + NonceLen + SigLen

	// SessionKeyLen is the length in bytes of the derived AEAD session key.
	SessionKeyLen = 32
)
