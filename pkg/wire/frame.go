// Package wire implements the length-prefixed framing that every byte on
// the transfer transport is wrapped in: a big-endian u32 length followed by
// exactly that many bytes of payload.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/openshare-go/openshare/pkg/constants"
)

// ErrFrameTooLarge is returned when a frame's declared length exceeds
// constants.MaxFrameSize. It is checked before any payload allocation.
var ErrFrameTooLarge = errors.New("wire: frame too large")

// ErrUnexpectedEOF is returned when the stream ends before a declared
// frame (length prefix or payload) has been fully read. The caller MUST
// treat the underlying stream as broken; there is no retry.
var ErrUnexpectedEOF = errors.New("wire: unexpected EOF mid-frame")

// WriteFrame writes payload as a single frame: be_u32(len(payload)) ||
// payload. It does not buffer; callers that need fewer syscalls should wrap
// w in a *bufio.Writer and flush it themselves.
func WriteFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r. It reads exactly four length-prefix
// bytes, rejects anything declaring more than constants.MaxFrameSize before
// allocating a buffer, then reads exactly that many payload bytes.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("wire: read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > constants.MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("wire: read frame payload: %w", err)
	}
	return payload, nil
}
