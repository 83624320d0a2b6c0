// Package transport implements TCP accept and the length-prefixed JSON
// frame wire format. Length prefixes are big-endian in both
// directions.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameBytes bounds a single frame's payload size; a declared
// length above this is a channel-fatal protocol error.
const DefaultMaxFrameBytes = 4 << 20

// ErrFrameTooLarge is returned when a frame's declared length exceeds the cap.
var ErrFrameTooLarge = errors.New("transport: frame exceeds maximum size")

// ReadFrame reads one length-prefixed frame: a 4-byte big-endian length
// followed by that many bytes of payload. A partial read of the length
// prefix or payload that hits io.EOF before any bytes are read is
// reported as io.EOF (end of stream); any other short read is a
// channel-fatal error.
func ReadFrame(r io.Reader, maxBytes uint32) ([]byte, error) {
	if maxBytes == 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes, cap %d", ErrFrameTooLarge, length, maxBytes)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// WriteFrame writes one length-prefixed frame using a big-endian length,
// matching ReadFrame's ingress framing (see package doc).
func WriteFrame(w io.Writer, payload []byte) error {
	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := w.Write(lengthBuf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}
