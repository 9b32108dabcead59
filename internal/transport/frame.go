// Package transport frames packets over a TCP stream: a 2-byte little-endian
// length prefix followed by the encoded packet.
package transport

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the length of the frame prefix
	HeaderSize = 2

	// MaxPayload is the largest payload a frame can carry
	MaxPayload = 0xFFFF
)

// Frame prefixes payload with its length. Payloads over MaxPayload are a
// programming error.
func Frame(payload []byte) []byte {
	if len(payload) > MaxPayload {
		panic(fmt.Sprintf("transport: payload of %d bytes exceeds frame limit %d", len(payload), MaxPayload))
	}

	frame := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint16(frame, uint16(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame
}

// ScanFrame extracts the first complete frame payload from buffer. ok is false
// while buffer does not hold a whole frame; rest holds the unprocessed bytes.
func ScanFrame(buffer []byte) (payload []byte, rest []byte, ok bool) {
	if len(buffer) < HeaderSize {
		// Incomplete header
		return nil, buffer, false
	}

	size := int(binary.LittleEndian.Uint16(buffer))
	if len(buffer) < HeaderSize+size {
		// Incomplete payload, wait for more data
		return nil, buffer, false
	}

	return buffer[HeaderSize : HeaderSize+size], buffer[HeaderSize+size:], true
}
