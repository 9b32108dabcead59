package protocol

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Codec translates between packets and the bytes carried inside a frame
type Codec interface {
	// Encode serializes a packet
	Encode(p Packet) ([]byte, error)

	// Decode parses a frame payload
	Decode(payload []byte) (Packet, error)
}

// JSONCodec encodes packets as {"type": "...", "data": "..."}
type JSONCodec struct{}

// Encode serializes a packet as JSON
func (JSONCodec) Encode(p Packet) ([]byte, error) {
	return json.Marshal(p)
}

// Decode parses a JSON packet. A payload without a type is rejected.
func (JSONCodec) Decode(payload []byte) (Packet, error) {
	if !utf8.Valid(payload) {
		return Packet{}, fmt.Errorf("packet is not valid UTF-8")
	}

	var p Packet
	if err := json.Unmarshal(payload, &p); err != nil {
		return Packet{}, fmt.Errorf("failed to unmarshal packet: %w", err)
	}
	if p.Type == "" {
		return Packet{}, fmt.Errorf("packet without type")
	}
	return p, nil
}
