package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"battleship/internal/board"
	"battleship/internal/coord"
)

// PacketType identifies the payload carried by a Packet
type PacketType string

// Packet types
const (
	TypeError          PacketType = "ERROR"
	TypeMessage        PacketType = "MESSAGE"
	TypeFire           PacketType = "FIRE"
	TypeFireResponse   PacketType = "FIRE_RESPONSE"
	TypeYourTurn       PacketType = "YOUR_TURN"
	TypeOpponentsTurn  PacketType = "OPPONENTS_TURN"
	TypeSetClientShips PacketType = "SET_CLIENT_SHIPS"
	TypeYouWin         PacketType = "YOU_WIN"
	TypeYouLose        PacketType = "YOU_LOSE"
	TypeTimedOut       PacketType = "TIMED_OUT"
	TypeFin            PacketType = "FIN"
)

var knownTypes = map[PacketType]bool{
	TypeError: true, TypeMessage: true, TypeFire: true, TypeFireResponse: true,
	TypeYourTurn: true, TypeOpponentsTurn: true, TypeSetClientShips: true,
	TypeYouWin: true, TypeYouLose: true, TypeTimedOut: true, TypeFin: true,
}

// Known reports whether t is part of the protocol
func (t PacketType) Known() bool {
	return knownTypes[t]
}

// Packet is the unit exchanged between server and client
type Packet struct {
	Type PacketType `json:"type"`
	Data string     `json:"data"`
}

// NewPacket creates a packet with an optional payload
func NewPacket(t PacketType, data ...string) Packet {
	return Packet{Type: t, Data: strings.Join(data, "")}
}

// ErrorPacket is returned by receivers when a frame cannot be decoded
func ErrorPacket(reason string) Packet {
	return Packet{Type: TypeError, Data: reason}
}

func (p Packet) String() string {
	if p.Data == "" {
		return string(p.Type)
	}
	return fmt.Sprintf("%s(%s)", p.Type, p.Data)
}

// Payload errors
var (
	ErrMalformedFireEvent = errors.New("malformed fire event")
	ErrMalformedLayout    = errors.New("malformed ship layout")
)

// FireEvent is the "<coord>=<result>" payload of FIRE and FIRE_RESPONSE packets
type FireEvent struct {
	Target coord.Point
	Result board.FireResult
}

// String encodes the event as carried on the wire
func (e FireEvent) String() string {
	return e.Target.Label() + "=" + e.Result.String()
}

// FirePacket builds a FIRE or FIRE_RESPONSE packet carrying the event
func FirePacket(t PacketType, e FireEvent) Packet {
	return Packet{Type: t, Data: e.String()}
}

// ParseFireEvent decodes "<coord>=<result>"
func ParseFireEvent(data string) (FireEvent, error) {
	label, result, ok := strings.Cut(data, "=")
	if !ok {
		return FireEvent{}, fmt.Errorf("%w: %q", ErrMalformedFireEvent, data)
	}

	target, err := coord.Parse(label)
	if err != nil {
		return FireEvent{}, fmt.Errorf("%w: %v", ErrMalformedFireEvent, err)
	}
	r, err := board.ParseFireResult(result)
	if err != nil {
		return FireEvent{}, fmt.Errorf("%w: %v", ErrMalformedFireEvent, err)
	}

	return FireEvent{Target: target, Result: r}, nil
}

// ParseFireTarget decodes the payload of a FIRE packet sent by the client, which
// carries only the coordinate. A trailing "=<result>" is tolerated and ignored.
func ParseFireTarget(data string) (coord.Point, error) {
	label, _, _ := strings.Cut(data, "=")
	return coord.Parse(label)
}

// ShipsPacket serializes a fleet layout into a SET_CLIENT_SHIPS packet
func ShipsPacket(layout [][]coord.Point) (Packet, error) {
	if layout == nil {
		layout = [][]coord.Point{}
	}
	b, err := json.Marshal(layout)
	if err != nil {
		return Packet{}, fmt.Errorf("failed to marshal ship layout: %w", err)
	}
	return Packet{Type: TypeSetClientShips, Data: string(b)}, nil
}

// ParseShips decodes a SET_CLIENT_SHIPS payload
func ParseShips(data string) ([][]coord.Point, error) {
	var layout [][]coord.Point
	if err := json.Unmarshal([]byte(data), &layout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLayout, err)
	}
	return layout, nil
}
