package session

import (
	"time"

	"battleship/internal/board"
	"battleship/internal/coord"
)

// EventKind classifies session events
type EventKind string

const (
	EventState          EventKind = "state"
	EventShipPlaced     EventKind = "ship_placed"
	EventShipsSubmitted EventKind = "ships_submitted"
	EventShot           EventKind = "shot"
	EventMessage        EventKind = "message"
	EventFinished       EventKind = "finished"
)

// Outcome of a finished session, seen from the local side
type Outcome string

const (
	OutcomeWon        Outcome = "won"
	OutcomeLost       Outcome = "lost"
	OutcomeTimedOut   Outcome = "timed_out"
	OutcomeTerminated Outcome = "terminated"
	OutcomeFailed     Outcome = "failed"
)

// Shot is one entry of the shot journal
type Shot struct {
	Seq    int         `json:"seq"`
	By     Role        `json:"by"`
	Target coord.Point `json:"target"`
	Label  string      `json:"label"`
	Result string      `json:"result"`
	At     time.Time   `json:"at"`
}

func newShot(seq int, by Role, target coord.Point, result board.FireResult) Shot {
	return Shot{
		Seq:    seq,
		By:     by,
		Target: target,
		Label:  target.String(),
		Result: result.String(),
		At:     time.Now(),
	}
}

// Event is emitted on every observable change of a session
type Event struct {
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Kind      EventKind `json:"kind"`
	State     string    `json:"state,omitempty"`
	Message   string    `json:"message,omitempty"`
	Peer      string    `json:"peer,omitempty"`
	Shot      *Shot     `json:"shot,omitempty"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	StartedAt time.Time `json:"started_at"`
	At        time.Time `json:"at"`

	// Shots carries the whole journal on EventFinished
	Shots []Shot `json:"shots,omitempty"`
}

// Observer receives session events. Publish is called with the session lock
// held and must not block.
type Observer interface {
	Publish(e Event)
}

type nopObserver struct{}

func (nopObserver) Publish(Event) {}
