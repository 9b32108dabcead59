package session

import (
	"time"

	"battleship/internal/board"
	"battleship/internal/coord"
)

// ShipView is a detached copy of a ship
type ShipView struct {
	Cells []coord.Point `json:"cells"`
	Hits  []coord.Point `json:"hits"`
	Sunk  bool          `json:"sunk"`
}

// Snapshot is a point in time view of a session, safe to hand to other
// goroutines.
type Snapshot struct {
	SessionID string     `json:"session_id"`
	Role      Role       `json:"role"`
	State     string     `json:"state"`
	Phase     Phase      `json:"phase"`
	Turn      Role       `json:"turn,omitempty"`
	Message   string     `json:"message,omitempty"`
	Outcome   Outcome    `json:"outcome,omitempty"`
	Peer      string     `json:"peer,omitempty"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	FleetSize int        `json:"fleet_size"`
	Ships     []ShipView `json:"ships"`
	Shots     []Shot     `json:"shots"`
	StartedAt time.Time  `json:"started_at"`
}

// ShotsBy returns the journal entries fired by role
func (s Snapshot) ShotsBy(role Role) []Shot {
	var shots []Shot
	for _, shot := range s.Shots {
		if shot.By == role {
			shots = append(shots, shot)
		}
	}
	return shots
}

func shipViews(ships []*board.Ship) []ShipView {
	views := make([]ShipView, 0, len(ships))
	for _, ship := range ships {
		v := ShipView{Cells: []coord.Point{}, Hits: []coord.Point{}, Sunk: ship.IsSunk}
		for _, c := range ship.Cells {
			v.Cells = append(v.Cells, c.Point)
			if c.IsRevealed {
				v.Hits = append(v.Hits, c.Point)
			}
		}
		views = append(views, v)
	}
	return views
}
