// Package board holds one player's fleet: ship placement with bounds and overlap
// rules, fire resolution and sunk detection.
package board

import (
	"errors"
	"fmt"
	"strings"

	"battleship/internal/coord"
)

// FireResult is the outcome of a single shot
type FireResult int

const (
	Water FireResult = iota
	Hit
	Sunk
)

// String returns the wire token of the result
func (r FireResult) String() string {
	switch r {
	case Water:
		return "WATER"
	case Hit:
		return "HIT"
	case Sunk:
		return "SUNK"
	default:
		return fmt.Sprintf("FireResult(%d)", int(r))
	}
}

// IsHit reports whether the shot struck a ship
func (r FireResult) IsHit() bool {
	return r == Hit || r == Sunk
}

// ErrUnknownResult is returned for tokens other than WATER, HIT and SUNK
var ErrUnknownResult = errors.New("unknown fire result")

// ParseFireResult converts a wire token back into a FireResult
func ParseFireResult(s string) (FireResult, error) {
	switch strings.TrimSpace(s) {
	case "WATER":
		return Water, nil
	case "HIT":
		return Hit, nil
	case "SUNK":
		return Sunk, nil
	default:
		return Water, fmt.Errorf("%w %q", ErrUnknownResult, s)
	}
}

// Cell is one square occupied by a ship
type Cell struct {
	coord.Point
	IsShip     bool `json:"is_ship"`
	IsRevealed bool `json:"is_revealed"`
}

// Ship is a set of cells. A ship without cells is born sunk.
type Ship struct {
	Cells  []*Cell `json:"cells"`
	IsSunk bool    `json:"is_sunk"`
}

// Points returns the positions the ship occupies
func (s *Ship) Points() []coord.Point {
	points := make([]coord.Point, len(s.Cells))
	for i, c := range s.Cells {
		points[i] = c.Point
	}
	return points
}

func (s *Ship) updateSunk() {
	for _, c := range s.Cells {
		if !c.IsRevealed {
			s.IsSunk = false
			return
		}
	}
	s.IsSunk = true
}

type occupant struct {
	ship *Ship
	cell *Cell
}

// Board is one player's fleet on a width x height grid
type Board struct {
	width  int
	height int
	ships  []*Ship
	index  map[coord.Point]occupant
}

// New creates an empty board
func New(width, height int) *Board {
	return &Board{
		width:  width,
		height: height,
		index:  make(map[coord.Point]occupant),
	}
}

// Width returns the number of columns
func (b *Board) Width() int { return b.width }

// Height returns the number of rows
func (b *Board) Height() int { return b.height }

// InBounds reports whether p lies on the grid
func (b *Board) InBounds(p coord.Point) bool {
	return p.X >= 0 && p.X < b.width && p.Y >= 0 && p.Y < b.height
}

// Ships returns the placed ships in placement order
func (b *Board) Ships() []*Ship {
	return b.ships
}

// PlaceShip translates every template offset by origin. Cells off the grid or on
// top of an already placed ship are dropped; if nothing remains the ship is
// recorded as sunk with zero cells.
func (b *Board) PlaceShip(origin coord.Point, t Template) *Ship {
	ship := &Ship{}
	for _, offset := range t {
		p := origin.Add(offset)
		if !b.InBounds(p) {
			continue
		}
		if _, taken := b.index[p]; taken {
			continue
		}
		cell := &Cell{Point: p, IsShip: true}
		ship.Cells = append(ship.Cells, cell)
		b.index[p] = occupant{ship: ship, cell: cell}
	}
	if len(ship.Cells) == 0 {
		ship.IsSunk = true
	}

	b.ships = append(b.ships, ship)
	return ship
}

// AddShip records cells exactly as given, without bounds or overlap checks.
// The first ship to claim a position wins fire lookups for it.
func (b *Board) AddShip(points []coord.Point) *Ship {
	ship := &Ship{}
	for _, p := range points {
		cell := &Cell{Point: p, IsShip: true}
		ship.Cells = append(ship.Cells, cell)
		if _, taken := b.index[p]; !taken {
			b.index[p] = occupant{ship: ship, cell: cell}
		}
	}
	if len(ship.Cells) == 0 {
		ship.IsSunk = true
	}

	b.ships = append(b.ships, ship)
	return ship
}

// FireAt resolves a shot. Firing at the same cell twice reports the current
// state again; duplicate shots are not filtered here.
func (b *Board) FireAt(p coord.Point) FireResult {
	occ, ok := b.index[p]
	if !ok {
		return Water
	}

	occ.cell.IsRevealed = true
	occ.ship.updateSunk()
	if occ.ship.IsSunk {
		return Sunk
	}
	return Hit
}

// ShipAt reports whether a ship occupies p
func (b *Board) ShipAt(p coord.Point) bool {
	_, ok := b.index[p]
	return ok
}

// AllSunk is true when every ship is sunk, and vacuously for an empty board
func (b *Board) AllSunk() bool {
	for _, s := range b.ships {
		if !s.IsSunk {
			return false
		}
	}
	return true
}

// Layout returns the fleet as lists of cell positions, one list per ship
func (b *Board) Layout() [][]coord.Point {
	layout := make([][]coord.Point, len(b.ships))
	for i, s := range b.ships {
		layout[i] = s.Points()
	}
	return layout
}

// FromLayout builds a board trusting the layout as-is
func FromLayout(width, height int, layout [][]coord.Point) *Board {
	b := New(width, height)
	for _, ship := range layout {
		b.AddShip(ship)
	}
	return b
}

// FromLayoutValidated rebuilds a board applying the placement rules to every
// submitted cell, so out-of-bounds and overlapping cells are dropped.
func FromLayoutValidated(width, height int, layout [][]coord.Point) *Board {
	b := New(width, height)
	for _, ship := range layout {
		b.PlaceShip(coord.Point{}, Template(ship))
	}
	return b
}
