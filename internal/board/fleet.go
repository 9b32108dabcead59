package board

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"battleship/internal/coord"
)

// Template is a ship shape as offsets relative to its origin
type Template []coord.Point

// Fleet is the ordered list of ships each player places
type Fleet []Template

// DefaultFleet is a single cell, a three cell bar and a five cell plus
func DefaultFleet() Fleet {
	return Fleet{
		{coord.Pt(0, 0)},
		{coord.Pt(-1, 0), coord.Pt(0, 0), coord.Pt(1, 0)},
		{coord.Pt(-1, 0), coord.Pt(0, 0), coord.Pt(1, 0), coord.Pt(0, -1), coord.Pt(0, 1)},
	}
}

// ParseFleet reads "x,y x,y;x,y" where ships are separated by ';' and cells by
// whitespace
func ParseFleet(s string) (Fleet, error) {
	var fleet Fleet
	for _, shipSpec := range strings.Split(s, ";") {
		shipSpec = strings.TrimSpace(shipSpec)
		if shipSpec == "" {
			continue
		}
		var t Template
		for _, cellSpec := range strings.Fields(shipSpec) {
			parts := strings.Split(cellSpec, ",")
			if len(parts) != 2 {
				return nil, fmt.Errorf("bad fleet cell %q", cellSpec)
			}
			x, err := strconv.Atoi(parts[0])
			if err != nil {
				return nil, fmt.Errorf("bad fleet cell %q: %w", cellSpec, err)
			}
			y, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("bad fleet cell %q: %w", cellSpec, err)
			}
			t = append(t, coord.Pt(x, y))
		}
		fleet = append(fleet, t)
	}
	if len(fleet) == 0 {
		return nil, fmt.Errorf("empty fleet %q", s)
	}
	return fleet, nil
}

// Size returns the number of cells of the template
func (t Template) Size() int {
	return len(t)
}

// FitsAt reports whether every cell of t lands on the grid and on free water
func (b *Board) FitsAt(origin coord.Point, t Template) bool {
	for _, offset := range t {
		p := origin.Add(offset)
		if !b.InBounds(p) || b.ShipAt(p) {
			return false
		}
	}
	return true
}

// RandomOrigin picks an origin where t fits completely. It gives up after a
// bounded number of attempts and reports false.
func (b *Board) RandomOrigin(rng *rand.Rand, t Template) (coord.Point, bool) {
	for attempt := 0; attempt < 1000; attempt++ {
		origin := coord.Pt(rng.Intn(b.width), rng.Intn(b.height))
		if b.FitsAt(origin, t) {
			return origin, true
		}
	}
	return coord.Point{}, false
}
