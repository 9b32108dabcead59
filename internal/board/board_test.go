package board

import (
	"math/rand"
	"testing"

	"battleship/internal/coord"
)

func TestSingleCellShipScenario(t *testing.T) {
	b := New(10, 10)
	b.PlaceShip(coord.Pt(0, 0), Template{coord.Pt(0, 0)})

	target, err := coord.Parse("B2")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if r := b.FireAt(target); r != Water {
		t.Fatalf("expected WATER at B2, got %v", r)
	}

	target, _ = coord.Parse("A1")
	if r := b.FireAt(target); r != Sunk {
		t.Fatalf("expected SUNK at A1, got %v", r)
	}
	if !b.AllSunk() {
		t.Fatalf("expected every ship sunk")
	}
}

func TestPlaceShipInBounds(t *testing.T) {
	b := New(10, 10)
	plus := DefaultFleet()[2]

	ship := b.PlaceShip(coord.Pt(4, 4), plus)
	if len(ship.Cells) != plus.Size() {
		t.Fatalf("expected %d cells, got %d", plus.Size(), len(ship.Cells))
	}
	if ship.IsSunk {
		t.Fatalf("fresh ship should not be sunk")
	}
	for _, c := range ship.Cells {
		if !c.IsShip || c.IsRevealed {
			t.Fatalf("bad initial cell state %+v", c)
		}
	}
}

func TestPlaceShipDropsCells(t *testing.T) {
	b := New(10, 10)
	bar := DefaultFleet()[1]

	// left cell falls off the grid
	edge := b.PlaceShip(coord.Pt(0, 0), bar)
	if len(edge.Cells) != 2 {
		t.Fatalf("expected 2 cells at the edge, got %d", len(edge.Cells))
	}

	// the right edge is inclusive
	right := b.PlaceShip(coord.Pt(9, 9), Template{coord.Pt(0, 0)})
	if len(right.Cells) != 1 {
		t.Fatalf("expected (9,9) to be on the board")
	}

	// overlapping cells are dropped, not the whole ship
	overlap := b.PlaceShip(coord.Pt(1, 0), bar)
	if len(overlap.Cells) != 1 || overlap.Cells[0].Point != coord.Pt(2, 0) {
		t.Fatalf("expected only (2,0) to survive, got %v", overlap.Points())
	}
}

func TestPlaceShipAllRejected(t *testing.T) {
	b := New(10, 10)
	ship := b.PlaceShip(coord.Pt(-5, 20), DefaultFleet()[2])

	if len(ship.Cells) != 0 {
		t.Fatalf("expected no cells, got %d", len(ship.Cells))
	}
	if !ship.IsSunk {
		t.Fatalf("degenerate ship should be born sunk")
	}
	if !b.AllSunk() {
		t.Fatalf("board with only a degenerate ship should be all sunk")
	}
}

func TestEmptyBoardAllSunk(t *testing.T) {
	if !New(10, 10).AllSunk() {
		t.Fatalf("empty board should be vacuously sunk")
	}
}

func TestWaterNeverReveals(t *testing.T) {
	b := New(10, 10)
	b.PlaceShip(coord.Pt(5, 5), DefaultFleet()[2])

	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			p := coord.Pt(x, y)
			if b.ShipAt(p) {
				continue
			}
			if r := b.FireAt(p); r != Water {
				t.Fatalf("expected WATER at %v, got %v", p, r)
			}
		}
	}
	for _, s := range b.Ships() {
		for _, c := range s.Cells {
			if c.IsRevealed {
				t.Fatalf("water shots revealed %v", c.Point)
			}
		}
	}
}

func TestSunkOnlyOnLastCell(t *testing.T) {
	orders := [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}}
	for _, order := range orders {
		b := New(10, 10)
		ship := b.PlaceShip(coord.Pt(3, 3), DefaultFleet()[2])
		points := ship.Points()

		sunk := 0
		for i, idx := range order {
			r := b.FireAt(points[idx])
			if r == Sunk {
				sunk++
				if i != len(order)-1 {
					t.Fatalf("order %v: sunk early at shot %d", order, i)
				}
			} else if r != Hit {
				t.Fatalf("order %v: expected HIT, got %v", order, r)
			}
			if b.AllSunk() != (r == Sunk) {
				t.Fatalf("order %v: AllSunk out of step at shot %d", order, i)
			}
		}
		if sunk != 1 {
			t.Fatalf("order %v: expected exactly one SUNK, got %d", order, sunk)
		}
	}
}

func TestRefireReportsCurrentState(t *testing.T) {
	b := New(10, 10)
	b.PlaceShip(coord.Pt(1, 1), DefaultFleet()[1])

	if r := b.FireAt(coord.Pt(1, 1)); r != Hit {
		t.Fatalf("expected HIT, got %v", r)
	}
	if r := b.FireAt(coord.Pt(1, 1)); r != Hit {
		t.Fatalf("expected HIT again, got %v", r)
	}
}

func TestFromLayout(t *testing.T) {
	layout := [][]coord.Point{
		{coord.Pt(0, 0), coord.Pt(1, 0)},
		{coord.Pt(1, 0), coord.Pt(20, 20)},
	}

	trusted := FromLayout(10, 10, layout)
	if got := len(trusted.Ships()[1].Cells); got != 2 {
		t.Fatalf("trusted layout should keep every cell, got %d", got)
	}

	validated := FromLayoutValidated(10, 10, layout)
	if got := len(validated.Ships()[1].Cells); got != 0 {
		t.Fatalf("validated layout should drop overlap and off-grid cells, got %d", got)
	}
	if !validated.Ships()[1].IsSunk {
		t.Fatalf("emptied ship should be sunk")
	}
}

func TestParseFleet(t *testing.T) {
	fleet, err := ParseFleet("0,0; -1,0 0,0 1,0")
	if err != nil {
		t.Fatalf("ParseFleet failed: %v", err)
	}
	if len(fleet) != 2 || fleet[1].Size() != 3 || fleet[1][0] != coord.Pt(-1, 0) {
		t.Fatalf("unexpected fleet %v", fleet)
	}

	for _, bad := range []string{"", ";", "1", "a,b", "1,2,3"} {
		if _, err := ParseFleet(bad); err == nil {
			t.Errorf("ParseFleet(%q) should fail", bad)
		}
	}
}

func TestRandomOrigin(t *testing.T) {
	b := New(10, 10)
	rng := rand.New(rand.NewSource(1))

	for _, tmpl := range DefaultFleet() {
		origin, ok := b.RandomOrigin(rng, tmpl)
		if !ok {
			t.Fatalf("no origin found on an open board")
		}
		ship := b.PlaceShip(origin, tmpl)
		if len(ship.Cells) != tmpl.Size() {
			t.Fatalf("random origin %v clipped the ship", origin)
		}
	}
}

func TestFireResultTokens(t *testing.T) {
	for _, r := range []FireResult{Water, Hit, Sunk} {
		got, err := ParseFireResult(r.String())
		if err != nil || got != r {
			t.Fatalf("ParseFireResult(%q) = %v, %v", r.String(), got, err)
		}
	}
	if _, err := ParseFireResult("MISS"); err == nil {
		t.Fatalf("expected error for unknown token")
	}
}
