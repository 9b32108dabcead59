// Package coord converts grid positions to spreadsheet-style labels ("A1", "AB12")
// and back. Columns use bijective base-26 letters, rows are 1-based decimals.
package coord

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// maxColumnPrefix is the largest column value that can take another letter
const maxColumnPrefix = (math.MaxInt - 26) / 26

// ErrInvalidCoordinate is returned when a label cannot be decoded
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point is a 0-based grid position
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Add translates p by the offset d
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Label returns the encoded label of p
func (p Point) Label() string {
	return Encode(p.X, p.Y)
}

// String is the label for points on a grid and (x,y) otherwise
func (p Point) String() string {
	if p.X < 0 || p.Y < 0 {
		return fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return p.Label()
}

// Encode converts (x, y) into a label. Negative input is a programming error.
func Encode(x, y int) string {
	if x < 0 || y < 0 {
		panic(fmt.Sprintf("coord: negative position (%d, %d)", x, y))
	}

	return Column(x) + strconv.Itoa(y+1)
}

// Column returns the letters of column x: 0 is "A", 26 is "AA"
func Column(x int) string {
	var letters []byte
	for n := x + 1; n > 0; n = (n - 1) / 26 {
		letters = append(letters, alphabet[(n-1)%26])
	}
	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		letters[i], letters[j] = letters[j], letters[i]
	}
	return string(letters)
}

// Decode parses a label produced by Encode. Lowercase letters are accepted.
func Decode(label string) (int, int, error) {
	label = strings.TrimSpace(label)

	split := 0
	for split < len(label) && isLetter(label[split]) {
		split++
	}
	letters, digits := label[:split], label[split:]
	if letters == "" || digits == "" {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, label)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, label)
		}
	}

	x := 0
	for i := 0; i < len(letters); i++ {
		if x > maxColumnPrefix {
			return 0, 0, fmt.Errorf("%w: %q column out of range", ErrInvalidCoordinate, label)
		}
		x = x*26 + int(upper(letters[i])-'A') + 1
	}

	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, label)
	}

	return x - 1, row - 1, nil
}

// Parse is Decode returning a Point
func Parse(label string) (Point, error) {
	x, y, err := Decode(label)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
