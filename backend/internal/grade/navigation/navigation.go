// Package navigation computes keyboard focus movement over the grade grid.
// Rows are students, columns are the visible semester's slots.
package navigation

import (
	"errors"
	"fmt"
)

var ErrOutOfGrid = errors.New("address is outside the grid")

// Key is a navigation key.
type Key int

const (
	KeyUp Key = iota + 1
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
)

var keyNames = map[string]Key{
	"ArrowUp":    KeyUp,
	"ArrowDown":  KeyDown,
	"ArrowLeft":  KeyLeft,
	"ArrowRight": KeyRight,
	"Enter":      KeyEnter,
}

// ParseKey maps a DOM key name to a Key.
func ParseKey(name string) (Key, bool) {
	k, ok := keyNames[name]
	return k, ok
}

func (k Key) String() string {
	for name, v := range keyNames {
		if v == k {
			return name
		}
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// Grid is the size of the address space.
type Grid struct {
	Rows int
	Cols int
}

// Address is a zero-based (row, column) cell position.
type Address struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Contains reports whether a lies inside the grid.
func (g Grid) Contains(a Address) bool {
	return a.Row >= 0 && a.Row < g.Rows && a.Col >= 0 && a.Col < g.Cols
}

// Next returns the address focus moves to when key is pressed at at.
// It returns false when the move would leave the grid.
//
// Left and right walk the grid row by row. Down and Enter walk it column by
// column: past the last row they continue at the top of the next column. Up is
// the reverse.
func Next(g Grid, at Address, key Key) (Address, bool) {
	if !g.Contains(at) {
		return at, false
	}
	lastRow, lastCol := g.Rows-1, g.Cols-1

	switch key {
	case KeyRight:
		if at.Col < lastCol {
			return Address{at.Row, at.Col + 1}, true
		}
		if at.Row < lastRow {
			return Address{at.Row + 1, 0}, true
		}
	case KeyLeft:
		if at.Col > 0 {
			return Address{at.Row, at.Col - 1}, true
		}
		if at.Row > 0 {
			return Address{at.Row - 1, lastCol}, true
		}
	case KeyDown, KeyEnter:
		if at.Row < lastRow {
			return Address{at.Row + 1, at.Col}, true
		}
		if at.Col < lastCol {
			return Address{0, at.Col + 1}, true
		}
	case KeyUp:
		if at.Row > 0 {
			return Address{at.Row - 1, at.Col}, true
		}
		if at.Col > 0 {
			return Address{lastRow, at.Col - 1}, true
		}
	}
	return at, false
}
