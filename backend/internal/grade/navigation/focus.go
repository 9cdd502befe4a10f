package navigation

import "sync"

// Result is the outcome of a key press.
type Result struct {
	At             Address `json:"at"`
	Moved          bool    `json:"moved"`
	PreventDefault bool    `json:"prevent_default"`
}

// Focus tracks the focused cell of one grid.
type Focus struct {
	mu   sync.Mutex
	grid Grid
	at   Address
}

func NewFocus(g Grid) *Focus {
	return &Focus{grid: g}
}

// Press applies a key. Navigation keys always suppress the default action,
// including at the edges of the grid where focus does not move.
func (f *Focus) Press(key Key) Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, moved := Next(f.grid, f.at, key)
	f.at = next
	return Result{At: next, Moved: moved, PreventDefault: true}
}

// MoveTo focuses a cell directly, as a click does.
func (f *Focus) MoveTo(a Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.grid.Contains(a) {
		return ErrOutOfGrid
	}
	f.at = a
	return nil
}

// Resize changes the grid, clamping the focus into it.
func (f *Focus) Resize(g Grid) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.grid = g
	if f.at.Row >= g.Rows {
		f.at.Row = max(g.Rows-1, 0)
	}
	if f.at.Col >= g.Cols {
		f.at.Col = max(g.Cols-1, 0)
	}
}

func (f *Focus) At() Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.at
}
