package ir

import "strings"

// Quanta is the payload of a Cell. It doubles as the cell's byte in the
// search buffer, so the encoding is the identity.
type Quanta byte

// Wildcard matches any quanta in literal patterns and is skipped by
// overwrite targets.
const Wildcard Quanta = '_'

// NotDestroyed marks a cell that no event has destroyed yet.
const NotDestroyed = -1

// Unstamped marks a cell created during the step in progress. The flow
// replaces it with the new event's index.
const Unstamped = -1

// Cell is one unit of a space together with its lifecycle metadata.
// CreatedAt and DestroyedAt are event indices.
type Cell struct {
	Quanta      Quanta
	CreatedAt   int
	DestroyedAt int
}

// NewCell returns a live cell created by the initial event.
func NewCell(q Quanta) *Cell {
	return &Cell{Quanta: q, DestroyedAt: NotDestroyed}
}

// Equal reports semantic equality. Metadata is ignored.
func (c *Cell) Equal(other *Cell) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Quanta == other.Quanta
}

// Clone copies the cell including its metadata.
func (c *Cell) Clone() *Cell {
	cp := *c
	return &cp
}

// Fresh returns a clone with lifecycle metadata cleared for a new creation.
func (c *Cell) Fresh() *Cell {
	return &Cell{Quanta: c.Quanta, CreatedAt: Unstamped, DestroyedAt: NotDestroyed}
}

// Destroyed reports whether an event has destroyed this cell.
func (c *Cell) Destroyed() bool {
	return c.DestroyedAt != NotDestroyed
}

func (c *Cell) String() string {
	return string(rune(c.Quanta))
}

// CellsOf builds fresh live cells from the bytes of s.
func CellsOf(s string) []*Cell {
	cells := make([]*Cell, len(s))
	for i := 0; i < len(s); i++ {
		cells[i] = NewCell(Quanta(s[i]))
	}
	return cells
}

// CloneCells deep-copies a cell sequence.
func CloneCells(cells []*Cell) []*Cell {
	out := make([]*Cell, len(cells))
	for i, c := range cells {
		out[i] = c.Clone()
	}
	return out
}

// Text renders the quanta of cells as a string.
func Text(cells []*Cell) string {
	var b strings.Builder
	b.Grow(len(cells))
	for _, c := range cells {
		b.WriteByte(byte(c.Quanta))
	}
	return b.String()
}

// Encode returns the search-buffer encoding of cells.
func Encode(cells []*Cell) []byte {
	buf := make([]byte, len(cells))
	for i, c := range cells {
		buf[i] = byte(c.Quanta)
	}
	return buf
}

// EqualCells compares two sequences by quanta.
func EqualCells(a, b []*Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
