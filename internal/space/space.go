// Package space exposes the edit primitives of one branch.
//
// A Space wraps a vec.Vec. Every primitive resolves negative indices against
// the length at call time, before touching the store, and returns a DeltaCell
// describing the cells it destroyed and created. Destroyed cells are cloned so
// that each branch can stamp its own destruction event on them.
package space

import (
	"fmt"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/vec"
)

// Space is one branch's cell sequence.
type Space struct {
	cells *vec.Vec
}

// New wraps an existing store.
func New(v *vec.Vec) *Space {
	return &Space{cells: v}
}

// FromString builds a space of fresh cells from the bytes of s.
func FromString(s string, opts ...vec.Option) *Space {
	return New(vec.FromString(s, opts...))
}

// FromCells builds a space holding cells.
func FromCells(cells []*ir.Cell, opts ...vec.Option) *Space {
	return New(vec.New(cells, opts...))
}

// Vec returns the underlying store.
func (s *Space) Vec() *vec.Vec { return s.cells }

// Len returns the number of cells.
func (s *Space) Len() int { return s.cells.Len() }

// Cells returns every cell in order.
func (s *Space) Cells() []*ir.Cell { return s.cells.Cells() }

// Get returns the cell at i.
func (s *Space) Get(i int) *ir.Cell { return s.cells.Get(i) }

func (s *Space) String() string { return s.cells.Text() }

// Equal compares two spaces by quanta.
func (s *Space) Equal(o *Space) bool {
	return s.cells.Text() == o.cells.Text()
}

// Digest identifies the space by content.
func (s *Space) Digest() string {
	return ir.SpaceDigest(s.Cells())
}

// Branch returns an independent space sharing this one's storage.
func (s *Space) Branch() *Space {
	return &Space{cells: s.cells.Branch()}
}

// Find returns the spans selected by sel.
func (s *Space) Find(sel ir.Selector) ([]ir.Span, error) {
	switch sel.Kind {
	case ir.SelectorLiteral:
		return s.cells.FindLiteral(sel.Cells, ir.Wildcard), nil
	case ir.SelectorRegex:
		spans, err := s.cells.FindPattern(sel.Pattern)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", sel, err)
		}
		return spans, nil
	case ir.SelectorRange:
		return []ir.Span{s.resolve(sel.Range)}, nil
	default:
		return nil, sel.Validate()
	}
}

// resolve maps negative endpoints relative to the current length and clamps
// the result into [0, len].
func (s *Space) resolve(r ir.Span) ir.Span {
	n := s.Len()
	start, end := r.Start, r.End
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	start = clamp(start, 0, n)
	end = clamp(end, 0, n)
	if end < start {
		end = start
	}
	return ir.Span{Start: start, End: end}
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
