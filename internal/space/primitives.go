package space

import (
	"github.com/roach88/ruleflow/internal/ir"
)

// Substitute replaces r with cells.
func (s *Space) Substitute(r ir.Span, cells []*ir.Cell) (ir.DeltaCell, error) {
	rr := s.resolve(r)
	destroyed := ir.CloneCells(s.cells.Slice(rr.Start, rr.End))
	if err := s.cells.SetRange(rr.Start, rr.End, cells); err != nil {
		return ir.DeltaCell{}, err
	}
	return ir.DeltaCell{Destroyed: destroyed, Created: cells}, nil
}

// Insert places cells before pos. A negative pos counts from the end with
// an extra +1, so -1 appends after the last cell.
func (s *Space) Insert(pos int, cells []*ir.Cell) (ir.DeltaCell, error) {
	n := s.Len()
	if pos < 0 {
		pos = n + pos + 1
	}
	if pos < 0 || pos > n {
		return ir.DeltaCell{}, &InvalidRangeError{Op: "insert", Start: pos, End: pos, Length: n}
	}
	if err := s.cells.InsertAt(pos, cells); err != nil {
		return ir.DeltaCell{}, err
	}
	return ir.DeltaCell{Created: cells}, nil
}

// Overwrite writes cells one by one starting at pos. Wildcard cells leave
// their position untouched and are not reported. Writes past the end append.
func (s *Space) Overwrite(pos int, cells []*ir.Cell) (ir.DeltaCell, error) {
	n := s.Len()
	if pos < 0 {
		pos += n
	}
	if pos < 0 {
		return ir.DeltaCell{}, &InvalidRangeError{Op: "overwrite", Start: pos, End: pos, Length: n}
	}
	var delta ir.DeltaCell
	for i, c := range cells {
		if c.Quanta == ir.Wildcard {
			continue
		}
		idx := pos + i
		if idx < s.Len() {
			delta.Destroyed = append(delta.Destroyed, s.cells.Get(idx).Clone())
			if err := s.cells.Set(idx, c); err != nil {
				return ir.DeltaCell{}, err
			}
		} else {
			s.cells.Append(c)
		}
		delta.Created = append(delta.Created, c)
	}
	return delta, nil
}

// Delete removes r.
func (s *Space) Delete(r ir.Span) (ir.DeltaCell, error) {
	rr := s.resolve(r)
	destroyed := ir.CloneCells(s.cells.Slice(rr.Start, rr.End))
	if err := s.cells.DeleteRange(rr.Start, rr.End); err != nil {
		return ir.DeltaCell{}, err
	}
	return ir.DeltaCell{Destroyed: destroyed}, nil
}

// Shift moves the block at r by k positions, negative meaning left. The
// cells it passes over move to the vacated side. k is clamped to the room
// available. Nothing is created or destroyed.
func (s *Space) Shift(r ir.Span, k int) (ir.DeltaCell, error) {
	rr := s.resolve(r)
	switch {
	case k < 0:
		k = min(-k, rr.Start)
		if k == 0 {
			return ir.DeltaCell{}, nil
		}
		before := s.cells.Slice(rr.Start-k, rr.Start)
		block := s.cells.Slice(rr.Start, rr.End)
		return ir.DeltaCell{}, s.cells.SetRange(rr.Start-k, rr.End, concat(block, before))
	case k > 0:
		k = min(k, s.Len()-rr.End)
		if k == 0 {
			return ir.DeltaCell{}, nil
		}
		block := s.cells.Slice(rr.Start, rr.End)
		after := s.cells.Slice(rr.End, rr.End+k)
		return ir.DeltaCell{}, s.cells.SetRange(rr.Start, rr.End+k, concat(after, block))
	}
	return ir.DeltaCell{}, nil
}

// Swap exchanges two ranges. Overlapping ranges are rejected.
func (s *Space) Swap(a, b ir.Span) (ir.DeltaCell, error) {
	ra, rb := s.resolve(a), s.resolve(b)
	if ra.Overlaps(rb) {
		return ir.DeltaCell{}, &OverlapError{A: ra, B: rb}
	}
	if rb.Start < ra.Start {
		ra, rb = rb, ra
	}
	first := s.cells.Slice(ra.Start, ra.End)
	middle := s.cells.Slice(ra.End, rb.Start)
	second := s.cells.Slice(rb.Start, rb.End)
	return ir.DeltaCell{}, s.cells.SetRange(ra.Start, rb.End, concat(second, middle, first))
}

// Reverse reverses the order of cells within r.
func (s *Space) Reverse(r ir.Span) (ir.DeltaCell, error) {
	rr := s.resolve(r)
	block := s.cells.Slice(rr.Start, rr.End)
	for i, j := 0, len(block)-1; i < j; i, j = i+1, j-1 {
		block[i], block[j] = block[j], block[i]
	}
	return ir.DeltaCell{}, s.cells.SetRange(rr.Start, rr.End, block)
}

func concat(parts ...[]*ir.Cell) []*ir.Cell {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]*ir.Cell, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
