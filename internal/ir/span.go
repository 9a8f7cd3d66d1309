package ir

import "fmt"

// Span is a half-open index range [Start, End).
type Span struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the span.
func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Shift moves both endpoints by k.
func (s Span) Shift(k int) Span {
	return Span{Start: s.Start + k, End: s.End + k}
}

// Overlaps reports whether the open interiors of s and o intersect.
// Touching spans such as [0,3) and [3,5) do not overlap.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}
