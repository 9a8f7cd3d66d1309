package space

import (
	"errors"
	"fmt"

	"github.com/roach88/ruleflow/internal/ir"
)

// OverlapError is returned by Swap when the two ranges overlap.
type OverlapError struct {
	A ir.Span
	B ir.Span
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("swap ranges %s and %s overlap", e.A, e.B)
}

// InvalidRangeError is returned when a position or range falls outside the
// space. The space is not modified.
type InvalidRangeError struct {
	Op     string
	Start  int
	End    int
	Length int
}

func (e *InvalidRangeError) Error() string {
	if e.Start == e.End {
		return fmt.Sprintf("%s: position %d out of range for length %d", e.Op, e.Start, e.Length)
	}
	return fmt.Sprintf("%s: range [%d,%d) out of range for length %d", e.Op, e.Start, e.End, e.Length)
}

// IsOverlapError reports whether err is an OverlapError.
func IsOverlapError(err error) bool {
	var oe *OverlapError
	return errors.As(err, &oe)
}

// IsInvalidRangeError reports whether err is an InvalidRangeError.
func IsInvalidRangeError(err error) bool {
	var ire *InvalidRangeError
	return errors.As(err, &ire)
}
