package vec

import (
	"errors"
	"fmt"
)

// PatternCompileError is returned when a regex selector does not compile.
type PatternCompileError struct {
	Pattern string
	Backend Backend
	Err     error
}

func (e *PatternCompileError) Error() string {
	return fmt.Sprintf("compile pattern %q (%s): %v", e.Pattern, e.Backend, e.Err)
}

func (e *PatternCompileError) Unwrap() error { return e.Err }

// IsPatternCompileError reports whether err is a PatternCompileError.
func IsPatternCompileError(err error) bool {
	var pce *PatternCompileError
	return errors.As(err, &pce)
}

// BoundsError is returned by mutations whose indices fall outside the store.
// The store is left untouched.
type BoundsError struct {
	Op     string
	Start  int
	End    int
	Length int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s: range [%d,%d) out of bounds for length %d", e.Op, e.Start, e.End, e.Length)
}
