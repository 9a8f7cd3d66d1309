package vec

import (
	"bytes"
	"fmt"
	"regexp"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/roach88/ruleflow/internal/ir"
)

// Backend selects the regex engine used by FindPattern.
type Backend int

const (
	// BackendRE2 is Go's regexp package: linear time, no backreferences.
	BackendRE2 Backend = iota
	// BackendRegexp2 is a backtracking engine supporting lookaround and
	// backreferences. Matches are bounded by Regexp2Timeout.
	BackendRegexp2
)

// Regexp2Timeout bounds a single regexp2 search.
var Regexp2Timeout = 5 * time.Second

func (b Backend) String() string {
	switch b {
	case BackendRE2:
		return "re2"
	case BackendRegexp2:
		return "regexp2"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend maps a backend name to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch name {
	case "", "re2":
		return BackendRE2, nil
	case "regexp2":
		return BackendRegexp2, nil
	default:
		return 0, fmt.Errorf("unknown regex backend %q", name)
	}
}

// matcher finds non-overlapping leftmost matches in a search buffer.
type matcher interface {
	findAll(buf []byte) ([]ir.Span, error)
}

// Compile reports whether pattern compiles for backend. The error is a
// *PatternCompileError.
func Compile(backend Backend, pattern string) error {
	_, err := compile(backend, pattern)
	return err
}

func compile(backend Backend, pattern string) (matcher, error) {
	switch backend {
	case BackendRE2:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &PatternCompileError{Pattern: pattern, Backend: backend, Err: err}
		}
		return re2Matcher{re: re}, nil
	case BackendRegexp2:
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, &PatternCompileError{Pattern: pattern, Backend: backend, Err: err}
		}
		re.MatchTimeout = Regexp2Timeout
		return regexp2Matcher{re: re}, nil
	default:
		return nil, &PatternCompileError{Pattern: pattern, Backend: backend, Err: fmt.Errorf("unknown backend")}
	}
}

type re2Matcher struct {
	re *regexp.Regexp
}

func (m re2Matcher) findAll(buf []byte) ([]ir.Span, error) {
	locs := m.re.FindAllIndex(buf, -1)
	spans := make([]ir.Span, len(locs))
	for i, loc := range locs {
		spans[i] = ir.Span{Start: loc[0], End: loc[1]}
	}
	return spans, nil
}

// regexp2Matcher searches runes built one-to-one from buffer bytes, so rune
// indices are cell indices.
type regexp2Matcher struct {
	re *regexp2.Regexp
}

func (m regexp2Matcher) findAll(buf []byte) ([]ir.Span, error) {
	runes := make([]rune, len(buf))
	for i, b := range buf {
		runes[i] = rune(b)
	}
	var spans []ir.Span
	match, err := m.re.FindRunesMatch(runes)
	for match != nil && err == nil {
		spans = append(spans, ir.Span{Start: match.Index, End: match.Index + match.Length})
		match, err = m.re.FindNextMatch(match)
	}
	if err != nil {
		return nil, fmt.Errorf("regexp2 search: %w", err)
	}
	return spans, nil
}

// literalPlan is a precomputed literal search. Patterns without wildcards
// use bytes.Index; the rest compare byte by byte against a mask.
type literalPlan struct {
	pattern  []byte
	wildcard []bool
	hasWild  bool
}

func newLiteralPlan(encoded []byte, wildcard byte) *literalPlan {
	plan := &literalPlan{
		pattern:  bytes.Clone(encoded),
		wildcard: make([]bool, len(encoded)),
	}
	for i, b := range encoded {
		if b == wildcard {
			plan.wildcard[i] = true
			plan.hasWild = true
		}
	}
	return plan
}

// findAll returns every occurrence, overlapping ones included, left to right.
func (p *literalPlan) findAll(buf []byte) []ir.Span {
	n := len(p.pattern)
	if n == 0 || n > len(buf) {
		return nil
	}
	var spans []ir.Span
	if !p.hasWild {
		for start := 0; start+n <= len(buf); {
			idx := bytes.Index(buf[start:], p.pattern)
			if idx < 0 {
				break
			}
			spans = append(spans, ir.Span{Start: start + idx, End: start + idx + n})
			start += idx + 1
		}
		return spans
	}
	for start := 0; start+n <= len(buf); start++ {
		if p.matchAt(buf, start) {
			spans = append(spans, ir.Span{Start: start, End: start + n})
		}
	}
	return spans
}

func (p *literalPlan) matchAt(buf []byte, start int) bool {
	for i, b := range p.pattern {
		if !p.wildcard[i] && buf[start+i] != b {
			return false
		}
	}
	return true
}
