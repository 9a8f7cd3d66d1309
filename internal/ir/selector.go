package ir

import (
	"fmt"
	"strconv"
)

// SelectorKind tags the variant held by a Selector.
type SelectorKind int

const (
	SelectorUnknown SelectorKind = iota
	// SelectorLiteral matches a cell sequence; Wildcard cells match anything.
	SelectorLiteral
	// SelectorRegex matches a pattern against the search buffer.
	SelectorRegex
	// SelectorRange selects an explicit index range.
	SelectorRange
	// SelectorPrompt is a natural-language description that must be turned
	// into a regex by the pattern assistant before rules are built.
	SelectorPrompt
)

func (k SelectorKind) String() string {
	switch k {
	case SelectorLiteral:
		return "literal"
	case SelectorRegex:
		return "regex"
	case SelectorRange:
		return "range"
	case SelectorPrompt:
		return "prompt"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Selector is the tagged value a rule matches with.
type Selector struct {
	Kind    SelectorKind
	Cells   []*Cell
	Pattern string
	Range   Span
}

// LiteralSelector builds a literal selector from the bytes of s.
func LiteralSelector(s string) Selector {
	return Selector{Kind: SelectorLiteral, Cells: CellsOf(s)}
}

// RegexSelector builds a regex selector. The pattern is compiled lazily by
// the store that searches with it.
func RegexSelector(pattern string) Selector {
	return Selector{Kind: SelectorRegex, Pattern: pattern}
}

// RangeSelector selects [start, end). Negative endpoints count from the end
// of the space being matched.
func RangeSelector(start, end int) Selector {
	return Selector{Kind: SelectorRange, Range: Span{Start: start, End: end}}
}

// PromptSelector carries an unresolved natural-language pattern description.
func PromptSelector(prompt string) Selector {
	return Selector{Kind: SelectorPrompt, Pattern: prompt}
}

// Validate rejects kinds the core cannot match with.
func (s Selector) Validate() error {
	switch s.Kind {
	case SelectorLiteral:
		if len(s.Cells) == 0 {
			return &UnknownSelectorKindError{Kind: s.Kind, Reason: "empty literal"}
		}
		return nil
	case SelectorRegex, SelectorRange:
		return nil
	case SelectorPrompt:
		return &UnknownSelectorKindError{Kind: s.Kind, Reason: "prompt selector was not resolved to a pattern"}
	default:
		return &UnknownSelectorKindError{Kind: s.Kind}
	}
}

func (s Selector) String() string {
	switch s.Kind {
	case SelectorLiteral:
		return Text(s.Cells)
	case SelectorRegex:
		return "/" + s.Pattern + "/"
	case SelectorRange:
		return fmt.Sprintf("[%d,%d]", s.Range.Start, s.Range.End)
	case SelectorPrompt:
		return "{" + s.Pattern + "}"
	default:
		return s.Kind.String()
	}
}

// TargetKind tags the variant held by a Target.
type TargetKind int

const (
	TargetUnknown TargetKind = iota
	// TargetCells is a literal replacement sequence.
	TargetCells
	// TargetOffset is a signed shift amount.
	TargetOffset
)

func (k TargetKind) String() string {
	switch k {
	case TargetCells:
		return "cells"
	case TargetOffset:
		return "offset"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Target is what a rule writes: cells, or an offset for shifts.
type Target struct {
	Kind   TargetKind
	Cells  []*Cell
	Offset int
}

// CellsTarget builds a replacement target from the bytes of s.
func CellsTarget(s string) Target {
	return Target{Kind: TargetCells, Cells: CellsOf(s)}
}

// OffsetTarget builds a shift target.
func OffsetTarget(k int) Target {
	return Target{Kind: TargetOffset, Offset: k}
}

// Validate rejects unknown target kinds.
func (t Target) Validate() error {
	switch t.Kind {
	case TargetCells, TargetOffset:
		return nil
	default:
		return &UnknownTargetKindError{Kind: t.Kind}
	}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetCells:
		return Text(t.Cells)
	case TargetOffset:
		return strconv.Itoa(t.Offset)
	default:
		return t.Kind.String()
	}
}
