package ir

import (
	"math"
	"strconv"
)

// Inf stands for an unbounded flag value ("inf" in rule sources).
const Inf = math.MaxInt

// FlagKind tags the variant held by a FlagValue.
type FlagKind int

const (
	FlagInt FlagKind = iota + 1
	FlagBool
	FlagRange
	FlagString
)

// FlagValue is one resolved rule flag argument. Integers may be Inf.
type FlagValue struct {
	Kind  FlagKind
	Int   int
	Bool  bool
	Range [2]int
	Str   string
}

// IntFlag returns an integer flag value.
func IntFlag(n int) FlagValue { return FlagValue{Kind: FlagInt, Int: n} }

// BoolFlag returns a boolean flag value.
func BoolFlag(b bool) FlagValue { return FlagValue{Kind: FlagBool, Bool: b} }

// StringFlag returns a symbolic flag value such as a policy name.
func StringFlag(s string) FlagValue { return FlagValue{Kind: FlagString, Str: s} }

// RangeFlag returns a two-element range flag value.
func RangeFlag(lo, hi int) FlagValue { return FlagValue{Kind: FlagRange, Range: [2]int{lo, hi}} }

func (v FlagValue) String() string {
	switch v.Kind {
	case FlagInt:
		return formatFlagInt(v.Int)
	case FlagBool:
		return strconv.FormatBool(v.Bool)
	case FlagRange:
		return "[" + formatFlagInt(v.Range[0]) + "," + formatFlagInt(v.Range[1]) + "]"
	case FlagString:
		return v.Str
	default:
		return "?"
	}
}

func formatFlagInt(n int) string {
	if n == Inf {
		return "inf"
	}
	return strconv.Itoa(n)
}

// Flags maps flag names (long or short alias) to values.
type Flags map[string]FlagValue

// Merge returns a new map holding f overlaid by over.
func (f Flags) Merge(over Flags) Flags {
	out := make(Flags, len(f)+len(over))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func (f Flags) toCanonical() map[string]any {
	obj := make(map[string]any, len(f))
	for k, v := range f {
		obj[k] = v.String()
	}
	return obj
}

// Instruction is one rule as handed over by a front end: selectors, the
// operator symbol, targets and flags, all already resolved.
type Instruction struct {
	Source    string
	Selectors []Selector
	Operator  string
	Targets   []Target
	Flags     Flags
}

// ToCanonical returns the canonical JSON shape of the instruction.
func (in Instruction) ToCanonical() map[string]any {
	sels := make([]string, len(in.Selectors))
	for i, s := range in.Selectors {
		sels[i] = s.Kind.String() + ":" + s.String()
	}
	tgts := make([]string, len(in.Targets))
	for i, t := range in.Targets {
		tgts[i] = t.Kind.String() + ":" + t.String()
	}
	return map[string]any{
		"selectors": sels,
		"operator":  in.Operator,
		"targets":   tgts,
		"flags":     in.Flags.toCanonical(),
	}
}

// Directive is a program-level instruction such as merge or compress.
type Directive struct {
	Name string
	Args []string
}

func (d Directive) String() string {
	s := "@" + d.Name + "("
	for i, a := range d.Args {
		if i > 0 {
			s += ","
		}
		s += a
	}
	return s + ")"
}

// Program is a complete rule program: initial spaces, global and group
// flags, the ordered instructions and directives, and how far to evolve.
type Program struct {
	Name         string
	Init         []string
	Flags        Flags
	GroupFlags   map[string]Flags
	Instructions []Instruction
	Directives   []Directive
	Steps        int
	UntilInert   bool
	MaxSteps     int
}

// ToCanonical returns the canonical JSON shape of the program.
func (p Program) ToCanonical() map[string]any {
	init := make([]string, len(p.Init))
	copy(init, p.Init)
	rules := make([]any, len(p.Instructions))
	for i, in := range p.Instructions {
		rules[i] = in.ToCanonical()
	}
	directives := make([]string, len(p.Directives))
	for i, d := range p.Directives {
		directives[i] = d.String()
	}
	groups := make(map[string]any, len(p.GroupFlags))
	for g, f := range p.GroupFlags {
		groups[g] = f.toCanonical()
	}
	return map[string]any{
		"init":        init,
		"flags":       p.Flags.toCanonical(),
		"groups":      groups,
		"rules":       rules,
		"directives":  directives,
		"steps":       p.Steps,
		"until_inert": p.UntilInert,
		"max_steps":   p.MaxSteps,
	}
}
