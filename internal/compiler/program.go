package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/ruleflow/internal/ir"
)

// CompileProgram parses a CUE value into a Program.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the program struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`program: rule30: { ... }`)
//	prog, err := CompileProgram(v.LookupPath(cue.ParsePath("program.rule30")))
//
// Fields:
//
//	init:        string | [...string]     initial spaces
//	flags:       {[name]: flag}           global rule flags
//	groups:      {[group]: {[name]: flag}} per-group rule flags
//	rules:       [...(string | {rule: string, flags?: {...}})]
//	directives:  [...string]              e.g. "@merge(0)"
//	steps:       int                      evolve this many steps
//	until_inert: bool                     evolve until inert instead
//	max_steps:   int                      cap for until_inert
//
// A flag is an int, a bool, "inf", a policy name, or a [start, end] pair
// whose bounds are ints or "inf".
func CompileProgram(v cue.Value) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	prog := &ir.Program{GroupFlags: map[string]ir.Flags{}}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		prog.Name = labels[len(labels)-1].String()
	}

	var err error
	if prog.Init, err = parseInit(v); err != nil {
		return nil, err
	}

	if flagsVal := v.LookupPath(cue.ParsePath("flags")); flagsVal.Exists() {
		if prog.Flags, err = parseFlagStruct(flagsVal); err != nil {
			return nil, err
		}
	} else {
		prog.Flags = ir.Flags{}
	}

	if groupsVal := v.LookupPath(cue.ParsePath("groups")); groupsVal.Exists() {
		iter, err := groupsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			flags, err := parseFlagStruct(iter.Value())
			if err != nil {
				return nil, err
			}
			prog.GroupFlags[iter.Label()] = flags
		}
	}

	if prog.Instructions, err = parseRules(v); err != nil {
		return nil, err
	}

	if dirsVal := v.LookupPath(cue.ParsePath("directives")); dirsVal.Exists() {
		iter, err := dirsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			d, err := ParseDirective(s)
			if err != nil {
				return nil, &CompileError{Field: "directives", Message: err.Error(), Pos: iter.Value().Pos()}
			}
			prog.Directives = append(prog.Directives, d)
		}
	}

	if prog.Steps, err = optionalInt(v, "steps"); err != nil {
		return nil, err
	}
	if prog.MaxSteps, err = optionalInt(v, "max_steps"); err != nil {
		return nil, err
	}
	if inertVal := v.LookupPath(cue.ParsePath("until_inert")); inertVal.Exists() {
		if prog.UntilInert, err = inertVal.Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if len(prog.Instructions) == 0 && !hasDirective(prog, "decode", "import") {
		return nil, &CompileError{
			Field:   "rules",
			Message: "at least one rule is required",
			Pos:     v.Pos(),
		}
	}

	return prog, nil
}

// CompileString compiles CUE source holding a single program: either the
// program struct at the top level, or exactly one entry under program.
func CompileString(src, filename string) (*ir.Program, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileSingle(v)
}

// CompileFile reads and compiles a single-program CUE file.
func CompileFile(path string) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return CompileString(string(data), path)
}

// CompileAll compiles every entry under program, in label order.
func CompileAll(v cue.Value) ([]*ir.Program, error) {
	progsVal := v.LookupPath(cue.ParsePath("program"))
	if !progsVal.Exists() {
		return nil, nil
	}
	iter, err := progsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []*ir.Program
	for iter.Next() {
		p, err := CompileProgram(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func compileSingle(v cue.Value) (*ir.Program, error) {
	if !v.LookupPath(cue.ParsePath("program")).Exists() {
		return CompileProgram(v)
	}
	progs, err := CompileAll(v)
	if err != nil {
		return nil, err
	}
	if len(progs) != 1 {
		return nil, &CompileError{
			Field:   "program",
			Message: fmt.Sprintf("expected exactly one program, found %d", len(progs)),
			Pos:     v.Pos(),
		}
	}
	return progs[0], nil
}

func parseInit(v cue.Value) ([]string, error) {
	initVal := v.LookupPath(cue.ParsePath("init"))
	if !initVal.Exists() {
		return nil, nil
	}
	if s, err := initVal.String(); err == nil {
		return []string{s}, nil
	}
	iter, err := initVal.List()
	if err != nil {
		return nil, &CompileError{Field: "init", Message: "init must be a string or a list of strings", Pos: initVal.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// parseRules accepts each rule as a compact string or as a struct with a
// rule string and extra flags.
func parseRules(v cue.Value) ([]ir.Instruction, error) {
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, nil
	}
	iter, err := rulesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.Instruction
	for i := 0; iter.Next(); i++ {
		rv := iter.Value()
		src, err := rv.String()
		var extra ir.Flags
		if err != nil {
			ruleVal := rv.LookupPath(cue.ParsePath("rule"))
			if !ruleVal.Exists() {
				return nil, &CompileError{
					Field:   fmt.Sprintf("rules[%d]", i),
					Message: "rule must be a string or a struct with a rule field",
					Pos:     rv.Pos(),
				}
			}
			if src, err = ruleVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
			if flagsVal := rv.LookupPath(cue.ParsePath("flags")); flagsVal.Exists() {
				if extra, err = parseFlagStruct(flagsVal); err != nil {
					return nil, err
				}
			}
		}

		in, err := ParseInstruction(src)
		if err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("rules[%d]", i), Message: err.Error(), Pos: rv.Pos()}
		}
		in.Flags = in.Flags.Merge(extra)
		out = append(out, in)
	}
	return out, nil
}

func parseFlagStruct(v cue.Value) (ir.Flags, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	flags := ir.Flags{}
	for iter.Next() {
		fv, err := parseFlagValue(iter.Value())
		if err != nil {
			return nil, err
		}
		flags[iter.Label()] = fv
	}
	return flags, nil
}

// parseFlagValue converts a CUE flag value. Floats are forbidden.
func parseFlagValue(v cue.Value) (ir.FlagValue, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return ir.FlagValue{}, formatCUEError(err)
		}
		return ir.IntFlag(int(n)), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return ir.FlagValue{}, formatCUEError(err)
		}
		return ir.BoolFlag(b), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return ir.FlagValue{}, formatCUEError(err)
		}
		return parseScalar(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return ir.FlagValue{}, formatCUEError(err)
		}
		var bounds []int
		for iter.Next() {
			b, err := parseCUEBound(iter.Value())
			if err != nil {
				return ir.FlagValue{}, err
			}
			bounds = append(bounds, b)
		}
		if len(bounds) != 2 {
			return ir.FlagValue{}, &CompileError{Field: "flag", Message: "range flag needs exactly [start, end]", Pos: v.Pos()}
		}
		return ir.RangeFlag(bounds[0], bounds[1]), nil
	case cue.FloatKind, cue.NumberKind:
		return ir.FlagValue{}, &CompileError{
			Field:   "flag",
			Message: "float flag values are forbidden - use int or \"inf\"",
			Pos:     v.Pos(),
		}
	default:
		return ir.FlagValue{}, &CompileError{
			Field:   "flag",
			Message: fmt.Sprintf("unsupported flag kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func parseCUEBound(v cue.Value) (int, error) {
	if s, err := v.String(); err == nil {
		if s == "inf" {
			return ir.Inf, nil
		}
		return 0, &CompileError{Field: "flag", Message: fmt.Sprintf("range bound %q must be an int or \"inf\"", s), Pos: v.Pos()}
	}
	n, err := v.Int64()
	if err != nil {
		return 0, &CompileError{Field: "flag", Message: "range bound must be an int or \"inf\"", Pos: v.Pos()}
	}
	return int(n), nil
}

func optionalInt(v cue.Value, field string) (int, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, &CompileError{Field: field, Message: field + " must be an int", Pos: fv.Pos()}
	}
	return int(n), nil
}

func hasDirective(p *ir.Program, names ...string) bool {
	for _, d := range p.Directives {
		for _, n := range names {
			if d.Name == n {
				return true
			}
		}
	}
	return false
}
