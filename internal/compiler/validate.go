package compiler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
	"github.com/roach88/ruleflow/internal/vec"
)

// Validation error codes (E100-E199)
const (
	// Program errors (E101-E109)
	ErrProgramNoInit       = "E101" // no initial space
	ErrProgramNoRules      = "E102" // no rules and nothing that generates them
	ErrProgramEmptySpace   = "E103" // an initial space is empty
	ErrInvalidStepSettings = "E104" // negative or conflicting step settings
	ErrUnknownDirective    = "E105" // directive name not recognised
	ErrInvalidDirective    = "E106" // directive arguments are wrong

	// Instruction errors (E110-E119)
	ErrUnknownOperator   = "E110" // operator symbol not recognised
	ErrInvalidSelector   = "E111" // empty or malformed selector
	ErrInvalidTarget     = "E112" // target missing or of the wrong kind
	ErrUnknownFlag       = "E113" // flag name not recognised
	ErrInvalidFlagValue  = "E114" // flag value has the wrong shape
	ErrInvalidRegex      = "E115" // regex selector does not compile
	ErrUnresolvedPrompts = "E116" // prompt selector needs an assistant
)

// ValidationError represents a program validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var knownDirectives = map[string]int{
	"import":   1,
	"decode":   3,
	"merge":    1,
	"compress": 1,
	"evolve":   1,
	"init":     -1,
}

// Validate checks a program without building it.
// Returns all errors found (does not fail-fast).
//
// Prompt selectors are reported with ErrUnresolvedPrompts so callers can
// decide whether an assistant is available; everything else is an error
// Build would also reject.
func Validate(prog *ir.Program) []ValidationError {
	var errs []ValidationError

	// E101: init is required, possibly through @init
	if len(prog.Init) == 0 && !hasDirective(prog, "init") {
		errs = append(errs, ValidationError{
			Field:   "init",
			Message: "at least one initial space is required",
			Code:    ErrProgramNoInit,
		})
	}
	for i, s := range prog.Init {
		if s == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("init[%d]", i),
				Message: "initial space is empty",
				Code:    ErrProgramEmptySpace,
			})
		}
	}

	// E102: rules are required unless a directive generates them
	if len(prog.Instructions) == 0 && !hasDirective(prog, "decode", "import") {
		errs = append(errs, ValidationError{
			Field:   "rules",
			Message: "at least one rule is required",
			Code:    ErrProgramNoRules,
		})
	}

	errs = append(errs, validateSteps(prog)...)
	errs = append(errs, validateDirectives(prog.Directives)...)

	errs = append(errs, validateFlags("flags", prog.Flags)...)
	groups := make([]string, 0, len(prog.GroupFlags))
	for g := range prog.GroupFlags {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		errs = append(errs, validateFlags("groups."+g, prog.GroupFlags[g])...)
	}

	for i, in := range prog.Instructions {
		errs = append(errs, validateInstruction(fmt.Sprintf("rules[%d]", i), in)...)
	}

	return errs
}

func validateSteps(prog *ir.Program) []ValidationError {
	var errs []ValidationError
	if prog.Steps < 0 {
		errs = append(errs, ValidationError{
			Field:   "steps",
			Message: "steps must not be negative",
			Code:    ErrInvalidStepSettings,
		})
	}
	if prog.MaxSteps < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_steps",
			Message: "max_steps must not be negative",
			Code:    ErrInvalidStepSettings,
		})
	}
	if prog.Steps > 0 && prog.UntilInert {
		errs = append(errs, ValidationError{
			Field:   "until_inert",
			Message: "steps and until_inert are mutually exclusive",
			Code:    ErrInvalidStepSettings,
		})
	}
	return errs
}

func validateDirectives(dirs []ir.Directive) []ValidationError {
	var errs []ValidationError
	for i, d := range dirs {
		field := fmt.Sprintf("directives[%d]", i)
		arity, ok := knownDirectives[d.Name]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown directive %q", d.Name),
				Code:    ErrUnknownDirective,
			})
			continue
		}
		if arity >= 0 && len(d.Args) != arity {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s takes %d argument(s), got %d", d, arity, len(d.Args)),
				Code:    ErrInvalidDirective,
			})
			continue
		}
		switch d.Name {
		case "import":
			if _, ok := BuiltinImports[d.Args[0]]; !ok {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("unknown import %q", d.Args[0]),
					Code:    ErrInvalidDirective,
				})
			}
		case "decode":
			if _, err := decode(d); err != nil {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: err.Error(),
					Code:    ErrInvalidDirective,
				})
			}
		}
	}
	return errs
}

// validateFlags applies flags to a scratch rule to check names and values.
func validateFlags(field string, flags ir.Flags) []ValidationError {
	var errs []ValidationError
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := flags[name]
		scratch := rule.New(rule.Delete, nil, nil)
		err := rule.ApplyFlags(scratch, ir.Flags{name: v})
		if err == nil {
			continue
		}
		code := ErrInvalidFlagValue
		var unknown *rule.UnknownFlagError
		if errors.As(err, &unknown) {
			code = ErrUnknownFlag
		}
		errs = append(errs, ValidationError{
			Field:   field + "." + name,
			Message: err.Error(),
			Code:    code,
		})
	}
	return errs
}

func validateInstruction(field string, in ir.Instruction) []ValidationError {
	var errs []ValidationError

	// E110: operator must be known
	kind, _, err := rule.KindForOperator(in.Operator)
	if err != nil {
		return append(errs, ValidationError{
			Field:   field + ".operator",
			Message: err.Error(),
			Code:    ErrUnknownOperator,
		})
	}

	if len(in.Selectors) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".selectors",
			Message: "at least one selector is required",
			Code:    ErrInvalidSelector,
		})
	}
	for j, s := range in.Selectors {
		sf := fmt.Sprintf("%s.selectors[%d]", field, j)
		switch s.Kind {
		case ir.SelectorPrompt:
			errs = append(errs, ValidationError{
				Field:   sf,
				Message: fmt.Sprintf("prompt selector %s needs a pattern assistant", s),
				Code:    ErrUnresolvedPrompts,
			})
		case ir.SelectorRegex:
			if err := compileAny(s.Pattern); err != nil {
				errs = append(errs, ValidationError{
					Field:   sf,
					Message: err.Error(),
					Code:    ErrInvalidRegex,
				})
			}
		default:
			if err := s.Validate(); err != nil {
				errs = append(errs, ValidationError{
					Field:   sf,
					Message: err.Error(),
					Code:    ErrInvalidSelector,
				})
			}
		}
	}

	// E112: targets must fit the rule kind
	scratch := rule.New(kind, []ir.Selector{ir.RangeSelector(0, 0)}, in.Targets)
	if err := scratch.Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   field + ".targets",
			Message: strings.TrimPrefix(err.Error(), "rule "+scratch.Name()+": "),
			Code:    ErrInvalidTarget,
		})
	}

	errs = append(errs, validateFlags(field+".flags", in.Flags)...)
	return errs
}

// compileAny accepts a pattern that compiles for either regex backend and
// returns the RE2 error otherwise.
func compileAny(pattern string) error {
	err := vec.Compile(vec.BackendRE2, pattern)
	if err == nil || vec.Compile(vec.BackendRegexp2, pattern) == nil {
		return nil
	}
	return err
}
