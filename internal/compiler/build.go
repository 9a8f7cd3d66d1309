package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
)

// BuiltinImports are the sources @import(name) can pull in.
var BuiltinImports = map[string]string{
	// Runs group 0 as one composite rule over every match, the shape an
	// elementary cellular automaton needs.
	"ca_presets": "@merge(0);\n-pl[inf]\n-mr[0,inf]",
}

// Resolver turns prompt selectors into regex selectors.
// Implemented by *assist.Assistant.
type Resolver interface {
	Resolve(ctx context.Context, sel ir.Selector) (ir.Selector, error)
}

// Options configures Build.
type Options struct {
	// Resolver resolves {prompt} selectors. Without one, a prompt selector
	// is a compile error.
	Resolver Resolver

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Compiled is a program ready to run.
type Compiled struct {
	Program      *ir.Program
	Rules        *rule.RuleSet
	Init         []string
	Instructions []ir.Instruction
	Steps        int
	UntilInert   bool
	MaxSteps     int
}

// Build expands a program's directives and resolves its instructions into
// a rule set.
//
// Flags are layered global < group < rule. Directives are applied in two
// phases: import, decode, init and evolve shape the instruction list before
// rules are built; compress and then merge run on the built rule set.
func Build(ctx context.Context, prog *ir.Program, opts Options) (*Compiled, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := &Compiled{
		Program:      prog,
		Init:         append([]string(nil), prog.Init...),
		Instructions: append([]ir.Instruction(nil), prog.Instructions...),
		Steps:        prog.Steps,
		UntilInert:   prog.UntilInert,
		MaxSteps:     prog.MaxSteps,
	}

	global := canonicalFlags(prog.Flags)
	var post []ir.Directive
	for _, d := range prog.Directives {
		switch d.Name {
		case "import":
			if len(d.Args) != 1 {
				return nil, directiveError(d, "expected one import name")
			}
			src, ok := BuiltinImports[d.Args[0]]
			if !ok {
				return nil, directiveError(d, fmt.Sprintf("unknown import %q", d.Args[0]))
			}
			imported, err := ParseSource(src)
			if err != nil {
				return nil, directiveError(d, err.Error())
			}
			// The program's own flags win over imported ones.
			global = canonicalFlags(imported.Flags).Merge(global)
			post = append(post, imported.Directives...)
			out.Instructions = append(out.Instructions, imported.Instructions...)
		case "decode":
			ins, err := decode(d)
			if err != nil {
				return nil, err
			}
			out.Instructions = append(out.Instructions, ins...)
		case "init":
			if len(out.Init) == 0 {
				out.Init = append([]string(nil), d.Args...)
			}
		case "evolve":
			if len(d.Args) != 1 {
				return nil, directiveError(d, "expected a step count")
			}
			n, err := strconv.Atoi(d.Args[0])
			if err != nil || n < 0 {
				return nil, directiveError(d, "step count must be a non-negative integer")
			}
			if out.Steps == 0 {
				out.Steps = n
			}
		case "merge", "compress":
			if len(d.Args) != 1 {
				return nil, directiveError(d, "expected one group")
			}
			post = append(post, d)
		default:
			return nil, directiveError(d, "unknown directive")
		}
	}

	if len(out.Init) == 0 {
		return nil, &CompileError{Field: "init", Message: "at least one initial space is required"}
	}
	if len(out.Instructions) == 0 {
		return nil, &CompileError{Field: "rules", Message: "at least one rule is required"}
	}

	groups := make(map[string]ir.Flags, len(prog.GroupFlags))
	for g, f := range prog.GroupFlags {
		groups[g] = canonicalFlags(f)
	}

	rules := make([]*rule.Rule, 0, len(out.Instructions))
	for i, in := range out.Instructions {
		r, err := buildRule(ctx, in, global, groups, opts.Resolver)
		if err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("rules[%d]", i), Message: err.Error()}
		}
		rules = append(rules, r)
	}
	rs := rule.NewRuleSet(rules...)

	for _, d := range post {
		if d.Name == "compress" {
			n := rs.Compress(d.Args[0])
			logger.Debug("group compressed", "group", d.Args[0], "disabled", n)
		}
	}
	for _, d := range post {
		if d.Name == "merge" {
			rs.Merge(d.Args[0])
			logger.Debug("group merged", "group", d.Args[0])
		}
	}

	if err := rs.Validate(); err != nil {
		return nil, &CompileError{Field: "rules", Message: err.Error()}
	}
	out.Rules = rs
	return out, nil
}

func buildRule(ctx context.Context, in ir.Instruction, global ir.Flags, groups map[string]ir.Flags, res Resolver) (*rule.Rule, error) {
	kind, _, err := rule.KindForOperator(in.Operator)
	if err != nil {
		return nil, err
	}

	sels := make([]ir.Selector, len(in.Selectors))
	for i, s := range in.Selectors {
		if s.Kind == ir.SelectorPrompt {
			if res == nil {
				return nil, fmt.Errorf("selector %s needs a pattern assistant", s)
			}
			if s, err = res.Resolve(ctx, s); err != nil {
				return nil, err
			}
		}
		sels[i] = s
	}

	r := rule.New(kind, sels, append([]ir.Target(nil), in.Targets...))
	r.ID = in.Source

	own := canonicalFlags(in.Flags)
	group := rule.DefaultGroup
	for _, f := range []ir.Flags{global, own} {
		if v, ok := f["group"]; ok {
			group = v.String()
		}
	}
	flags := global.Merge(groups[group]).Merge(own)
	if err := rule.ApplyFlags(r, flags); err != nil {
		return nil, err
	}
	return r, nil
}

func decode(d ir.Directive) ([]ir.Instruction, error) {
	if len(d.Args) != 3 {
		return nil, directiveError(d, "expected method, charset and rule number")
	}
	if d.Args[0] != "wns" {
		return nil, directiveError(d, fmt.Sprintf("unknown decode method %q", d.Args[0]))
	}
	n, err := strconv.Atoi(d.Args[2])
	if err != nil {
		return nil, directiveError(d, "rule number must be an integer")
	}
	ins, err := WolframRules(d.Args[1], n)
	if err != nil {
		return nil, directiveError(d, err.Error())
	}
	return ins, nil
}

// canonicalFlags rewrites aliases to long names so layers merge by field.
func canonicalFlags(f ir.Flags) ir.Flags {
	out := make(ir.Flags, len(f))
	for k, v := range f {
		out[rule.CanonicalFlag(k)] = v
	}
	return out
}

func directiveError(d ir.Directive, msg string) error {
	return &CompileError{Field: "directives", Message: fmt.Sprintf("%s: %s", d, msg)}
}
