package compiler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
)

// Compact rule notation
//
//	ABA -> AAB -pl[inf] -mr[0,inf]
//	/B{4,}$/ >< -g[tail]
//	[0] > X
//	A|B --> _C
//	[0,3] >> 2
//
// Selectors come before the operator: literals (with _ as wildcard),
// /regex/, [start,end] or [index] ranges and {prompt} selectors. Targets
// follow the operator; alternatives are separated by |. Flags follow the
// targets as -name or -name[args].

// notationLexer tokenizes compact notation. Rules are tried in order, so
// comments win over regexes and operators win over flags.
var notationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Regex", Pattern: `/(?:\\.|[^/\\\n])+/`},
	{Name: "Prompt", Pattern: `\{[^}\n]*\}`},
	{Name: "Operator", Pattern: `>><<|-->|->|><|>>|<<|>`},
	{Name: "Flag", Pattern: `-[A-Za-z][A-Za-z0-9_]*`},
	{Name: "Directive", Pattern: `@[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"|'[^'\n]*'`},
	{Name: "Punct", Pattern: `[\[\](),|]`},
	{Name: "Sep", Pattern: `[;\n]`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Word", Pattern: `[^\s\[\](),|;"'/{}<>@]+`},
})

type sourceNode struct {
	Statements []*statementNode `( @@ | Sep )*`
}

type statementNode struct {
	Directive   *directiveNode   `  @@`
	Flags       []*flagNode      `| @@+`
	Instruction *instructionNode `| @@`
}

type instructionNode struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Selectors []*selectorNode `@@ ( "|"? @@ )*`
	Operator  string          `@Operator`
	Targets   []*targetNode   `( @@ ( "|"? @@ )* )?`
	Flags     []*flagNode     `@@*`
}

type selectorNode struct {
	Pos lexer.Position

	Regex   *string       `  @Regex`
	Prompt  *string       `| @Prompt`
	Range   *bracketsNode `| @@`
	Literal *string       `| @(Word | String)`
}

type targetNode struct {
	Pos lexer.Position

	Value string `@(Word | String)`
}

type flagNode struct {
	Pos lexer.Position

	Name string        `@Flag`
	Args *bracketsNode `@@?`
}

// bracketsNode is a [..] group: a range selector or flag arguments. Parts
// keep empty bounds visible, as in [2,] or [,4].
type bracketsNode struct {
	Parts []*bracketPart `"[" @@* "]"`
}

type bracketPart struct {
	Comma bool    `  @","`
	Value *string `| @(Word | String)`
}

func (b *bracketsNode) text() string {
	var sb strings.Builder
	for _, p := range b.Parts {
		if p.Comma {
			sb.WriteByte(',')
			continue
		}
		sb.WriteString(*p.Value)
	}
	return sb.String()
}

type directiveNode struct {
	Name string    `@Directive`
	Call *callNode `@@?`
}

type callNode struct {
	Args []string `"(" ( @(Word | String) ( "," @(Word | String) )* )? ")"`
}

type flagsNode struct {
	Flags []*flagNode `@@*`
}

var notationOptions = []participle.Option{
	participle.Lexer(notationLexer),
	participle.Elide("Whitespace", "Comment"),
}

var (
	sourceParser      = participle.MustBuild[sourceNode](notationOptions...)
	instructionParser = participle.MustBuild[instructionNode](notationOptions...)
	flagsParser       = participle.MustBuild[flagsNode](notationOptions...)
	directiveParser   = participle.MustBuild[directiveNode](notationOptions...)
)

// emptyTarget spells an empty replacement, as in AB -> "".
const emptyTarget = `""`

// Source is the result of parsing a block of compact notation.
type Source struct {
	Instructions []ir.Instruction
	Directives   []ir.Directive
	Flags        ir.Flags
}

// ParseSource parses statements separated by newlines or semicolons.
// A statement is a directive (@name(args)), a line of global flags, or an
// instruction. Text after // is a comment.
func ParseSource(src string) (*Source, error) {
	tree, err := sourceParser.ParseString("", src)
	if err != nil {
		return nil, notationError(src, err)
	}
	out := &Source{Flags: ir.Flags{}}
	for _, stmt := range tree.Statements {
		switch {
		case stmt.Directive != nil:
			out.Directives = append(out.Directives, stmt.Directive.build())
		case len(stmt.Flags) > 0:
			for _, f := range stmt.Flags {
				name, v, err := f.build(src)
				if err != nil {
					return nil, err
				}
				out.Flags[name] = v
			}
		case stmt.Instruction != nil:
			in, err := stmt.Instruction.build(src)
			if err != nil {
				return nil, err
			}
			out.Instructions = append(out.Instructions, in)
		}
	}
	return out, nil
}

// ParseInstruction parses one rule in compact notation.
func ParseInstruction(line string) (ir.Instruction, error) {
	node, err := instructionParser.ParseString("", line)
	if err != nil {
		return ir.Instruction{}, notationError(line, err)
	}
	return node.build(line)
}

// ParseFlags parses a whitespace separated list of -name[args] flags.
func ParseFlags(s string) (ir.Flags, error) {
	node, err := flagsParser.ParseString("", s)
	if err != nil {
		return nil, notationError(s, err)
	}
	flags := ir.Flags{}
	for _, f := range node.Flags {
		name, v, err := f.build(s)
		if err != nil {
			return nil, err
		}
		flags[name] = v
	}
	return flags, nil
}

// ParseDirective parses @name(arg, arg). Quotes around arguments are
// removed.
func ParseDirective(s string) (ir.Directive, error) {
	node, err := directiveParser.ParseString("", strings.TrimSpace(s))
	if err != nil {
		return ir.Directive{}, notationError(s, err)
	}
	return node.build(), nil
}

func (n *directiveNode) build() ir.Directive {
	d := ir.Directive{Name: strings.TrimPrefix(n.Name, "@")}
	if n.Call != nil {
		for _, a := range n.Call.Args {
			d.Args = append(d.Args, unquote(a))
		}
	}
	return d
}

func (n *instructionNode) build(src string) (ir.Instruction, error) {
	in := ir.Instruction{
		Source:   sourceText(src, n.Pos.Offset, n.EndPos.Offset),
		Operator: n.Operator,
		Flags:    ir.Flags{},
	}
	for _, s := range n.Selectors {
		sel, err := s.build()
		if err != nil {
			return ir.Instruction{}, positioned(src, s.Pos, err)
		}
		in.Selectors = append(in.Selectors, sel)
	}
	for _, t := range n.Targets {
		tgt, err := parseTarget(n.Operator, t.Value)
		if err != nil {
			return ir.Instruction{}, positioned(src, t.Pos, err)
		}
		in.Targets = append(in.Targets, tgt)
	}
	for _, f := range n.Flags {
		name, v, err := f.build(src)
		if err != nil {
			return ir.Instruction{}, err
		}
		in.Flags[name] = v
	}
	return in, nil
}

func (n *selectorNode) build() (ir.Selector, error) {
	switch {
	case n.Regex != nil:
		return ir.RegexSelector((*n.Regex)[1 : len(*n.Regex)-1]), nil
	case n.Prompt != nil:
		return ir.PromptSelector(strings.TrimSpace((*n.Prompt)[1 : len(*n.Prompt)-1])), nil
	case n.Range != nil:
		return parseRange(n.Range.text())
	default:
		return ir.LiteralSelector(unquote(*n.Literal)), nil
	}
}

func (n *flagNode) build(src string) (string, ir.FlagValue, error) {
	name := n.Name[1:]
	if n.Args == nil {
		return name, ir.BoolFlag(true), nil
	}
	args := n.Args.text()
	if strings.TrimSpace(args) == "" {
		return name, ir.BoolFlag(true), nil
	}
	v, err := ParseFlagValue(args)
	if err != nil {
		return "", ir.FlagValue{}, positioned(src, n.Pos, err)
	}
	return name, v, nil
}

// sourceText returns src[start:end] without trailing separators, blanks or
// comments.
func sourceText(src string, start, end int) string {
	if end <= start || end > len(src) {
		end = len(src)
	}
	s := src[start:end]
	lex, err := notationLexer.LexString("", s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	toks, err := lexer.ConsumeAll(lex)
	if err != nil {
		return strings.TrimSpace(s)
	}
	skip := map[lexer.TokenType]bool{}
	for _, name := range []string{"Whitespace", "Comment", "Sep"} {
		skip[notationLexer.Symbols()[name]] = true
	}
	last := 0
	for _, t := range toks {
		if t.EOF() || skip[t.Type] {
			continue
		}
		last = t.Pos.Offset + len(t.Value)
	}
	return strings.TrimSpace(s[:last])
}

// notationError converts a parse failure into a NotationError carrying the
// offending position.
func notationError(input string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return &NotationError{Input: input, Message: perr.Message(), Line: pos.Line, Column: pos.Column}
	}
	return &NotationError{Input: input, Message: err.Error()}
}

// positioned attaches pos to a value error found after parsing.
func positioned(input string, pos lexer.Position, err error) error {
	msg := err.Error()
	var ne *NotationError
	if errors.As(err, &ne) {
		msg = ne.Message
	}
	return &NotationError{Input: input, Message: msg, Line: pos.Line, Column: pos.Column}
}

// ParseFlagValue parses a flag argument list (the text between brackets):
// inf, true, false, an integer, a name, or start,end.
func ParseFlagValue(args string) (ir.FlagValue, error) {
	parts := strings.Split(args, ",")
	switch len(parts) {
	case 1:
		return parseScalar(strings.TrimSpace(parts[0])), nil
	case 2:
		lo, err := parseBound(parts[0], 0)
		if err != nil {
			return ir.FlagValue{}, err
		}
		hi, err := parseBound(parts[1], ir.Inf)
		if err != nil {
			return ir.FlagValue{}, err
		}
		return ir.RangeFlag(lo, hi), nil
	default:
		return ir.FlagValue{}, &NotationError{Input: args, Message: "expected one value or start,end"}
	}
}

func parseScalar(s string) ir.FlagValue {
	switch s {
	case "inf":
		return ir.IntFlag(ir.Inf)
	case "true":
		return ir.BoolFlag(true)
	case "false":
		return ir.BoolFlag(false)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return ir.IntFlag(n)
	}
	return ir.StringFlag(unquote(s))
}

// parseBound parses one end of a range; an empty bound takes def.
func parseBound(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return def, nil
	case "inf":
		return ir.Inf, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &NotationError{Input: s, Message: "range bound must be an integer or inf"}
	}
	return n, nil
}

// parseRange parses start,end or a single index. A single index selects
// the empty span at that position.
func parseRange(s string) (ir.Selector, error) {
	parts := strings.Split(s, ",")
	switch len(parts) {
	case 1:
		n, err := parseBound(parts[0], 0)
		if err != nil {
			return ir.Selector{}, err
		}
		return ir.RangeSelector(n, n), nil
	case 2:
		lo, err := parseBound(parts[0], 0)
		if err != nil {
			return ir.Selector{}, err
		}
		hi, err := parseBound(parts[1], ir.Inf)
		if err != nil {
			return ir.Selector{}, err
		}
		return ir.RangeSelector(lo, hi), nil
	default:
		return ir.Selector{}, &NotationError{Input: s, Message: "range selector takes one or two bounds"}
	}
}

func parseTarget(op, tok string) (ir.Target, error) {
	kind, sign, err := rule.KindForOperator(op)
	if err != nil {
		return ir.Target{}, err
	}
	if kind == rule.Shift {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return ir.Target{}, &NotationError{Input: tok, Message: "shift amount must be an integer"}
		}
		return ir.OffsetTarget(sign * n), nil
	}
	if tok == emptyTarget {
		return ir.CellsTarget(""), nil
	}
	return ir.CellsTarget(unquote(tok)), nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
