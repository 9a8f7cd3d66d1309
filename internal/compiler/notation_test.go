package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruleflow/internal/ir"
)

func TestParseInstruction_Substitute(t *testing.T) {
	in, err := ParseInstruction("ABA -> AAB")
	require.NoError(t, err)

	assert.Equal(t, "ABA -> AAB", in.Source)
	assert.Equal(t, "->", in.Operator)
	require.Len(t, in.Selectors, 1)
	assert.Equal(t, ir.SelectorLiteral, in.Selectors[0].Kind)
	assert.Equal(t, "ABA", in.Selectors[0].String())
	require.Len(t, in.Targets, 1)
	assert.Equal(t, "AAB", in.Targets[0].String())
	assert.Empty(t, in.Flags)
}

func TestParseInstruction_Flags(t *testing.T) {
	in, err := ParseInstruction("A -> B -pl[inf] -mr[0, inf] -a -cmp[both] -life[3] -sr[2]")
	require.NoError(t, err)

	assert.Equal(t, ir.IntFlag(ir.Inf), in.Flags["pl"])
	assert.Equal(t, ir.RangeFlag(0, ir.Inf), in.Flags["mr"])
	assert.Equal(t, ir.BoolFlag(true), in.Flags["a"])
	assert.Equal(t, ir.StringFlag("both"), in.Flags["cmp"])
	assert.Equal(t, ir.IntFlag(3), in.Flags["life"])
	assert.Equal(t, ir.IntFlag(2), in.Flags["sr"])
}

func TestParseInstruction_SelectorForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ir.SelectorKind
		str   string
	}{
		{"literal with wildcard", "A_B -> C", ir.SelectorLiteral, "A_B"},
		{"regex", "/B{4,}$/ >< ", ir.SelectorRegex, "/B{4,}$/"},
		{"regex with spaces and slash", `/A \/ B/ -> C`, ir.SelectorRegex, `/A \/ B/`},
		{"range", "[0,3] >><<", ir.SelectorRange, "[0,3]"},
		{"range open end", "[2,] >><<", ir.SelectorRange, "[2,9223372036854775807]"},
		{"single index", "[1] > X", ir.SelectorRange, "[1,1]"},
		{"prompt", "{two Bs in a row} -> C", ir.SelectorPrompt, "{two Bs in a row}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseInstruction(tt.input)
			require.NoError(t, err)
			require.Len(t, in.Selectors, 1)
			assert.Equal(t, tt.kind, in.Selectors[0].Kind)
			assert.Equal(t, tt.str, in.Selectors[0].String())
		})
	}
}

func TestParseInstruction_Alternatives(t *testing.T) {
	in, err := ParseInstruction("A|B -> X|Y")
	require.NoError(t, err)

	require.Len(t, in.Selectors, 2)
	assert.Equal(t, "A", in.Selectors[0].String())
	assert.Equal(t, "B", in.Selectors[1].String())
	require.Len(t, in.Targets, 2)
	assert.Equal(t, "X", in.Targets[0].String())
	assert.Equal(t, "Y", in.Targets[1].String())
}

func TestParseInstruction_Shift(t *testing.T) {
	right, err := ParseInstruction("[0,3] >> 2")
	require.NoError(t, err)
	require.Len(t, right.Targets, 1)
	assert.Equal(t, ir.OffsetTarget(2), right.Targets[0])

	left, err := ParseInstruction("[0,3] << 2")
	require.NoError(t, err)
	assert.Equal(t, ir.OffsetTarget(-2), left.Targets[0])

	_, err = ParseInstruction("[0,3] >> X")
	assert.Error(t, err)
}

func TestParseInstruction_EmptyTarget(t *testing.T) {
	in, err := ParseInstruction(`AB -> ""`)
	require.NoError(t, err)
	require.Len(t, in.Targets, 1)
	assert.Empty(t, in.Targets[0].Cells)
}

func TestParseInstruction_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no operator", "A B"},
		{"no selector", "-> A"},
		{"unterminated regex", "/AB -> C"},
		{"unterminated prompt", "{AB -> C"},
		{"unterminated flag", "A -> B -pl[3"},
		{"bad range bound", "[x,2] >><<"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInstruction(tt.input)
			require.Error(t, err)
		})
	}
}

func TestParseInstruction_ErrorPositions(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		column int
	}{
		{"bad range bound", "[x,2] >><<", 1, 1},
		{"bad flag value", "AB -> X -pl[1,2,3]", 1, 9},
		{"bad shift amount", "[0,3] >> X", 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInstruction(tt.input)
			var ne *NotationError
			require.ErrorAs(t, err, &ne)
			assert.Equal(t, tt.input, ne.Input)
			assert.Equal(t, tt.line, ne.Line)
			assert.Equal(t, tt.column, ne.Column)
		})
	}

	_, err := ParseInstruction("A B")
	var ne *NotationError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 1, ne.Line)
	assert.Positive(t, ne.Column)
	assert.Contains(t, err.Error(), `"A B":1:`)
}

func TestParseInstruction_RegexEscapes(t *testing.T) {
	in, err := ParseInstruction(`/(.)\1/ -> X`)
	require.NoError(t, err)
	require.Len(t, in.Selectors, 1)
	assert.Equal(t, `(.)\1`, in.Selectors[0].Pattern)
}

func TestParseSource_ErrorLine(t *testing.T) {
	_, err := ParseSource("A -> B\n[0,3] >> X")
	var ne *NotationError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 2, ne.Line)
	assert.Equal(t, 10, ne.Column)
}

func TestParseSource_SourceOmitsComment(t *testing.T) {
	out, err := ParseSource("A -> B -pl[2] // first\nC -> D")
	require.NoError(t, err)
	require.Len(t, out.Instructions, 2)
	assert.Equal(t, "A -> B -pl[2]", out.Instructions[0].Source)
	assert.Equal(t, "C -> D", out.Instructions[1].Source)
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		input string
		want  ir.Directive
	}{
		{"@merge(0)", ir.Directive{Name: "merge", Args: []string{"0"}}},
		{"@decode(wns, AB, 30)", ir.Directive{Name: "decode", Args: []string{"wns", "AB", "30"}}},
		{`@init("AB", "BA")`, ir.Directive{Name: "init", Args: []string{"AB", "BA"}}},
		{"@print()", ir.Directive{Name: "print"}},
		{"@print", ir.Directive{Name: "print"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDirective(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}

	_, err := ParseDirective("merge(0)")
	assert.Error(t, err)
	_, err = ParseDirective("@merge(0")
	assert.Error(t, err)
}

func TestParseFlagValue(t *testing.T) {
	tests := []struct {
		input string
		want  ir.FlagValue
	}{
		{"inf", ir.IntFlag(ir.Inf)},
		{"7", ir.IntFlag(7)},
		{"-1", ir.IntFlag(-1)},
		{"true", ir.BoolFlag(true)},
		{"false", ir.BoolFlag(false)},
		{"branch", ir.StringFlag("branch")},
		{"1,4", ir.RangeFlag(1, 4)},
		{",4", ir.RangeFlag(0, 4)},
		{"2,", ir.RangeFlag(2, ir.Inf)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseFlagValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}

	_, err := ParseFlagValue("1,2,3")
	assert.Error(t, err)
}

func TestParseSource(t *testing.T) {
	src := `
	// growth with a cap
	@init(AB);
	-pl[inf]
	-mr[0,inf]
	ABA -> AAB; A -> ABA -life[2]
	/A;B/ -> C
	@merge(0)
	`
	out, err := ParseSource(src)
	require.NoError(t, err)

	require.Len(t, out.Directives, 2)
	assert.Equal(t, "init", out.Directives[0].Name)
	assert.Equal(t, "merge", out.Directives[1].Name)

	assert.Equal(t, ir.IntFlag(ir.Inf), out.Flags["pl"])
	assert.Equal(t, ir.RangeFlag(0, ir.Inf), out.Flags["mr"])

	require.Len(t, out.Instructions, 3)
	assert.Equal(t, "ABA -> AAB", out.Instructions[0].Source)
	assert.Equal(t, ir.IntFlag(2), out.Instructions[1].Flags["life"])
	assert.Equal(t, "/A;B/", out.Instructions[2].Selectors[0].String())
}

func TestParseSource_Preset(t *testing.T) {
	out, err := ParseSource(BuiltinImports["ca_presets"])
	require.NoError(t, err)

	assert.Equal(t, []ir.Directive{{Name: "merge", Args: []string{"0"}}}, out.Directives)
	assert.Len(t, out.Flags, 2)
	assert.Empty(t, out.Instructions)
}
