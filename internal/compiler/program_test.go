package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruleflow/internal/ir"
)

func TestCompileProgramBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		program: growth: {
			init: "AB"
			flags: { pl: 1, mr: [0, "inf"] }
			groups: "1": { gb: false }
			rules: [
				"ABA -> AAB",
				{ rule: "A -> ABA", flags: { life: 3, g: 1 } },
			]
			directives: ["@compress(1)"]
			steps: 5
			max_steps: 50
		}
	`)
	require.NoError(t, v.Err())

	prog, err := CompileProgram(v.LookupPath(cue.ParsePath("program.growth")))
	require.NoError(t, err)

	assert.Equal(t, "growth", prog.Name)
	assert.Equal(t, []string{"AB"}, prog.Init)
	assert.Equal(t, ir.IntFlag(1), prog.Flags["pl"])
	assert.Equal(t, ir.RangeFlag(0, ir.Inf), prog.Flags["mr"])
	assert.Equal(t, ir.BoolFlag(false), prog.GroupFlags["1"]["gb"])
	require.Len(t, prog.Instructions, 2)
	assert.Equal(t, "ABA -> AAB", prog.Instructions[0].Source)
	assert.Equal(t, ir.IntFlag(3), prog.Instructions[1].Flags["life"])
	assert.Equal(t, ir.IntFlag(1), prog.Instructions[1].Flags["g"])
	assert.Equal(t, []ir.Directive{{Name: "compress", Args: []string{"1"}}}, prog.Directives)
	assert.Equal(t, 5, prog.Steps)
	assert.Equal(t, 50, prog.MaxSteps)
	assert.False(t, prog.UntilInert)
}

func TestCompileProgram_InitList(t *testing.T) {
	prog, err := CompileString(`
		init: ["AB", "BA"]
		rules: ["A -> B"]
		until_inert: true
	`, "multi.cue")
	require.NoError(t, err)

	assert.Equal(t, []string{"AB", "BA"}, prog.Init)
	assert.True(t, prog.UntilInert)
}

func TestCompileProgram_RulesRequired(t *testing.T) {
	_, err := CompileString(`init: "AB"`, "empty.cue")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "rules", ce.Field)
}

func TestCompileProgram_DecodeNeedsNoRules(t *testing.T) {
	prog, err := CompileString(`
		init: "AAABAAA"
		directives: ["@import(ca_presets)", "@decode(wns, AB, 30)"]
	`, "ca.cue")
	require.NoError(t, err)
	assert.Empty(t, prog.Instructions)
	assert.Len(t, prog.Directives, 2)
}

func TestCompileProgram_FloatFlagForbidden(t *testing.T) {
	_, err := CompileString(`
		init: "AB"
		flags: { pl: 1.5 }
		rules: ["A -> B"]
	`, "float.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestCompileProgram_BadRule(t *testing.T) {
	_, err := CompileString(`
		init: "AB"
		rules: ["A B"]
	`, "bad.cue")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "rules[0]", ce.Field)
	assert.Contains(t, ce.Error(), "no operator")
}

func TestCompileProgram_BadRangeFlag(t *testing.T) {
	_, err := CompileString(`
		init: "AB"
		flags: { mr: [0, 1, 2] }
		rules: ["A -> B"]
	`, "range.cue")
	assert.Error(t, err)
}

func TestCompileString_MultiplePrograms(t *testing.T) {
	_, err := CompileString(`
		program: a: { init: "A", rules: ["A -> B"] }
		program: b: { init: "B", rules: ["B -> A"] }
	`, "two.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one program")
}

func TestCompileAll(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		program: a: { init: "A", rules: ["A -> B"] }
		program: b: { init: "B", rules: ["B -> A"] }
	`)
	progs, err := CompileAll(v)
	require.NoError(t, err)
	require.Len(t, progs, 2)
	assert.Equal(t, "a", progs[0].Name)
	assert.Equal(t, "b", progs[1].Name)
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
		program: demo: {
			init: "AB"
			rules: ["A -> ABA"]
			steps: 3
		}
	`), 0o644))

	prog, err := CompileFile(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", prog.Name)
	assert.Equal(t, 3, prog.Steps)

	_, err = CompileFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestCompileString_CUESyntaxError(t *testing.T) {
	_, err := CompileString(`init: "AB`, "syntax.cue")
	require.Error(t, err)
}
