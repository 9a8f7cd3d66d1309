package rule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/space"
)

func subst(from, to string) *Rule {
	return New(Substitute, []ir.Selector{ir.LiteralSelector(from)}, []ir.Target{ir.CellsTarget(to)})
}

func spaces(texts ...string) []*space.Space {
	out := make([]*space.Space, len(texts))
	for i, t := range texts {
		out[i] = space.FromString(t)
	}
	return out
}

func outputs(ds DeltaSpace) []string {
	out := make([]string, len(ds.Outputs))
	for i, o := range ds.Outputs {
		if o == nil {
			out[i] = "<nil>"
			continue
		}
		out[i] = o.String()
	}
	return out
}

func matchAndApply(t *testing.T, r *Rule, sp ...*space.Space) []DeltaSpace {
	t.Helper()
	require.NoError(t, r.Validate())
	matches, err := r.Match(context.Background(), sp)
	require.NoError(t, err)
	results, err := r.Apply(matches, nil)
	require.NoError(t, err)
	return results
}

func TestKindForOperator(t *testing.T) {
	tests := []struct {
		op   string
		kind Kind
		sign int
	}{
		{"->", Substitute, 1},
		{">", Insert, 1},
		{"-->", Overwrite, 1},
		{"><", Delete, 1},
		{">>", Shift, 1},
		{"<<", Shift, -1},
		{">><<", Reverse, 1},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			kind, sign, err := KindForOperator(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.sign, sign)
		})
	}

	_, _, err := KindForOperator("=>")
	var uoe *UnknownOperatorError
	require.ErrorAs(t, err, &uoe)
}

func TestNewDefaults(t *testing.T) {
	r := subst("A", "B")
	assert.Equal(t, [2]int{0, 1}, r.SpaceRange)
	assert.Equal(t, [2]int{0, 1}, r.MatchRange)
	assert.Equal(t, 1, r.ParallelLimit)
	assert.Equal(t, 0, r.BranchLimit)
	assert.Equal(t, OriginPrevious, r.BranchOrigin)
	assert.Equal(t, MarkIgnore, r.ConflictMark)
	assert.Equal(t, ResolveIgnore, r.ConflictResolution)
	assert.Equal(t, DefaultGroup, r.Group)
	assert.True(t, r.GroupBreak)
	assert.Equal(t, ir.Inf, r.Lifespan)
}

func TestValidate(t *testing.T) {
	assert.Error(t, New(Substitute, nil, []ir.Target{ir.CellsTarget("A")}).Validate())
	assert.Error(t, New(Substitute, []ir.Selector{ir.LiteralSelector("A")}, nil).Validate())
	assert.Error(t, New(Shift, []ir.Selector{ir.LiteralSelector("A")}, []ir.Target{ir.CellsTarget("A")}).Validate())
	assert.Error(t, New(Insert, []ir.Selector{ir.LiteralSelector("A")}, []ir.Target{ir.OffsetTarget(1)}).Validate())
	assert.NoError(t, New(Delete, []ir.Selector{ir.LiteralSelector("A")}, nil).Validate())

	err := New(Delete, []ir.Selector{ir.PromptSelector("x")}, nil).Validate()
	assert.True(t, ir.IsUnknownKind(err))

	r := subst("A", "B")
	r.ParallelLimit = 0
	assert.True(t, IsFlagError(r.Validate()))
}

func TestMatchConflictMarkBoth(t *testing.T) {
	r := subst("ABA", "X")
	r.MatchRange = [2]int{0, ir.Inf}
	r.ConflictMark = MarkBoth

	matches, err := r.Match(context.Background(), spaces("ABABA"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, []ir.Span{{Start: 0, End: 3}, {Start: 2, End: 5}}, m.Spans)
	assert.Equal(t, map[int]bool{0: true, 1: true}, m.Conflicts)
}

func TestMatchConflictMarkNewAndOriginal(t *testing.T) {
	for _, tt := range []struct {
		mark ConflictMark
		want map[int]bool
	}{
		{MarkNew, map[int]bool{1: true}},
		{MarkOriginal, map[int]bool{0: true}},
		{MarkIgnore, map[int]bool{}},
	} {
		t.Run(tt.mark.String(), func(t *testing.T) {
			r := subst("ABA", "X")
			r.MatchRange = [2]int{0, ir.Inf}
			r.ConflictMark = tt.mark

			matches, err := r.Match(context.Background(), spaces("ABABA"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, matches[0].Conflicts)
		})
	}
}

func TestMatchWindows(t *testing.T) {
	r := subst("A", "B")
	r.SpaceRange = [2]int{1, 3}
	r.MatchRange = [2]int{1, 3}
	r.Offset = 1

	matches, err := r.Match(context.Background(), spaces("AAAA", "AAAA", "BAB", "AAAA"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "only the second space has a second match")
	assert.Equal(t, 1, matches[0].SpaceIndex)
	assert.Equal(t, []ir.Span{{Start: 2, End: 3}, {Start: 3, End: 4}}, matches[0].Spans)
}

func TestMatchNoMatchIsNotAnError(t *testing.T) {
	matches, err := subst("Q", "B").Match(context.Background(), spaces("AB"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchParallelKeepsSpaceOrder(t *testing.T) {
	r := subst("A", "B")
	r.SpaceRange = [2]int{0, ir.Inf}
	in := spaces("A", "B", "AA", "BA", "C", "AAA", "A", "B")

	seq, err := r.Match(context.Background(), in)
	require.NoError(t, err)
	par, err := r.MatchParallel(context.Background(), in, 4)
	require.NoError(t, err)

	require.Len(t, par, len(seq))
	for i := range seq {
		assert.Equal(t, seq[i].SpaceIndex, par[i].SpaceIndex)
		assert.Equal(t, seq[i].Spans, par[i].Spans)
	}
	assert.Equal(t, []int{0, 2, 3, 5, 6}, func() []int {
		var idx []int
		for _, m := range par {
			idx = append(idx, m.SpaceIndex)
		}
		return idx
	}())
}

func TestMatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := subst("A", "B").Match(ctx, spaces("A"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyDefaultSingleOutput(t *testing.T) {
	in := space.FromString("AB")
	results := matchAndApply(t, subst("A", "ABA"), in)

	require.Len(t, results, 1)
	assert.Equal(t, []string{"ABAB"}, outputs(results[0]))
	assert.Equal(t, "AB", in.String(), "input space is not mutated")
	assert.Same(t, in, results[0].Input)

	dc := results[0].CellDeltas[0]
	assert.Equal(t, "A", ir.Text(dc.Destroyed))
	assert.Equal(t, "ABA", ir.Text(dc.Created))
}

func TestApplyParallelLimitAccumulates(t *testing.T) {
	r := subst("A", "B")
	r.MatchRange = [2]int{0, ir.Inf}
	r.ParallelLimit = ir.Inf

	results := matchAndApply(t, r, space.FromString("AAA"))
	require.Len(t, results, 1)
	assert.Equal(t, []string{"BBB"}, outputs(results[0]))
	assert.Equal(t, "AAA", ir.Text(results[0].CellDeltas[0].Destroyed))
}

func TestApplyBranchesPerMatch(t *testing.T) {
	r := subst("A", "B")
	r.MatchRange = [2]int{0, ir.Inf}
	r.BranchLimit = ir.Inf

	results := matchAndApply(t, r, space.FromString("AA"))
	require.Len(t, results, 1)
	assert.Equal(t, []string{"BA", "AB"}, outputs(results[0]))
}

func TestApplyBranchLimitStops(t *testing.T) {
	r := subst("A", "B")
	r.MatchRange = [2]int{0, ir.Inf}
	r.BranchLimit = 1

	results := matchAndApply(t, r, space.FromString("AAA"))
	assert.Equal(t, []string{"BAA", "ABA"}, outputs(results[0]))
}

func TestApplyBranchOriginCurrent(t *testing.T) {
	r := subst("A", "B")
	r.MatchRange = [2]int{0, ir.Inf}
	r.BranchLimit = ir.Inf
	r.BranchOrigin = OriginCurrent

	results := matchAndApply(t, r, space.FromString("AAA"))
	assert.Equal(t, []string{"BAA", "BBA", "BBB"}, outputs(results[0]))
}

func TestApplyPositionDrift(t *testing.T) {
	r := subst("A", "XYZ")
	r.MatchRange = [2]int{0, ir.Inf}
	r.ParallelLimit = ir.Inf

	results := matchAndApply(t, r, space.FromString("ABAB"))
	assert.Equal(t, []string{"XYZBXYZB"}, outputs(results[0]))

	d := New(Delete, []ir.Selector{ir.LiteralSelector("A")}, nil)
	d.MatchRange = [2]int{0, ir.Inf}
	d.ParallelLimit = ir.Inf
	results = matchAndApply(t, d, space.FromString("ABAB"))
	assert.Equal(t, []string{"BB"}, outputs(results[0]))
}

func conflicting(res ConflictResolution) *Rule {
	r := subst("ABA", "X")
	r.MatchRange = [2]int{0, ir.Inf}
	r.ParallelLimit = ir.Inf
	r.ConflictMark = MarkBoth
	r.ConflictResolution = res
	return r
}

func TestApplyConflictSkip(t *testing.T) {
	r := conflicting(ResolveSkip)
	r.Lifespan = 1
	results := matchAndApply(t, r, space.FromString("ABABA"))

	assert.Empty(t, results)
	assert.False(t, r.Disabled, "a rule that produced nothing keeps its lifespan")
	assert.Equal(t, 1, r.Lifespan)
}

func TestApplyConflictBranchNoLimit(t *testing.T) {
	results := matchAndApply(t, conflicting(ResolveBranchNoLimit), space.FromString("ABABA"))
	require.Len(t, results, 1)
	assert.Equal(t, []string{"XBA", "ABX"}, outputs(results[0]))
}

func TestApplyConflictBranchRespectsBudget(t *testing.T) {
	r := conflicting(ResolveBranch)
	assert.Empty(t, matchAndApply(t, r, space.FromString("ABABA")))

	r = conflicting(ResolveBranch)
	r.BranchLimit = 1
	results := matchAndApply(t, r, space.FromString("ABABA"))
	require.Len(t, results, 1)
	assert.Equal(t, []string{"XBA"}, outputs(results[0]))
}

func TestApplyConflictBreakFlushesPending(t *testing.T) {
	r := conflicting(ResolveBreak)
	r.ConflictMark = MarkNew

	results := matchAndApply(t, r, space.FromString("ABABA"))
	require.Len(t, results, 1)
	assert.Equal(t, []string{"XBA"}, outputs(results[0]))
}

func TestApplyTargetsCycle(t *testing.T) {
	r := New(Substitute, []ir.Selector{ir.LiteralSelector("A")}, []ir.Target{ir.CellsTarget("B"), ir.CellsTarget("C")})
	r.MatchRange = [2]int{0, ir.Inf}
	r.ParallelLimit = ir.Inf

	results := matchAndApply(t, r, space.FromString("AAA"))
	assert.Equal(t, []string{"BCB"}, outputs(results[0]))
}

func TestApplyCreatesFreshCells(t *testing.T) {
	r := subst("A", "B")
	r.MatchRange = [2]int{0, ir.Inf}
	r.ParallelLimit = ir.Inf

	results := matchAndApply(t, r, space.FromString("AA"))
	created := results[0].CellDeltas[0].Created
	require.Len(t, created, 2)
	assert.NotSame(t, created[0], created[1])
	assert.NotSame(t, r.Targets[0].Cells[0], created[0])
}

func TestApplyLifespan(t *testing.T) {
	r := subst("A", "B")
	r.Lifespan = 2

	matchAndApply(t, r, space.FromString("A"))
	assert.False(t, r.Disabled)
	matchAndApply(t, r, space.FromString("A"))
	assert.True(t, r.Disabled)
	assert.Equal(t, 0, r.Lifespan)
}

func TestApplySubmitFlags(t *testing.T) {
	r := subst("A", "B")
	r.NoDeltaSubmit = true
	r.NoCausalityTracking = true

	results := matchAndApply(t, r, space.FromString("A"))
	require.Len(t, results, 1)
	assert.Equal(t, []string{"<nil>"}, outputs(results[0]))
	assert.False(t, results[0].CellDeltas[0].Changed())
}

func TestApplyNoInitialBranchMutatesInput(t *testing.T) {
	r := subst("A", "B")
	r.NoInitialBranch = true
	in := space.FromString("AC")

	results := matchAndApply(t, r, in)
	assert.Equal(t, "BC", in.String())
	assert.Same(t, in, results[0].Outputs[0])
}

func TestApplyPropagatesPrimitiveErrors(t *testing.T) {
	r := New(Insert, []ir.Selector{ir.LiteralSelector("A")}, []ir.Target{ir.CellsTarget("X")})
	r.Offset = 10

	matches, err := r.Match(context.Background(), spaces("AB"))
	require.NoError(t, err)
	_, err = r.Apply(matches, nil)

	var ae *ApplyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 0, ae.Match)
	assert.True(t, space.IsInvalidRangeError(err))
}

func TestApplyShiftAndReverse(t *testing.T) {
	shift := New(Shift, []ir.Selector{ir.LiteralSelector("X")}, []ir.Target{ir.OffsetTarget(-2)})
	results := matchAndApply(t, shift, space.FromString("ABX"))
	assert.Equal(t, []string{"XAB"}, outputs(results[0]))
	assert.False(t, results[0].CellDeltas[0].Changed())

	rev := New(Reverse, []ir.Selector{ir.RangeSelector(0, -1)}, nil)
	results = matchAndApply(t, rev, space.FromString("ABCD"))
	assert.Equal(t, []string{"CBAD"}, outputs(results[0]))
}

func TestApplyOverwriteAndInsert(t *testing.T) {
	ow := New(Overwrite, []ir.Selector{ir.LiteralSelector("ABC")}, []ir.Target{ir.CellsTarget("_x_")})
	results := matchAndApply(t, ow, space.FromString("ABCABC"))
	assert.Equal(t, []string{"AxCABC"}, outputs(results[0]))
	assert.Equal(t, "B", ir.Text(results[0].CellDeltas[0].Destroyed))

	ins := New(Insert, []ir.Selector{ir.RegexSelector("C")}, []ir.Target{ir.CellsTarget("--")})
	results = matchAndApply(t, ins, space.FromString("ABC"))
	assert.Equal(t, []string{"AB--C"}, outputs(results[0]))
}
