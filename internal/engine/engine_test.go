package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
	"github.com/roach88/ruleflow/internal/vec"
)

func subst(from, to string) *rule.Rule {
	r := rule.New(rule.Substitute, []ir.Selector{ir.LiteralSelector(from)}, []ir.Target{ir.CellsTarget(to)})
	r.ID = from + " -> " + to
	return r
}

func newFlow(t *testing.T, initial string, rules ...*rule.Rule) *Flow {
	t.Helper()
	f, err := New(rule.NewRuleSet(rules...), []string{initial},
		WithIDGenerator(NewFixedGenerator("flow-test")))
	require.NoError(t, err)
	return f
}

func texts(ev *Event) []string {
	spaces := ev.Spaces()
	out := make([]string, len(spaces))
	for i, sp := range spaces {
		out[i] = sp.String()
	}
	return out
}

type recordingObserver struct {
	steps []int
	inert []int
}

func (o *recordingObserver) OnStep(_ string, ev *Event)  { o.steps = append(o.steps, ev.Time) }
func (o *recordingObserver) OnInert(_ string, ev *Event) { o.inert = append(o.inert, ev.Time) }

func TestFlow_InitialEvent(t *testing.T) {
	f := newFlow(t, "AB")

	require.Len(t, f.Events(), 1)
	ev := f.Current()
	assert.Equal(t, 0, ev.Time)
	assert.Equal(t, 0, ev.CausalDistance)
	assert.Empty(t, ev.Results)
	assert.Equal(t, []string{"AB"}, texts(ev))
	for _, c := range ev.Spaces()[0].Cells() {
		assert.Equal(t, 0, c.CreatedAt)
		assert.False(t, c.Destroyed())
	}
}

func TestFlow_New_RequiresInitialSpace(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeInvalidInitialSpace, re.Code)
}

func TestFlow_New_RejectsInvalidRule(t *testing.T) {
	bad := rule.New(rule.Substitute, nil, []ir.Target{ir.CellsTarget("A")})
	_, err := New(rule.NewRuleSet(bad), []string{"AB"})
	assert.Error(t, err)
}

func TestFlow_Causality_FirstStepTracesToInitialEvent(t *testing.T) {
	f := newFlow(t, "AB", subst("ABA", "AAB"), subst("A", "ABA"))

	ev, err := f.Evolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, ev.Time)
	assert.False(t, ev.Inert)
	assert.Equal(t, []int{0}, ev.CausalPredecessors())
	assert.Equal(t, 1, ev.CausalDistance)
	assert.Equal(t, []string{"ABAB"}, texts(ev))
}

func TestFlow_Causality_SecondStepTracesToFirst(t *testing.T) {
	f := newFlow(t, "AB", subst("ABA", "AAB"), subst("A", "ABA"))

	_, err := f.EvolveN(context.Background(), 2)
	require.NoError(t, err)

	ev := f.Current()
	assert.Equal(t, 2, ev.Time)
	// ABA -> AAB fires and breaks group 0, so A -> ABA is skipped.
	assert.Equal(t, []string{"AABB"}, texts(ev))
	assert.Equal(t, []int{1}, ev.CausalPredecessors())
	assert.Equal(t, 2, ev.CausalDistance)
	assert.Equal(t, []string{"ABA -> AAB"}, ev.Rules())
}

func TestFlow_Scenario_RepeatedSubstitution(t *testing.T) {
	f := newFlow(t, "AB", subst("A", "ABA"))

	n, err := f.EvolveN(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := []string{"AB", "ABAB", "ABABAB", "ABABABAB"}
	require.Len(t, f.Events(), len(want))
	for i, ev := range f.Events() {
		assert.Equal(t, i, ev.Time)
		assert.Equal(t, []string{want[i]}, texts(ev), "event %d", i)
	}
	assert.Equal(t, 3, f.Current().CausalDistance)
}

func TestFlow_Stamping(t *testing.T) {
	f := newFlow(t, "AB", subst("A", "ABA"))

	ev, err := f.Evolve(context.Background())
	require.NoError(t, err)

	cells := ev.Spaces()[0].Cells()
	require.Len(t, cells, 4)
	for _, c := range cells[:3] {
		assert.Equal(t, 1, c.CreatedAt)
	}
	assert.Equal(t, 0, cells[3].CreatedAt, "untouched cell keeps its creation time")

	affected := ev.AffectedCells()
	require.Len(t, affected, 1)
	require.Len(t, affected[0].Destroyed, 1)
	assert.Equal(t, 0, affected[0].Destroyed[0].CreatedAt)
	assert.Equal(t, 1, affected[0].Destroyed[0].DestroyedAt)

	// The initial event's cells are untouched.
	for _, c := range f.Events()[0].Spaces()[0].Cells() {
		assert.False(t, c.Destroyed())
	}
}

func TestFlow_Inertness(t *testing.T) {
	f := newFlow(t, "AB", subst("Z", "Q"))

	ev, err := f.Evolve(context.Background())
	require.NoError(t, err)
	assert.True(t, ev.Inert)
	assert.Equal(t, 0, ev.Time)
	assert.Len(t, f.Events(), 1)

	n, err := f.EvolveUntilInert(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, f.Events(), 1)
}

func TestFlow_EvolveUntilInert_FreshFlowTerminatesImmediately(t *testing.T) {
	f := newFlow(t, "AB", subst("Z", "Q"))

	n, err := f.EvolveUntilInert(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, f.Current().Inert)
}

func TestFlow_EvolveUntilInert_Terminates(t *testing.T) {
	f := newFlow(t, "AAA", subst("A", "B"))

	n, err := f.EvolveUntilInert(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"BBB"}, texts(f.Current()))
	assert.True(t, f.Current().Inert)
}

func TestFlow_EvolveN_StopsWhenInert(t *testing.T) {
	f := newFlow(t, "A", subst("A", "B"))

	n, err := f.EvolveN(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.Current().Inert)
}

func TestFlow_Evolve_ErrorAppendsNoEvent(t *testing.T) {
	bad := rule.New(rule.Substitute, []ir.Selector{ir.RegexSelector("(")}, []ir.Target{ir.CellsTarget("A")})
	f := newFlow(t, "AB", bad)

	ev, err := f.Evolve(context.Background())
	require.Error(t, err)
	assert.Nil(t, ev)
	assert.True(t, IsRuleError(err))
	assert.True(t, vec.IsPatternCompileError(err))
	assert.Len(t, f.Events(), 1)
	assert.False(t, f.Current().Inert)

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "flow-test", re.FlowID)
	assert.Equal(t, "1", re.Details["step"])
}

func TestFlow_EvolveN_Cancelled(t *testing.T) {
	f := newFlow(t, "AB", subst("A", "ABA"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := f.EvolveN(ctx, 3)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, n)
	assert.Len(t, f.Events(), 1)
}

func TestFlow_Observer(t *testing.T) {
	obs := &recordingObserver{}
	f, err := New(rule.NewRuleSet(subst("A", "B")), []string{"AA"}, WithObserver(obs))
	require.NoError(t, err)

	_, err = f.EvolveUntilInert(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, obs.steps)
	assert.Equal(t, []int{2}, obs.inert)
}

func TestFlow_Reset(t *testing.T) {
	f := newFlow(t, "AB", subst("A", "ABA"))
	_, err := f.EvolveN(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, f.Events(), 3)

	f.Reset()
	require.Len(t, f.Events(), 1)
	assert.Equal(t, []string{"AB"}, texts(f.Current()))
	assert.Empty(t, f.Edges())

	ev, err := f.Evolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Time)
}

func TestFlow_SharedCache(t *testing.T) {
	cache := vec.MustNewCache(8)
	f, err := New(rule.NewRuleSet(subst("A", "ABA")), []string{"AB"}, WithCache(cache))
	require.NoError(t, err)

	_, err = f.EvolveN(context.Background(), 3)
	require.NoError(t, err)
	literals, _ := cache.Len()
	assert.Positive(t, literals)
	assert.Positive(t, f.Stats().Rebuilds.Load())
}
