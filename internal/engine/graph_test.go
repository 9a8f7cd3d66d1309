package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruleflow/internal/ir"
)

func TestFlow_Graph(t *testing.T) {
	f := newFlow(t, "AB", subst("A", "ABA"))
	_, err := f.EvolveN(context.Background(), 3)
	require.NoError(t, err)

	g := f.Graph()
	require.Len(t, g.Nodes, 4)
	assert.Empty(t, g.Nodes[0].Predecessors)
	assert.Equal(t, []int{0}, g.Nodes[1].Predecessors)
	assert.Equal(t, []int{1}, g.Nodes[2].Predecessors)
	assert.Equal(t, 3, g.Nodes[3].CausalDistance)

	assert.Equal(t, []ir.Edge{
		{From: 0, To: 1, Count: 1},
		{From: 1, To: 2, Count: 1},
		{From: 2, To: 3, Count: 1},
	}, g.Edges)
}

func TestFlow_Edges_Multiplicity(t *testing.T) {
	f := newFlow(t, "AB", subst("AB", "BA"))
	_, err := f.Evolve(context.Background())
	require.NoError(t, err)

	// Both destroyed cells were created at time 0.
	assert.Equal(t, []ir.Edge{{From: 0, To: 1, Count: 2}}, f.Edges())
}

func TestFlow_Snapshot(t *testing.T) {
	f, err := New(nil, []string{"AB"},
		WithIDGenerator(NewFixedGenerator("snap")),
		WithSpecHash("abc123"))
	require.NoError(t, err)
	f.rules.Rules = append(f.rules.Rules, subst("A", "ABA"))

	_, err = f.EvolveUntilInert(context.Background(), 2)
	require.Error(t, err)

	snap := f.Snapshot()
	assert.Equal(t, "snap", snap.FlowID)
	assert.Equal(t, "abc123", snap.SpecHash)
	require.Len(t, snap.Events, 3)

	first := snap.Events[1]
	assert.Equal(t, 1, first.Time)
	assert.Equal(t, []string{"ABAB"}, first.Spaces)
	assert.Equal(t, []string{"A -> ABA"}, first.Rules)
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 1, first.Destroyed)
	assert.Equal(t, []int{0}, first.Predecessors)

	assert.Equal(t, []string{"ABABAB"}, snap.FinalSpaces())
}
