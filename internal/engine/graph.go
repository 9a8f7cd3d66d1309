package engine

import (
	"sort"

	"github.com/roach88/ruleflow/internal/ir"
)

// GraphNode is one event in the causal graph.
type GraphNode struct {
	Time           int
	CausalDistance int
	Predecessors   []int
	Inert          bool
}

// Graph is the causal graph of a flow: nodes are event times and edges run
// from the event that created a cell to the event that destroyed it.
type Graph struct {
	Nodes []GraphNode
	Edges []ir.Edge
}

// Edges returns every causal edge with its multiplicity, ordered by
// (From, To).
func (f *Flow) Edges() []ir.Edge {
	edges := make([]ir.Edge, 0, len(f.edges))
	for k, n := range f.edges {
		edges = append(edges, ir.Edge{From: k[0], To: k[1], Count: n})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// Graph returns a read-only projection of the flow's causal structure.
func (f *Flow) Graph() Graph {
	g := Graph{Nodes: make([]GraphNode, len(f.events)), Edges: f.Edges()}
	for i, ev := range f.events {
		g.Nodes[i] = GraphNode{
			Time:           ev.Time,
			CausalDistance: ev.CausalDistance,
			Predecessors:   ev.CausalPredecessors(),
			Inert:          ev.Inert,
		}
	}
	return g
}

// Snapshot flattens the flow into exportable records.
func (f *Flow) Snapshot() ir.FlowSnapshot {
	snap := ir.FlowSnapshot{
		FlowID:   f.id,
		SpecHash: f.specHash,
		Events:   make([]ir.EventRecord, len(f.events)),
		Edges:    f.Edges(),
	}
	for i, ev := range f.events {
		spaces := ev.Spaces()
		texts := make([]string, len(spaces))
		for j, sp := range spaces {
			texts[j] = sp.String()
		}
		created, destroyed := ev.CellCounts()
		snap.Events[i] = ir.EventRecord{
			Time:           ev.Time,
			Inert:          ev.Inert,
			CausalDistance: ev.CausalDistance,
			Predecessors:   ev.CausalPredecessors(),
			Spaces:         texts,
			Rules:          ev.Rules(),
			Created:        created,
			Destroyed:      destroyed,
		}
	}
	return snap
}
