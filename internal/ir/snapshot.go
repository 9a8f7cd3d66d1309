package ir

// EventRecord is the flat, exportable view of one event.
type EventRecord struct {
	Time           int
	Inert          bool
	CausalDistance int
	Predecessors   []int
	Spaces         []string
	Rules          []string
	Created        int
	Destroyed      int
}

// Edge is a causal edge between two events. Count is the number of cells
// created by From and destroyed by To.
type Edge struct {
	From  int
	To    int
	Count int
}

// FlowSnapshot is a read-only projection of a flow, used by the trace
// exporter and by golden tests.
type FlowSnapshot struct {
	FlowID   string
	SpecHash string
	Events   []EventRecord
	Edges    []Edge
}

// ToCanonical returns the canonical JSON shape of the snapshot. The flow id
// is omitted so that golden files are stable across runs.
func (s FlowSnapshot) ToCanonical() map[string]any {
	events := make([]map[string]any, len(s.Events))
	for i, e := range s.Events {
		preds := e.Predecessors
		if preds == nil {
			preds = []int{}
		}
		spaces := e.Spaces
		if spaces == nil {
			spaces = []string{}
		}
		rules := e.Rules
		if rules == nil {
			rules = []string{}
		}
		events[i] = map[string]any{
			"time":            e.Time,
			"inert":           e.Inert,
			"causal_distance": e.CausalDistance,
			"predecessors":    preds,
			"spaces":          spaces,
			"rules":           rules,
			"created":         e.Created,
			"destroyed":       e.Destroyed,
		}
	}
	edges := make([]map[string]any, len(s.Edges))
	for i, e := range s.Edges {
		edges[i] = map[string]any{"from": e.From, "to": e.To, "count": e.Count}
	}
	return map[string]any{
		"events": events,
		"edges":  edges,
	}
}

// FinalSpaces returns the spaces of the last event.
func (s FlowSnapshot) FinalSpaces() []string {
	if len(s.Events) == 0 {
		return nil
	}
	return s.Events[len(s.Events)-1].Spaces
}
