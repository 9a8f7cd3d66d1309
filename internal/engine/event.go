package engine

import (
	"sort"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
	"github.com/roach88/ruleflow/internal/space"
)

// Event is one step of a flow. The initial event (time 0) holds the
// caller's spaces and has no results.
//
// An event is immutable once the next event exists, except that the latest
// event may be marked Inert.
type Event struct {
	Time           int
	Results        []rule.DeltaSpaces
	Inert          bool
	CausalDistance int

	initial      []*space.Space
	predecessors []int
}

// Spaces returns the spaces this event hands to the next step: every
// non-nil output of every result, in rule order.
func (e *Event) Spaces() []*space.Space {
	if e.initial != nil {
		return e.initial
	}
	var out []*space.Space
	for _, r := range e.Results {
		out = append(out, r.Spaces()...)
	}
	return out
}

// AffectedCells returns every non-empty cell delta recorded by the event.
func (e *Event) AffectedCells() []ir.DeltaCell {
	var out []ir.DeltaCell
	for _, r := range e.Results {
		for _, ds := range r.PerSpace {
			for _, dc := range ds.CellDeltas {
				if dc.Changed() {
					out = append(out, dc)
				}
			}
		}
	}
	return out
}

// CausalPredecessors returns the distinct creation times of every cell this
// event destroyed, ascending.
func (e *Event) CausalPredecessors() []int {
	out := make([]int, len(e.predecessors))
	copy(out, e.predecessors)
	return out
}

// Rules returns the names of the rules that fired, in order.
func (e *Event) Rules() []string {
	names := make([]string, len(e.Results))
	for i, r := range e.Results {
		names[i] = r.Rule.Name()
	}
	return names
}

// CellCounts returns how many cells the event created and destroyed.
func (e *Event) CellCounts() (created, destroyed int) {
	for _, dc := range e.AffectedCells() {
		created += len(dc.Created)
		destroyed += len(dc.Destroyed)
	}
	return created, destroyed
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
