package testutil

import (
	"testing"

	"github.com/roach88/ruleflow/internal/engine"
	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
)

// DefaultFlowID is the id handed out by a FixedFlowGenerator built with an
// empty id.
const DefaultFlowID = "test-flow-default"

// FixedFlowGenerator generates the same flow id every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedFlowGenerator produces byte-identical
// snapshots.
//
// Unlike engine.FixedGenerator which returns ids in sequence, this generator
// always returns the same id, so a flow that is rebuilt keeps its id.
//
// Thread-safety: FixedFlowGenerator is stateless and safe for concurrent use.
type FixedFlowGenerator struct {
	id string
}

// NewFixedFlowGenerator creates a new fixed flow id generator.
//
// The id is typically set in the scenario YAML:
//
//	flow_id: "test-flow-00000000-0000-0000-0000-000000000001"
//
// If id is empty, Generate() returns DefaultFlowID.
func NewFixedFlowGenerator(id string) *FixedFlowGenerator {
	if id == "" {
		id = DefaultFlowID
	}
	return &FixedFlowGenerator{id: id}
}

// Generate returns the fixed flow id.
//
// Implements engine.FlowIDGenerator.
func (g *FixedFlowGenerator) Generate() string {
	return g.id
}

var _ engine.FlowIDGenerator = (*FixedFlowGenerator)(nil)

// Subst builds a literal substitution rule named "from -> to".
func Subst(from, to string) *rule.Rule {
	r := rule.New(rule.Substitute, []ir.Selector{ir.LiteralSelector(from)}, []ir.Target{ir.CellsTarget(to)})
	r.ID = from + " -> " + to
	return r
}

// NewFlow builds a flow over a single initial space with a fixed id.
// Extra options are applied after the id generator, so they may override it.
func NewFlow(t testing.TB, initial string, rules []*rule.Rule, opts ...engine.Option) *engine.Flow {
	t.Helper()
	opts = append([]engine.Option{engine.WithIDGenerator(NewFixedFlowGenerator(""))}, opts...)
	f, err := engine.New(rule.NewRuleSet(rules...), []string{initial}, opts...)
	if err != nil {
		t.Fatalf("engine.New(%q) failed: %v", initial, err)
	}
	return f
}

// SpaceTexts returns the texts of the spaces in an event.
func SpaceTexts(ev *engine.Event) []string {
	spaces := ev.Spaces()
	out := make([]string, len(spaces))
	for i, sp := range spaces {
		out[i] = sp.String()
	}
	return out
}
