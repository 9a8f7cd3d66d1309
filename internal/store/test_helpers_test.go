package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/ruleflow/internal/ir"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSnapshot returns a three-event chain AB, ABAB, ABABAB fired
// by "AB -> ABAB".
func createTestSnapshot(flowID string) ir.FlowSnapshot {
	return ir.FlowSnapshot{
		FlowID:   flowID,
		SpecHash: "test-hash",
		Events: []ir.EventRecord{
			{Time: 0, Spaces: []string{"AB"}, Rules: []string{}, Created: 2},
			{Time: 1, CausalDistance: 1, Predecessors: []int{0}, Spaces: []string{"ABAB"}, Rules: []string{"AB -> ABAB"}, Created: 4, Destroyed: 2},
			{Time: 2, CausalDistance: 2, Predecessors: []int{1}, Spaces: []string{"ABABAB"}, Rules: []string{"AB -> ABAB"}, Created: 4, Destroyed: 2},
		},
		Edges: []ir.Edge{
			{From: 0, To: 1, Count: 2},
			{From: 1, To: 2, Count: 2},
		},
	}
}
