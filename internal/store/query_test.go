package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/queryir"
)

func seedQueryStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteSnapshot(ctx, createTestSnapshot("flow-1")); err != nil {
		t.Fatalf("WriteSnapshot(flow-1) failed: %v", err)
	}
	erase := ir.FlowSnapshot{
		FlowID:   "flow-2",
		SpecHash: "erase-hash",
		Events: []ir.EventRecord{
			{Time: 0, Spaces: []string{"AAB"}, Rules: []string{}, Created: 3},
			{Time: 1, CausalDistance: 1, Predecessors: []int{0}, Spaces: []string{"BAB"}, Rules: []string{"A -> B"}, Created: 1, Destroyed: 1},
			{Time: 2, CausalDistance: 1, Predecessors: []int{0}, Spaces: []string{"BBB"}, Rules: []string{"A -> B"}, Created: 1, Destroyed: 1, Inert: true},
		},
		Edges: []ir.Edge{{From: 0, To: 1, Count: 1}, {From: 0, To: 2, Count: 1}},
	}
	if _, err := s.WriteSnapshot(ctx, erase); err != nil {
		t.Fatalf("WriteSnapshot(flow-2) failed: %v", err)
	}
	return s
}

func hitKeys(hits []EventHit) []string {
	keys := make([]string, len(hits))
	for i, h := range hits {
		keys[i] = h.FlowID + "@" + string(rune('0'+h.Time))
	}
	return keys
}

func TestFindEvents_NoFilter(t *testing.T) {
	s := seedQueryStore(t)

	hits, err := s.FindEvents(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("FindEvents() failed: %v", err)
	}
	want := []string{"flow-1@0", "flow-1@1", "flow-1@2", "flow-2@0", "flow-2@1", "flow-2@2"}
	if got := hitKeys(hits); !reflect.DeepEqual(got, want) {
		t.Errorf("FindEvents() = %v, want %v", got, want)
	}
}

func TestFindEvents_Filters(t *testing.T) {
	s := seedQueryStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter queryir.Predicate
		want   []string
	}{
		{"distance", queryir.Compare{Field: "causal_distance", Op: queryir.OpGe, Value: int64(2)}, []string{"flow-1@2"}},
		{"inert", queryir.Equals{Field: "inert", Value: true}, []string{"flow-2@2"}},
		{"rule", queryir.HasRule{Rule: "A -> B"}, []string{"flow-2@1", "flow-2@2"}},
		{"flow and time", queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "flow_id", Value: "flow-1"},
			queryir.Compare{Field: "time", Op: queryir.OpLt, Value: int64(2)},
		}}, []string{"flow-1@0", "flow-1@1"}},
		{"no match", queryir.Equals{Field: "created", Value: int64(99)}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := s.FindEvents(ctx, tt.filter, "")
			if err != nil {
				t.Fatalf("FindEvents() failed: %v", err)
			}
			if got := hitKeys(hits); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindEvents() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindEvents_DecodesColumns(t *testing.T) {
	s := seedQueryStore(t)

	hits, err := s.FindEvents(context.Background(), queryir.Equals{Field: "inert", Value: true}, "")
	if err != nil {
		t.Fatalf("FindEvents() failed: %v", err)
	}
	want := []EventHit{{
		FlowID:         "flow-2",
		Time:           2,
		Inert:          true,
		CausalDistance: 1,
		Rules:          []string{"A -> B"},
		Created:        1,
		Destroyed:      1,
	}}
	if !reflect.DeepEqual(hits, want) {
		t.Errorf("FindEvents() = %+v, want %+v", hits, want)
	}
}

func TestFindEvents_WithSpace(t *testing.T) {
	s := seedQueryStore(t)
	ctx := context.Background()

	hits, err := s.FindEvents(ctx, nil, "BAB")
	if err != nil {
		t.Fatalf("FindEvents() failed: %v", err)
	}
	if got := hitKeys(hits); !reflect.DeepEqual(got, []string{"flow-2@1"}) {
		t.Errorf("FindEvents(space BAB) = %v", got)
	}

	hits, err = s.FindEvents(ctx, queryir.Equals{Field: "flow_id", Value: "flow-2"}, "ABAB")
	if err != nil {
		t.Fatalf("FindEvents() failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("FindEvents(flow-2, ABAB) = %v, want none", hitKeys(hits))
	}
}

func TestFindEvents_InvalidFilter(t *testing.T) {
	s := seedQueryStore(t)

	_, err := s.FindEvents(context.Background(), queryir.Equals{Field: "spaces", Value: "AB"}, "")
	if err == nil {
		t.Fatal("FindEvents() with unknown column succeeded, want error")
	}
}
