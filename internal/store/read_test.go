package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/ruleflow/internal/engine"
	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
	"github.com/roach88/ruleflow/internal/testutil"
)

func TestListFlows_Empty(t *testing.T) {
	s := createTestStore(t)

	flows, err := s.ListFlows(context.Background())
	if err != nil {
		t.Fatalf("ListFlows() failed: %v", err)
	}
	if flows == nil {
		t.Error("ListFlows() returned nil, want empty slice")
	}
	if len(flows) != 0 {
		t.Errorf("ListFlows() returned %d flows, want 0", len(flows))
	}
}

func TestListFlows_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"flow-b", "flow-a", "flow-c"} {
		if _, err := s.WriteSnapshot(ctx, createTestSnapshot(id)); err != nil {
			t.Fatalf("WriteSnapshot(%s) failed: %v", id, err)
		}
	}

	flows, err := s.ListFlows(ctx)
	if err != nil {
		t.Fatalf("ListFlows() failed: %v", err)
	}
	var ids []string
	for _, f := range flows {
		ids = append(ids, f.ID)
		if f.EventCount != 3 || f.SpecHash != "test-hash" || f.Inert {
			t.Errorf("flow %s summary = %+v", f.ID, f)
		}
	}
	want := []string{"flow-a", "flow-b", "flow-c"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ListFlows() ids = %v, want %v", ids, want)
	}
}

func TestReadSnapshot_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSnapshot(context.Background(), "missing")
	if !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("ReadSnapshot() error = %v, want ErrFlowNotFound", err)
	}
}

func TestReadSnapshot_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestSnapshot("flow-1")

	if _, err := s.WriteSnapshot(ctx, want); err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}
	got, err := s.ReadSnapshot(ctx, "flow-1")
	if err != nil {
		t.Fatalf("ReadSnapshot() failed: %v", err)
	}

	if got.FlowID != want.FlowID || got.SpecHash != want.SpecHash {
		t.Errorf("header = (%q, %q), want (%q, %q)", got.FlowID, got.SpecHash, want.FlowID, want.SpecHash)
	}
	if !reflect.DeepEqual(got.ToCanonical(), want.ToCanonical()) {
		t.Errorf("ReadSnapshot() = %+v\nwant %+v", got, want)
	}
}

func TestReadSnapshot_PredecessorsFromEdges(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap := ir.FlowSnapshot{
		FlowID: "diamond",
		Events: []ir.EventRecord{
			{Time: 0, Spaces: []string{"AB"}},
			{Time: 1, Spaces: []string{"BB"}},
			{Time: 2, Spaces: []string{"BA"}},
			{Time: 3, Spaces: []string{"AA"}},
		},
		Edges: []ir.Edge{
			{From: 0, To: 1, Count: 1},
			{From: 0, To: 2, Count: 1},
			{From: 2, To: 3, Count: 1},
			{From: 1, To: 3, Count: 3},
		},
	}
	if _, err := s.WriteSnapshot(ctx, snap); err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}

	got, err := s.ReadSnapshot(ctx, "diamond")
	if err != nil {
		t.Fatalf("ReadSnapshot() failed: %v", err)
	}
	if preds := got.Events[3].Predecessors; !reflect.DeepEqual(preds, []int{1, 2}) {
		t.Errorf("predecessors of 3 = %v, want [1 2]", preds)
	}
	if len(got.Events[0].Predecessors) != 0 {
		t.Errorf("predecessors of 0 = %v, want none", got.Events[0].Predecessors)
	}
}

func TestReadEdges_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	snap := createTestSnapshot("flow-1")
	snap.Edges = []ir.Edge{
		{From: 1, To: 2, Count: 2},
		{From: 0, To: 2, Count: 1},
		{From: 0, To: 1, Count: 2},
	}
	if _, err := s.WriteSnapshot(ctx, snap); err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}

	edges, err := s.ReadEdges(ctx, "flow-1")
	if err != nil {
		t.Fatalf("ReadEdges() failed: %v", err)
	}
	want := []ir.Edge{{From: 0, To: 1, Count: 2}, {From: 0, To: 2, Count: 1}, {From: 1, To: 2, Count: 2}}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("ReadEdges() = %v, want %v", edges, want)
	}
}

func TestReadEdges_UnknownFlow(t *testing.T) {
	s := createTestStore(t)

	edges, err := s.ReadEdges(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ReadEdges() failed: %v", err)
	}
	if edges == nil || len(edges) != 0 {
		t.Errorf("ReadEdges() = %#v, want empty non-nil slice", edges)
	}
}

func TestFindSpace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"flow-2", "flow-1"} {
		if _, err := s.WriteSnapshot(ctx, createTestSnapshot(id)); err != nil {
			t.Fatalf("WriteSnapshot(%s) failed: %v", id, err)
		}
	}

	hits, err := s.FindSpace(ctx, "ABAB")
	if err != nil {
		t.Fatalf("FindSpace() failed: %v", err)
	}
	want := []SpaceHit{{FlowID: "flow-1", Time: 1}, {FlowID: "flow-2", Time: 1}}
	if !reflect.DeepEqual(hits, want) {
		t.Errorf("FindSpace() = %v, want %v", hits, want)
	}

	none, err := s.FindSpace(ctx, "BBBB")
	if err != nil {
		t.Fatalf("FindSpace() failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("FindSpace(BBBB) = %v, want none", none)
	}
}

func TestReadSnapshot_MatchesEvolvedFlow(t *testing.T) {
	f := testutil.NewFlow(t, "AB", []*rule.Rule{testutil.Subst("AB", "ABAB")},
		engine.WithIDGenerator(engine.NewFixedGenerator("evolved")))
	ctx := context.Background()
	if _, err := f.EvolveN(ctx, 3); err != nil {
		t.Fatalf("EvolveN() failed: %v", err)
	}

	s := createTestStore(t)
	want := f.Snapshot()
	if _, err := s.WriteSnapshot(ctx, want); err != nil {
		t.Fatalf("WriteSnapshot() failed: %v", err)
	}
	got, err := s.ReadSnapshot(ctx, "evolved")
	if err != nil {
		t.Fatalf("ReadSnapshot() failed: %v", err)
	}
	if !reflect.DeepEqual(got.ToCanonical(), want.ToCanonical()) {
		t.Errorf("stored snapshot differs from flow snapshot:\ngot  %v\nwant %v", got.ToCanonical(), want.ToCanonical())
	}
	if got.FinalSpaces()[0] != "ABABABAB" {
		t.Errorf("final space = %v, want ABABABAB", got.FinalSpaces())
	}
}
