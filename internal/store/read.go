package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ruleflow/internal/ir"
)

// FlowSummary is one row of ListFlows.
type FlowSummary struct {
	ID         string `json:"id"`
	SpecHash   string `json:"spec_hash"`
	EventCount int    `json:"event_count"`
	Inert      bool   `json:"inert"`
}

// ListFlows returns every exported flow ordered by id.
// Returns an empty slice (not nil) when nothing has been exported.
func (s *Store) ListFlows(ctx context.Context) ([]FlowSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, spec_hash, event_count, inert
		FROM flows
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	flows := []FlowSummary{}
	for rows.Next() {
		var f FlowSummary
		var inert int
		if err := rows.Scan(&f.ID, &f.SpecHash, &f.EventCount, &inert); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		f.Inert = inert != 0
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return flows, nil
}

// ReadSnapshot reconstructs the exported snapshot of a flow.
// Returns ErrFlowNotFound if the flow id was never exported.
func (s *Store) ReadSnapshot(ctx context.Context, flowID string) (ir.FlowSnapshot, error) {
	snap := ir.FlowSnapshot{FlowID: flowID}

	err := s.db.QueryRowContext(ctx, `
		SELECT spec_hash FROM flows WHERE id = ?
	`, flowID).Scan(&snap.SpecHash)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.FlowSnapshot{}, fmt.Errorf("read snapshot %q: %w", flowID, ErrFlowNotFound)
	}
	if err != nil {
		return ir.FlowSnapshot{}, fmt.Errorf("read snapshot %q: %w", flowID, err)
	}

	events, err := s.readEvents(ctx, flowID)
	if err != nil {
		return ir.FlowSnapshot{}, err
	}
	edges, err := s.ReadEdges(ctx, flowID)
	if err != nil {
		return ir.FlowSnapshot{}, err
	}

	index := make(map[int]int, len(events))
	for i, ev := range events {
		index[ev.Time] = i
	}
	// Edges arrive ordered by from_time, so predecessor lists come out sorted.
	for _, e := range edges {
		if i, ok := index[e.To]; ok {
			events[i].Predecessors = append(events[i].Predecessors, e.From)
		}
	}
	if err := s.readSpaces(ctx, flowID, events, index); err != nil {
		return ir.FlowSnapshot{}, err
	}

	snap.Events = events
	snap.Edges = edges
	return snap, nil
}

// ReadEdges returns the causal edges of a flow ordered by (from, to).
// Returns an empty slice (not nil) for flows with no edges.
func (s *Store) ReadEdges(ctx context.Context, flowID string) ([]ir.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_time, to_time, count
		FROM causal_edges
		WHERE flow_id = ?
		ORDER BY from_time ASC, to_time ASC
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	edges := []ir.Edge{}
	for rows.Next() {
		var e ir.Edge
		if err := rows.Scan(&e.From, &e.To, &e.Count); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

func (s *Store) readEvents(ctx context.Context, flowID string) ([]ir.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, inert, causal_distance, rules, created, destroyed
		FROM events
		WHERE flow_id = ?
		ORDER BY time ASC
	`, flowID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []ir.EventRecord
	for rows.Next() {
		var ev ir.EventRecord
		var inert int
		var rulesJSON string
		if err := rows.Scan(&ev.Time, &inert, &ev.CausalDistance, &rulesJSON, &ev.Created, &ev.Destroyed); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Inert = inert != 0
		ev.Rules, err = unmarshalRules(rulesJSON)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *Store) readSpaces(ctx context.Context, flowID string, events []ir.EventRecord, index map[int]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, text
		FROM event_spaces
		WHERE flow_id = ?
		ORDER BY time ASC, idx ASC
	`, flowID)
	if err != nil {
		return fmt.Errorf("query spaces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t int
		var text string
		if err := rows.Scan(&t, &text); err != nil {
			return fmt.Errorf("scan space: %w", err)
		}
		if i, ok := index[t]; ok {
			events[i].Spaces = append(events[i].Spaces, text)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate spaces: %w", err)
	}
	return nil
}

// SpaceHit locates a stored space.
type SpaceHit struct {
	FlowID string `json:"flow_id"`
	Time   int    `json:"time"`
}
