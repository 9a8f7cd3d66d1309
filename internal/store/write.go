package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ruleflow/internal/ir"
)

// WriteSnapshot exports a flow snapshot in a single transaction.
// Returns inserted=false without touching the database when the flow id has
// already been exported; snapshots are write-once.
//
// Edges must reference events present in the snapshot.
func (s *Store) WriteSnapshot(ctx context.Context, snap ir.FlowSnapshot) (inserted bool, err error) {
	if snap.FlowID == "" {
		return false, errors.New("write snapshot: empty flow id")
	}
	if err := checkEdges(snap); err != nil {
		return false, fmt.Errorf("write snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inert := len(snap.Events) > 0 && snap.Events[len(snap.Events)-1].Inert
	result, err := tx.ExecContext(ctx, `
		INSERT INTO flows (id, spec_hash, event_count, inert)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, snap.FlowID, snap.SpecHash, len(snap.Events), boolToInt(inert))
	if err != nil {
		return false, fmt.Errorf("write snapshot: insert flow: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write snapshot: rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	for _, ev := range snap.Events {
		if err := writeEvent(ctx, tx, snap.FlowID, ev); err != nil {
			return false, fmt.Errorf("write snapshot: %w", err)
		}
	}

	for _, e := range snap.Edges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO causal_edges (flow_id, from_time, to_time, count)
			VALUES (?, ?, ?, ?)
		`, snap.FlowID, e.From, e.To, e.Count)
		if err != nil {
			return false, fmt.Errorf("write snapshot: insert edge %d->%d: %w", e.From, e.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write snapshot: commit: %w", err)
	}
	return true, nil
}

func writeEvent(ctx context.Context, tx *sql.Tx, flowID string, ev ir.EventRecord) error {
	rulesJSON, err := marshalRules(ev.Rules)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (flow_id, time, inert, causal_distance, rules, created, destroyed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, flowID, ev.Time, boolToInt(ev.Inert), ev.CausalDistance, rulesJSON, ev.Created, ev.Destroyed)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", ev.Time, err)
	}

	for idx, text := range ev.Spaces {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO event_spaces (flow_id, time, idx, text, digest)
			VALUES (?, ?, ?, ?, ?)
		`, flowID, ev.Time, idx, text, spaceDigest(text))
		if err != nil {
			return fmt.Errorf("insert space %d of event %d: %w", idx, ev.Time, err)
		}
	}
	return nil
}

// checkEdges rejects edges that point outside the event list or backwards in time.
func checkEdges(snap ir.FlowSnapshot) error {
	times := make(map[int]bool, len(snap.Events))
	for _, ev := range snap.Events {
		times[ev.Time] = true
	}
	for _, e := range snap.Edges {
		if !times[e.From] || !times[e.To] {
			return fmt.Errorf("edge %d->%d references an unknown event", e.From, e.To)
		}
		if e.From >= e.To {
			return fmt.Errorf("edge %d->%d does not point forward in time", e.From, e.To)
		}
		if e.Count <= 0 {
			return fmt.Errorf("edge %d->%d has non-positive count %d", e.From, e.To, e.Count)
		}
	}
	return nil
}
