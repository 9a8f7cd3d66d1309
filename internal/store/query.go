package store

import (
	"context"
	"fmt"

	"github.com/roach88/ruleflow/internal/queryir"
	"github.com/roach88/ruleflow/internal/querysql"
)

// EventHit is one stored event matched by FindEvents.
type EventHit struct {
	FlowID         string   `json:"flow_id"`
	Time           int      `json:"time"`
	Inert          bool     `json:"inert"`
	CausalDistance int      `json:"causal_distance"`
	Rules          []string `json:"rules"`
	Created        int      `json:"created"`
	Destroyed      int      `json:"destroyed"`
}

var eventHitFields = []string{"flow_id", "time", "inert", "causal_distance", "rules", "created", "destroyed"}

// FindSpace returns the (flow id, event time) pairs at which a space with the
// given text was alive, ordered by flow id then time.
func (s *Store) FindSpace(ctx context.Context, text string) ([]SpaceHit, error) {
	query := queryir.Select{
		From:     queryir.TableEventSpaces,
		Fields:   []string{"flow_id", "time"},
		Filter:   queryir.Equals{Field: "digest", Value: spaceDigest(text)},
		Distinct: true,
	}

	hits := []SpaceHit{}
	err := s.query(ctx, query, func(scan func(...any) error) error {
		var h SpaceHit
		if err := scan(&h.FlowID, &h.Time); err != nil {
			return err
		}
		hits = append(hits, h)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find space: %w", err)
	}
	return hits, nil
}

// FindEvents returns the stored events of every flow matching filter,
// ordered by flow id then time. A nil filter matches every event. When space
// is non-empty only events whose output held that space are returned.
func (s *Store) FindEvents(ctx context.Context, filter queryir.Predicate, space string) ([]EventHit, error) {
	events := queryir.Select{From: queryir.TableEvents, Fields: eventHitFields, Filter: filter}

	var query queryir.Query = events
	if space != "" {
		query = queryir.Join{
			Left:     events,
			Right:    queryir.Select{From: queryir.TableEventSpaces, Filter: queryir.Equals{Field: "digest", Value: spaceDigest(space)}},
			On:       []string{"flow_id", "time"},
			Distinct: true,
		}
	}

	hits := []EventHit{}
	err := s.query(ctx, query, func(scan func(...any) error) error {
		var h EventHit
		var inert int
		var rulesJSON string
		if err := scan(&h.FlowID, &h.Time, &inert, &h.CausalDistance, &rulesJSON, &h.Created, &h.Destroyed); err != nil {
			return err
		}
		h.Inert = inert != 0
		rules, err := unmarshalRules(rulesJSON)
		if err != nil {
			return err
		}
		h.Rules = rules
		hits = append(hits, h)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	return hits, nil
}

// query compiles q and calls row once per result row.
func (s *Store) query(ctx context.Context, q queryir.Query, row func(scan func(...any) error) error) error {
	sqlText, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := row(rows.Scan); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
	}
	return rows.Err()
}
