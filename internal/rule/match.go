package rule

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/space"
)

// Match is everything one rule found in one space.
type Match struct {
	Space      *space.Space
	SpaceIndex int
	Spans      []ir.Span
	// Conflicts holds indices into Spans that need conflict resolution.
	Conflicts map[int]bool

	// owners[i] is the chain member whose selector found Spans[i].
	owners []*Rule
}

// Match finds the rule's matches across spaces, one space at a time.
func (r *Rule) Match(ctx context.Context, spaces []*space.Space) ([]Match, error) {
	return r.MatchParallel(ctx, spaces, 1)
}

// MatchParallel is Match with up to parallelism spaces scanned concurrently.
// Matching only reads the stores. Results keep space order.
func (r *Rule) MatchParallel(ctx context.Context, spaces []*space.Space, parallelism int) ([]Match, error) {
	if r.inChain {
		return nil, nil
	}
	lo, hi := r.SpaceRange[0], r.SpaceRange[1]
	if lo < 0 {
		lo = 0
	}
	if hi > len(spaces) {
		hi = len(spaces)
	}
	if lo >= hi {
		return nil, nil
	}

	found := make([]*Match, hi-lo)
	if parallelism <= 1 || hi-lo == 1 {
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			m, err := r.matchSpace(spaces[i], i)
			if err != nil {
				return nil, err
			}
			found[i-lo] = m
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallelism)
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				m, err := r.matchSpace(spaces[i], i)
				if err != nil {
					return err
				}
				found[i-lo] = m
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var out []Match
	for _, m := range found {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *Rule) matchSpace(sp *space.Space, index int) (*Match, error) {
	m := &Match{Space: sp, SpaceIndex: index, Conflicts: map[int]bool{}}
	for _, member := range r.members() {
		if member.Disabled {
			continue
		}
		for _, sel := range member.Selectors {
			spans, err := sp.Find(sel)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", member.Name(), err)
			}
			for j, span := range spans {
				if j < member.MatchRange[0] {
					continue
				}
				if j >= member.MatchRange[1] {
					break
				}
				if member.Offset != 0 {
					span = span.Shift(member.Offset)
				}
				if member.ConflictMark != MarkIgnore {
					member.markConflicts(m, span)
				}
				m.Spans = append(m.Spans, span)
				m.owners = append(m.owners, member)
			}
		}
	}
	if len(m.Spans) == 0 {
		return nil, nil
	}
	return m, nil
}

// markConflicts flags the new span and/or the accepted spans it overlaps.
func (r *Rule) markConflicts(m *Match, span ir.Span) {
	newIdx := len(m.Spans)
	for ogIdx, accepted := range m.Spans {
		if !accepted.Overlaps(span) {
			continue
		}
		switch r.ConflictMark {
		case MarkNew:
			m.Conflicts[newIdx] = true
		case MarkOriginal:
			m.Conflicts[ogIdx] = true
		case MarkBoth:
			m.Conflicts[newIdx] = true
			m.Conflicts[ogIdx] = true
		}
	}
}
