package rule

import (
	"context"
	"log/slog"

	"github.com/roach88/ruleflow/internal/space"
)

// RuleSet applies an ordered list of rules once per step.
type RuleSet struct {
	Rules []*Rule

	// Sink receives rule activity. Nil means NopSink.
	Sink Sink

	// Parallelism bounds concurrent matching across spaces. Values below 2
	// match sequentially.
	Parallelism int
}

// NewRuleSet returns a rule set over rules, in order.
func NewRuleSet(rules ...*Rule) *RuleSet {
	return &RuleSet{Rules: rules}
}

// Validate checks every rule.
func (rs *RuleSet) Validate() error {
	for _, r := range rs.Rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply runs every eligible rule against spaces and returns what fired, in
// rule order. A rule whose group has already fired this step is skipped
// unless it is AlwaysApply.
func (rs *RuleSet) Apply(ctx context.Context, spaces []*space.Space) ([]DeltaSpaces, error) {
	sink := rs.Sink
	if sink == nil {
		sink = NopSink{}
	}
	inactive := map[string]bool{}

	var out []DeltaSpaces
	for _, r := range rs.Rules {
		if r.Disabled || r.inChain {
			continue
		}
		if inactive[r.Group] && !r.AlwaysApply {
			continue
		}
		matches, err := r.MatchParallel(ctx, spaces, rs.Parallelism)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		results, err := r.Apply(matches, sink)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			continue
		}
		out = append(out, DeltaSpaces{PerSpace: results, Rule: r})
		if r.GroupBreak {
			inactive[r.Group] = true
		}
	}
	return out, nil
}

// Pending reports whether any enabled rule has a match in spaces. It only
// reads. A match whose every span is skipped on apply still counts, so a
// false result means the next Apply fires nothing.
func (rs *RuleSet) Pending(ctx context.Context, spaces []*space.Space) (bool, error) {
	for _, r := range rs.Rules {
		if r.Disabled || r.inChain {
			continue
		}
		matches, err := r.MatchParallel(ctx, spaces, rs.Parallelism)
		if err != nil {
			return false, err
		}
		if len(matches) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Merge chains every enabled rule of group behind the first one, so they
// match and apply as one composite rule.
func (rs *RuleSet) Merge(group string) {
	var head *Rule
	for _, r := range rs.Rules {
		if r.Group != group || r.Disabled || r.inChain {
			continue
		}
		if head == nil {
			head = r
			continue
		}
		head.Chain(r)
	}
}

// Compress disables overwrite rules in group that can never change a quanta
// and returns how many it disabled.
func (rs *RuleSet) Compress(group string) int {
	disabled := 0
	for _, r := range rs.Rules {
		if r.Group != group || r.Disabled {
			continue
		}
		if r.isNoOpOverwrite() {
			r.Disabled = true
			disabled++
			slog.Debug("rule compressed", "rule", r.Name(), "group", group)
		}
	}
	return disabled
}
