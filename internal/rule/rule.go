package rule

import (
	"fmt"
	"strings"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/space"
)

// DefaultGroup is the group of rules that do not name one.
const DefaultGroup = "0"

// Rule is one rewrite rule with its match and apply policy.
type Rule struct {
	ID        string
	Kind      Kind
	Selectors []ir.Selector
	// Targets are cycled over matches: match i uses Targets[i%len(Targets)].
	Targets []ir.Target

	// Match window.
	SpaceRange [2]int
	MatchRange [2]int
	Offset     int

	ConflictMark       ConflictMark
	ConflictResolution ConflictResolution

	// Apply policy.
	ParallelLimit       int
	BranchLimit         int
	BranchOrigin        BranchOrigin
	NoInitialBranch     bool
	NoCausalityTracking bool
	NoDeltaSubmit       bool

	// Rule set policy.
	Disabled    bool
	Group       string
	GroupBreak  bool
	AlwaysApply bool

	// Lifespan counts remaining successful applications; ir.Inf never runs out.
	Lifespan int

	chain   []*Rule
	inChain bool
}

// New returns a rule with default flags: first space only, first match
// only, one edit per branch, no extra branches, conflicts ignored.
func New(kind Kind, selectors []ir.Selector, targets []ir.Target) *Rule {
	return &Rule{
		Kind:          kind,
		Selectors:     selectors,
		Targets:       targets,
		SpaceRange:    [2]int{0, 1},
		MatchRange:    [2]int{0, 1},
		ParallelLimit: 1,
		Group:         DefaultGroup,
		GroupBreak:    true,
		Lifespan:      ir.Inf,
	}
}

// Validate checks that the rule can be matched and applied.
func (r *Rule) Validate() error {
	if len(r.Selectors) == 0 {
		return fmt.Errorf("rule %s: no selectors", r.Name())
	}
	for _, s := range r.Selectors {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("rule %s: %w", r.Name(), err)
		}
	}
	for _, t := range r.Targets {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("rule %s: %w", r.Name(), err)
		}
		switch {
		case r.Kind.needsCells() && t.Kind != ir.TargetCells:
			return fmt.Errorf("rule %s: %s needs a cell target, got %s", r.Name(), r.Kind, t.Kind)
		case r.Kind == Shift && t.Kind != ir.TargetOffset:
			return fmt.Errorf("rule %s: shift needs an offset target, got %s", r.Name(), t.Kind)
		}
	}
	if (r.Kind.needsCells() || r.Kind == Shift) && len(r.Targets) == 0 {
		return fmt.Errorf("rule %s: %s needs a target", r.Name(), r.Kind)
	}
	if r.ParallelLimit < 1 {
		return &FlagValueError{Name: "parallel_limit", Value: fmt.Sprint(r.ParallelLimit), Message: "must be at least 1"}
	}
	if r.BranchLimit < 0 {
		return &FlagValueError{Name: "branch_limit", Value: fmt.Sprint(r.BranchLimit), Message: "must not be negative"}
	}
	return nil
}

// Name returns the ID, or a rendering of the rule when it has none.
func (r *Rule) Name() string {
	if r.ID != "" {
		return r.ID
	}
	return r.String()
}

func (r *Rule) String() string {
	sels := make([]string, len(r.Selectors))
	for i, s := range r.Selectors {
		sels[i] = s.String()
	}
	tgts := make([]string, len(r.Targets))
	for i, t := range r.Targets {
		tgts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s -> %s)", r.Kind, strings.Join(sels, "|"), strings.Join(tgts, "|"))
}

// Chain appends rules to this rule's chain. Chained rules match and apply as
// part of this rule and are skipped by the rule set.
func (r *Rule) Chain(rules ...*Rule) {
	for _, c := range rules {
		c.inChain = true
		r.chain = append(r.chain, c)
	}
}

// InChain reports whether the rule runs as part of another rule's chain.
func (r *Rule) InChain() bool { return r.inChain }

// members returns the rule followed by its chain.
func (r *Rule) members() []*Rule {
	out := make([]*Rule, 0, 1+len(r.chain))
	out = append(out, r)
	return append(out, r.chain...)
}

// target returns a fresh copy of the target for match idx.
func (r *Rule) target(idx int) ir.Target {
	if len(r.Targets) == 0 {
		return ir.Target{}
	}
	t := r.Targets[idx%len(r.Targets)]
	if t.Kind == ir.TargetCells {
		fresh := make([]*ir.Cell, len(t.Cells))
		for i, c := range t.Cells {
			fresh[i] = c.Fresh()
		}
		t.Cells = fresh
	}
	return t
}

// edit runs the rule's primitive on sp.
func (r *Rule) edit(sp *space.Space, span ir.Span, t ir.Target) (ir.DeltaCell, error) {
	switch r.Kind {
	case Substitute:
		return sp.Substitute(span, t.Cells)
	case Insert:
		return sp.Insert(span.Start, t.Cells)
	case Overwrite:
		return sp.Overwrite(span.Start, t.Cells)
	case Delete:
		return sp.Delete(span)
	case Shift:
		return sp.Shift(span, t.Offset)
	case Reverse:
		return sp.Reverse(span)
	default:
		return ir.DeltaCell{}, fmt.Errorf("unknown rule kind %s", r.Kind)
	}
}

// isNoOpOverwrite reports whether applying the rule can never change quanta:
// an overwrite whose targets agree with every literal selector at each
// non-wildcard position.
func (r *Rule) isNoOpOverwrite() bool {
	if r.Kind != Overwrite {
		return false
	}
	for _, t := range r.Targets {
		for _, s := range r.Selectors {
			if s.Kind != ir.SelectorLiteral {
				return false
			}
			for i := 0; i < len(s.Cells) && i < len(t.Cells); i++ {
				if t.Cells[i].Quanta == ir.Wildcard {
					continue
				}
				if s.Cells[i].Quanta != t.Cells[i].Quanta {
					return false
				}
			}
		}
	}
	return true
}
