package rule

import (
	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/space"
)

// DeltaSpace holds the branch outcomes of applying a rule to one input
// space. Outputs[i] lines up with CellDeltas[i]; an output is nil when the
// rule does not submit spaces.
type DeltaSpace struct {
	Input      *space.Space
	Outputs    []*space.Space
	CellDeltas []ir.DeltaCell
}

// DeltaSpaces is everything one rule produced in one step.
type DeltaSpaces struct {
	PerSpace []DeltaSpace
	Rule     *Rule
}

// Spaces returns the non-nil outputs in order.
func (d DeltaSpaces) Spaces() []*space.Space {
	var out []*space.Space
	for _, ds := range d.PerSpace {
		for _, o := range ds.Outputs {
			if o != nil {
				out = append(out, o)
			}
		}
	}
	return out
}

// Apply edits working copies of the matched spaces. It returns one
// DeltaSpace per match that produced at least one output. Errors from the
// edit primitives abort the call; spaces already produced are discarded.
func (r *Rule) Apply(matches []Match, sink Sink) ([]DeltaSpace, error) {
	if sink == nil {
		sink = NopSink{}
	}
	var results []DeltaSpace
	for _, m := range matches {
		ds, err := r.applyMatch(m, sink)
		if err != nil {
			return nil, err
		}
		if len(ds.Outputs) > 0 {
			results = append(results, ds)
		}
	}
	if len(results) > 0 && r.Lifespan != ir.Inf {
		r.Lifespan--
		if r.Lifespan <= 0 {
			r.Disabled = true
		}
	}
	sink.OnApplied(r, results)
	return results, nil
}

// drift records the length change of one edit on a working copy.
type drift struct {
	at    int
	delta int
}

// rebase moves span by the length change of every recorded edit that
// started before it.
func rebase(span ir.Span, edits []drift) ir.Span {
	shift := 0
	for _, e := range edits {
		if e.at < span.Start {
			shift += e.delta
		}
	}
	return span.Shift(shift)
}

type applyState struct {
	rule    *Rule
	match   Match
	sink    Sink
	out     DeltaSpace
	prev    *space.Space
	current *space.Space
	edits   []drift
	pending []ir.DeltaCell
	pl      int
	bl      int
}

func (r *Rule) applyMatch(m Match, sink Sink) (DeltaSpace, error) {
	st := &applyState{
		rule:  r,
		match: m,
		sink:  sink,
		out:   DeltaSpace{Input: m.Space},
		prev:  m.Space,
	}
	if r.NoInitialBranch {
		st.current = m.Space
	} else {
		st.current = m.Space.Branch()
	}

	last := len(m.Spans) - 1
walk:
	for idx, span := range m.Spans {
		owner := m.owners[idx]
		target := owner.target(idx)

		if m.Conflicts[idx] && owner.ConflictResolution != ResolveIgnore {
			sink.OnConflict(owner, m, idx)
			switch owner.ConflictResolution {
			case ResolveBranch, ResolveBranchNoLimit:
				if err := st.branchConflict(owner, idx, span, target); err != nil {
					return DeltaSpace{}, err
				}
			case ResolveBreak:
				break walk
			}
			continue
		}

		before := st.current.Len()
		at := rebase(span, st.edits)
		dc, err := owner.edit(st.current, at, target)
		if err != nil {
			return DeltaSpace{}, &ApplyError{Rule: owner.Name(), Space: m.SpaceIndex, Match: idx, Err: err}
		}
		if d := st.current.Len() - before; d != 0 {
			st.edits = append(st.edits, drift{at: span.Start, delta: d})
		}
		st.pending = append(st.pending, dc)
		st.pl++

		if st.pl >= owner.ParallelLimit || idx == last {
			st.flush(owner)
			sink.OnExecution(owner, m, idx)
			if idx == last || st.bl >= owner.BranchLimit {
				break walk
			}
			st.bl++
			st.newWorkingCopy(owner)
			sink.OnBranch(owner, m, idx)
		}
	}
	if st.pl > 0 {
		st.flush(r)
	}
	return st.out, nil
}

// branchConflict applies a conflicting match on a branch of its own.
func (st *applyState) branchConflict(owner *Rule, idx int, span ir.Span, target ir.Target) error {
	if owner.ConflictResolution == ResolveBranch {
		if st.bl >= owner.BranchLimit {
			return nil
		}
		st.bl++
	}
	var branch *space.Space
	at := span
	if owner.BranchOrigin == OriginCurrent {
		branch = st.current.Branch()
		at = rebase(span, st.edits)
	} else {
		branch = st.prev.Branch()
	}
	dc, err := owner.edit(branch, at, target)
	if err != nil {
		return &ApplyError{Rule: owner.Name(), Space: st.match.SpaceIndex, Match: idx, Err: err}
	}
	st.submit(owner, branch, dc)
	st.sink.OnBranch(owner, st.match, idx)
	return nil
}

// flush submits the working copy with the accumulated deltas.
func (st *applyState) flush(owner *Rule) {
	st.submit(owner, st.current, ir.MergeDeltas(st.pending))
	st.pending = nil
	st.pl = 0
}

func (st *applyState) submit(owner *Rule, sp *space.Space, dc ir.DeltaCell) {
	if owner.NoDeltaSubmit {
		sp = nil
	}
	if owner.NoCausalityTracking {
		dc = ir.DeltaCell{}
	}
	st.out.Outputs = append(st.out.Outputs, sp)
	st.out.CellDeltas = append(st.out.CellDeltas, dc)
}

func (st *applyState) newWorkingCopy(owner *Rule) {
	if owner.BranchOrigin == OriginCurrent {
		st.current = st.current.Branch()
		return
	}
	st.current = st.prev.Branch()
	st.edits = nil
}
