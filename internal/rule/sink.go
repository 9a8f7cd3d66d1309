package rule

import (
	"log/slog"
)

// Sink observes rule activity. Calls happen synchronously on the goroutine
// running Apply.
type Sink interface {
	// OnConflict is called when Apply reaches a conflicting match.
	OnConflict(r *Rule, m Match, idx int)
	// OnExecution is called when a working copy is flushed as an output.
	OnExecution(r *Rule, m Match, idx int)
	// OnBranch is called whenever Apply starts another branch.
	OnBranch(r *Rule, m Match, idx int)
	// OnApplied is called once per Apply with everything it produced.
	OnApplied(r *Rule, results []DeltaSpace)
}

// NopSink ignores everything.
type NopSink struct{}

func (NopSink) OnConflict(*Rule, Match, int)  {}
func (NopSink) OnExecution(*Rule, Match, int) {}
func (NopSink) OnBranch(*Rule, Match, int)    {}
func (NopSink) OnApplied(*Rule, []DeltaSpace) {}

// LogSink reports rule activity at debug level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s LogSink) OnConflict(r *Rule, m Match, idx int) {
	s.logger().Debug("rule conflict",
		"rule", r.Name(),
		"space", m.SpaceIndex,
		"match", idx,
		"span", m.Spans[idx].String(),
		"resolution", r.ConflictResolution.String(),
	)
}

func (s LogSink) OnExecution(r *Rule, m Match, idx int) {
	s.logger().Debug("rule executed",
		"rule", r.Name(),
		"space", m.SpaceIndex,
		"match", idx,
	)
}

func (s LogSink) OnBranch(r *Rule, m Match, idx int) {
	s.logger().Debug("rule branched",
		"rule", r.Name(),
		"space", m.SpaceIndex,
		"match", idx,
		"origin", r.BranchOrigin.String(),
	)
}

func (s LogSink) OnApplied(r *Rule, results []DeltaSpace) {
	outputs := 0
	for _, ds := range results {
		outputs += len(ds.Outputs)
	}
	s.logger().Debug("rule applied",
		"rule", r.Name(),
		"spaces", len(results),
		"outputs", outputs,
	)
}

// MultiSink fans calls out to several sinks in order.
type MultiSink []Sink

func (ms MultiSink) OnConflict(r *Rule, m Match, idx int) {
	for _, s := range ms {
		s.OnConflict(r, m, idx)
	}
}

func (ms MultiSink) OnExecution(r *Rule, m Match, idx int) {
	for _, s := range ms {
		s.OnExecution(r, m, idx)
	}
}

func (ms MultiSink) OnBranch(r *Rule, m Match, idx int) {
	for _, s := range ms {
		s.OnBranch(r, m, idx)
	}
}

func (ms MultiSink) OnApplied(r *Rule, results []DeltaSpace) {
	for _, s := range ms {
		s.OnApplied(r, results)
	}
}
