package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
	"github.com/roach88/ruleflow/internal/space"
	"github.com/roach88/ruleflow/internal/vec"
)

// FlowIDGenerator generates unique flow IDs.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type FlowIDGenerator interface {
	Generate() string
}

// StepObserver is told about every step a flow takes.
type StepObserver interface {
	OnStep(flowID string, ev *Event)
	OnInert(flowID string, ev *Event)
}

// DefaultMaxSteps is the default cap for EvolveUntilInert.
const DefaultMaxSteps = 1000

// Flow evolves a rule set over an initial set of spaces.
//
// INVARIANTS:
//   - events[i].Time == i
//   - only the latest event may change (by becoming inert)
//   - every cell in an output space has CreatedAt <= its event's time
type Flow struct {
	id       string
	rules    *rule.RuleSet
	initial  []string
	events   []*Event
	edges    map[[2]int]int
	clock    *Clock
	logger   *slog.Logger
	observer StepObserver
	maxSteps int
	specHash string

	cache   *vec.Cache
	backend vec.Backend
	stats   *vec.Stats
	idGen   FlowIDGenerator
}

// Option configures a Flow.
type Option func(*Flow)

// WithMaxSteps sets the step cap used by EvolveUntilInert when it is called
// with a non-positive cap.
func WithMaxSteps(maxSteps int) Option {
	return func(f *Flow) { f.maxSteps = maxSteps }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// WithSink installs a rule activity sink on the flow's rule set.
func WithSink(s rule.Sink) Option {
	return func(f *Flow) { f.rules.Sink = s }
}

// WithParallelism bounds concurrent matching across spaces.
func WithParallelism(n int) Option {
	return func(f *Flow) { f.rules.Parallelism = n }
}

// WithCache shares a pattern cache with every space of the flow. By default
// each flow gets its own cache of vec.DefaultCacheSize entries.
func WithCache(c *vec.Cache) Option {
	return func(f *Flow) { f.cache = c }
}

// WithBackend selects the regex backend for every space of the flow.
func WithBackend(b vec.Backend) Option {
	return func(f *Flow) { f.backend = b }
}

// WithIDGenerator sets the flow ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g FlowIDGenerator) Option {
	return func(f *Flow) { f.idGen = g }
}

// WithObserver reports every step to o.
func WithObserver(o StepObserver) Option {
	return func(f *Flow) { f.observer = o }
}

// WithSpecHash records the hash of the program that built the rule set.
func WithSpecHash(h string) Option {
	return func(f *Flow) { f.specHash = h }
}

// New creates a flow whose initial event holds one space per string.
func New(rules *rule.RuleSet, initial []string, opts ...Option) (*Flow, error) {
	if rules == nil {
		rules = rule.NewRuleSet()
	}
	f := &Flow{
		rules:    rules,
		initial:  append([]string(nil), initial...),
		edges:    make(map[[2]int]int),
		clock:    NewClock(),
		logger:   slog.Default(),
		maxSteps: DefaultMaxSteps,
		stats:    &vec.Stats{},
		idGen:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if len(f.initial) == 0 {
		return nil, NewInitialSpaceError("at least one initial space is required")
	}
	if f.cache == nil {
		f.cache = vec.MustNewCache(vec.DefaultCacheSize)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	f.id = f.idGen.Generate()
	f.start()
	return f, nil
}

func (f *Flow) start() {
	spaces := make([]*space.Space, len(f.initial))
	for i, text := range f.initial {
		spaces[i] = space.New(vec.FromString(text,
			vec.WithCache(f.cache),
			vec.WithBackend(f.backend),
			vec.WithStats(f.stats),
		))
	}
	f.events = []*Event{{Time: 0, initial: spaces}}
	f.edges = make(map[[2]int]int)
	f.clock.Reset()
}

// ID returns the flow's unique ID.
func (f *Flow) ID() string { return f.id }

// SpecHash returns the hash set by WithSpecHash.
func (f *Flow) SpecHash() string { return f.specHash }

// Rules returns the flow's rule set.
func (f *Flow) Rules() *rule.RuleSet { return f.rules }

// Events returns every event in time order.
func (f *Flow) Events() []*Event { return f.events }

// Current returns the latest event.
func (f *Flow) Current() *Event { return f.events[len(f.events)-1] }

// Stats returns store mutation counters across every space of the flow.
func (f *Flow) Stats() *vec.Stats { return f.stats }

// MaxSteps returns the default step cap.
func (f *Flow) MaxSteps() int { return f.maxSteps }

// Reset discards every event after the initial one. Rule state such as
// lifespans and disabled flags is not restored.
func (f *Flow) Reset() {
	f.start()
}

// Evolve runs one step. If no rule fires, the latest event is marked inert
// and returned; an inert flow stays inert. On error no event is appended.
func (f *Flow) Evolve(ctx context.Context) (*Event, error) {
	cur := f.Current()
	if cur.Inert {
		return cur, nil
	}

	results, err := f.rules.Apply(ctx, cur.Spaces())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		next := int(f.clock.Current()) + 1
		f.logger.Error("step failed", "flow_id", f.id, "step", next, "error", err)
		return nil, NewRuleError(f.id, ruleName(err), next, err)
	}

	if len(results) == 0 {
		f.markInert(cur)
		return cur, nil
	}

	ev := &Event{Time: int(f.clock.Next()), Results: results}
	f.stamp(ev)
	f.events = append(f.events, ev)

	f.logger.Debug("step",
		"flow_id", f.id,
		"time", ev.Time,
		"rules", ev.Rules(),
		"spaces", len(ev.Spaces()),
		"causal_distance", ev.CausalDistance,
	)
	if f.observer != nil {
		f.observer.OnStep(f.id, ev)
	}
	return ev, nil
}

func (f *Flow) markInert(cur *Event) {
	cur.Inert = true
	f.logger.Info("flow inert", "flow_id", f.id, "time", cur.Time, "spaces", len(cur.Spaces()))
	if f.observer != nil {
		f.observer.OnInert(f.id, cur)
	}
}

// stamp writes the event's time into every created and destroyed cell,
// records causal edges and computes the causal distance.
func (f *Flow) stamp(ev *Event) {
	preds := map[int]bool{}
	for _, dc := range ev.AffectedCells() {
		for _, c := range dc.Created {
			c.CreatedAt = ev.Time
			c.DestroyedAt = ir.NotDestroyed
		}
	}
	for _, dc := range ev.AffectedCells() {
		for _, c := range dc.Destroyed {
			c.DestroyedAt = ev.Time
			// A cell created and destroyed within the same step has no
			// earlier cause.
			if c.CreatedAt == ir.Unstamped || c.CreatedAt == ev.Time {
				c.CreatedAt = ev.Time
				continue
			}
			preds[c.CreatedAt] = true
			f.edges[[2]int{c.CreatedAt, ev.Time}]++
		}
	}
	ev.predecessors = sortedKeys(preds)
	if len(ev.predecessors) == 0 {
		ev.CausalDistance = 0
		return
	}
	best := -1
	for _, p := range ev.predecessors {
		d := f.events[p].CausalDistance
		if best < 0 || d < best {
			best = d
		}
	}
	ev.CausalDistance = best + 1
}

// EvolveN runs up to n steps, stopping early when the flow becomes inert.
// It returns the number of events appended.
func (f *Flow) EvolveN(ctx context.Context, n int) (int, error) {
	appended := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return appended, err
		}
		before := len(f.events)
		if _, err := f.Evolve(ctx); err != nil {
			return appended, err
		}
		if len(f.events) == before {
			break
		}
		appended++
	}
	return appended, nil
}

// EvolveUntilInert steps until the flow is inert or maxSteps steps have been
// taken. A non-positive maxSteps uses the flow's default. At the cap the
// rules are matched once more without applying: if none matches the flow is
// marked inert and no error is returned, otherwise the result is
// StepsExceededError. The events evolved so far are kept either way.
func (f *Flow) EvolveUntilInert(ctx context.Context, maxSteps int) (int, error) {
	if maxSteps <= 0 {
		maxSteps = f.maxSteps
	}
	quota := NewQuotaEnforcer(maxSteps)
	appended := 0
	for !f.Current().Inert {
		if err := ctx.Err(); err != nil {
			return appended, err
		}
		if err := quota.Check(f.id); err != nil {
			cur := f.Current()
			pending, perr := f.rules.Pending(ctx, cur.Spaces())
			if perr != nil {
				return appended, perr
			}
			if !pending {
				f.markInert(cur)
				return appended, nil
			}
			f.logger.Error("step cap reached", "flow_id", f.id, "max_steps", maxSteps)
			return appended, err
		}
		before := len(f.events)
		if _, err := f.Evolve(ctx); err != nil {
			return appended, err
		}
		if len(f.events) > before {
			appended++
		}
	}
	return appended, nil
}

func ruleName(err error) string {
	var ae *rule.ApplyError
	if errors.As(err, &ae) {
		return ae.Rule
	}
	return ""
}
