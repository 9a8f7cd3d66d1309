package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/ruleflow/internal/compiler"
	"github.com/roach88/ruleflow/internal/engine"
	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/store"
	"github.com/roach88/ruleflow/internal/testutil"
	"github.com/roach88/ruleflow/internal/vec"
)

// Options configures RunContext. The zero value runs silently with no
// export and no prompt resolution.
type Options struct {
	// Logger receives engine logs. Defaults to a discarding logger.
	Logger *slog.Logger

	// Store, when set, receives the flow snapshot after evolving.
	Store *store.Store

	// Resolver turns {prompt} selectors into regexes.
	Resolver compiler.Resolver

	// Observer is told about every step, e.g. a metrics collector.
	Observer engine.StepObserver
}

// Harness holds the collaborators of a single scenario run.
type Harness struct {
	opts    Options
	flowGen *testutil.FixedFlowGenerator
	logger  *slog.Logger
}

// Run executes a test scenario with default options.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, Options{})
}

// RunContext executes a test scenario and returns the result.
//
// Execution flow:
// 1. Build the program (CUE file or inline notation)
// 2. Compile it into a rule set
// 3. Evolve a flow with a fixed id
// 4. Optionally export the snapshot
// 5. Evaluate assertions
//
// A returned error means the scenario could not run. Failed assertions are
// reported through Result.Pass and Result.Errors.
func RunContext(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Harness{
		opts:    opts,
		flowGen: testutil.NewFixedFlowGenerator(scenario.FlowID),
		logger:  logger,
	}

	result, err := h.execute(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario) (*Result, error) {
	prog, err := scenario.BuildProgram()
	if err != nil {
		return nil, fmt.Errorf("failed to build program: %w", err)
	}
	backend, err := vec.ParseBackend(scenario.RegexBackend)
	if err != nil {
		return nil, err
	}

	compiled, err := compiler.Build(ctx, prog, compiler.Options{Resolver: h.opts.Resolver, Logger: h.logger})
	if err != nil {
		return nil, fmt.Errorf("failed to compile program: %w", err)
	}

	specHash, err := ir.SpecHash(*prog)
	if err != nil {
		return nil, err
	}

	engineOpts := []engine.Option{
		engine.WithIDGenerator(h.flowGen),
		engine.WithSpecHash(specHash),
		engine.WithLogger(h.logger),
		engine.WithBackend(backend),
	}
	if compiled.MaxSteps > 0 {
		engineOpts = append(engineOpts, engine.WithMaxSteps(compiled.MaxSteps))
	}
	if h.opts.Observer != nil {
		engineOpts = append(engineOpts, engine.WithObserver(h.opts.Observer))
	}
	flow, err := engine.New(compiled.Rules, compiled.Init, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow: %w", err)
	}

	result := NewResult()
	if compiled.UntilInert {
		result.Steps, err = flow.EvolveUntilInert(ctx, 0)
		if engine.IsQuotaError(err) {
			result.CapReached = true
			err = nil
		}
	} else {
		result.Steps, err = flow.EvolveN(ctx, compiled.Steps)
	}
	if err != nil {
		return nil, fmt.Errorf("evolve: %w", err)
	}

	result.Snapshot = flow.Snapshot()
	result.Inert = flow.Current().Inert

	h.logger.Info("scenario evolved",
		"scenario", scenario.Name,
		"flow_id", flow.ID(),
		"steps", result.Steps,
		"inert", result.Inert,
		"cap_reached", result.CapReached,
	)

	if h.opts.Store != nil {
		if _, err := h.opts.Store.WriteSnapshot(ctx, result.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to export snapshot: %w", err)
		}
	}
	return result, nil
}
