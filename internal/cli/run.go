package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"

	"github.com/roach88/ruleflow/internal/assist"
	"github.com/roach88/ruleflow/internal/compiler"
	"github.com/roach88/ruleflow/internal/engine"
	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/metrics"
	"github.com/roach88/ruleflow/internal/rule"
	"github.com/roach88/ruleflow/internal/store"
	"github.com/roach88/ruleflow/internal/vec"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Program     string
	Steps       int
	UntilInert  bool
	MaxSteps    int
	Parallelism int
	Database    string
	MetricsOut  string
	OllamaModel  string
	OllamaURL    string
	RegexBackend string

	// FlowGenerator allows overriding the flow id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	FlowGenerator engine.FlowIDGenerator

	// Resolver overrides the Ollama-backed resolver (for testing).
	Resolver compiler.Resolver

	// Model replaces the Ollama model behind the pattern assistant (for
	// testing). Ignored when Resolver is set.
	Model llms.Model
}

// RunResult is the outcome of one run.
type RunResult struct {
	FlowID     string         `json:"flow_id"`
	Program    string         `json:"program"`
	SpecHash   string         `json:"spec_hash"`
	Steps      int            `json:"steps"`
	Inert      bool           `json:"inert"`
	CapReached bool           `json:"cap_reached,omitempty"`
	Exported   bool           `json:"exported,omitempty"`
	Trace      map[string]any `json:"trace"`

	snapshot ir.FlowSnapshot
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <program.cue|dir>",
		Short: "Evolve a rule program",
		Long: `Evolve a rule program and print every event.

The program's own steps or until_inert setting is used unless --steps or
--until-inert is given. With --db the finished causal graph is written to a
SQLite trace database; with --metrics-out rule and step counters are
written in the Prometheus text format. --regex-backend selects the regex
engine used both for matching and for checking assistant answers; use
regexp2 for backreferences and lookaround.

Exit codes:
  0 - Evolution finished
  1 - The step cap was reached before the flow became inert
  2 - Command error (bad program, unreachable assistant, etc.)

Example:
  ruleflow run ./testdata/programs/rule30.cue
  ruleflow run --until-inert --max-steps 50 --db ./trace.db ./program.cue
  ruleflow run --ollama-model llama3.1 ./prompts.cue --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Program, "program", "", "program to run when the file holds several")
	cmd.Flags().IntVar(&opts.Steps, "steps", 0, "evolve this many steps")
	cmd.Flags().BoolVar(&opts.UntilInert, "until-inert", false, "evolve until no rule applies")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "step cap for --until-inert (default 1000)")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", 1, "spaces matched concurrently")
	cmd.Flags().StringVar(&opts.Database, "db", "", "write the causal graph to this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file")
	cmd.Flags().StringVar(&opts.OllamaModel, "ollama-model", "", "resolve {prompt} selectors with this Ollama model")
	cmd.Flags().StringVar(&opts.OllamaURL, "ollama-url", "", "Ollama server URL (default OLLAMA_HOST or localhost)")
	cmd.Flags().StringVar(&opts.RegexBackend, "regex-backend", "re2", "regex engine for /regex/ selectors: re2 or regexp2")
	cmd.MarkFlagsMutuallyExclusive("steps", "until-inert")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	backend, err := vec.ParseBackend(opts.RegexBackend)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	prog, err := LoadProgram(path, opts.Program)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), loadErrorMessage(err), nil)
	}
	if cmd.Flags().Changed("steps") {
		prog.Steps = opts.Steps
		prog.UntilInert = false
	}
	if opts.UntilInert {
		prog.UntilInert = true
		prog.Steps = 0
	}
	if opts.MaxSteps > 0 {
		prog.MaxSteps = opts.MaxSteps
	}
	if errs := compiler.Validate(prog); len(errs) > 0 {
		for _, verr := range errs {
			if verr.Code == compiler.ErrUnresolvedPrompts && opts.hasResolver() {
				continue
			}
			return formatter.Fail(ExitCommandError, verr.Code, fmt.Sprintf("%s: %s", verr.Field, verr.Message), nil)
		}
	}

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	resolver, err := opts.resolver(logger, backend)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	compiled, err := compiler.Build(ctx, prog, compiler.Options{Resolver: resolver, Logger: logger})
	if err != nil {
		return formatter.Fail(ExitCommandError, buildErrorCode(err), err.Error(), nil)
	}
	specHash, err := ir.SpecHash(*prog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	var reg *prometheus.Registry
	var sink rule.Sink = rule.LogSink{Logger: logger}
	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithSpecHash(specHash),
		engine.WithParallelism(opts.Parallelism),
		engine.WithBackend(backend),
	}
	if opts.MetricsOut != "" {
		reg = prometheus.NewRegistry()
		collector := metrics.New(reg)
		sink = rule.MultiSink{sink, collector}
		engineOpts = append(engineOpts, engine.WithObserver(collector))
	}
	engineOpts = append(engineOpts, engine.WithSink(sink))
	if compiled.MaxSteps > 0 {
		engineOpts = append(engineOpts, engine.WithMaxSteps(compiled.MaxSteps))
	}
	if opts.FlowGenerator != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.FlowGenerator))
	}

	flow, err := engine.New(compiled.Rules, compiled.Init, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEvolve, err.Error(), nil)
	}
	logger.Info("flow starting", "flow_id", flow.ID(), "program", prog.Name, "spec_hash", specHash)

	result := &RunResult{FlowID: flow.ID(), Program: prog.Name, SpecHash: specHash}
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
		return formatter.Fail(ExitCommandError, ErrCodeEvolve, err.Error(), nil)
	}
	result.Inert = flow.Current().Inert
	result.snapshot = flow.Snapshot()
	result.Trace = result.snapshot.ToCanonical()

	if opts.Database != "" {
		inserted, err := exportSnapshot(ctx, opts.Database, result.snapshot)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		result.Exported = inserted
		formatter.VerboseLog("Exported flow %s to %s (new: %v)", flow.ID(), opts.Database, inserted)
	}
	if reg != nil {
		if err := metrics.WriteTextfile(opts.MetricsOut, reg); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing metrics: %v", err), nil)
		}
	}

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeRunText(formatter, result)
	}

	if result.CapReached {
		return NewExitError(ExitFailure, fmt.Sprintf("flow %s reached the step cap before becoming inert", result.FlowID))
	}
	return nil
}

func (opts *RunOptions) hasResolver() bool {
	return opts.Resolver != nil || opts.Model != nil || opts.OllamaModel != ""
}

// resolver builds the pattern assistant. Its answers are checked against
// the same backend the flow matches with.
func (opts *RunOptions) resolver(logger *slog.Logger, backend vec.Backend) (compiler.Resolver, error) {
	if opts.Resolver != nil {
		return opts.Resolver, nil
	}
	aopts := []assist.Option{assist.WithLogger(logger), assist.WithBackend(backend)}
	var (
		a   *assist.Assistant
		err error
	)
	switch {
	case opts.Model != nil:
		a, err = assist.New(opts.Model, aopts...)
	case opts.OllamaModel != "":
		a, err = assist.NewOllama(opts.OllamaModel, opts.OllamaURL, aopts...)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func exportSnapshot(ctx context.Context, path string, snap ir.FlowSnapshot) (bool, error) {
	st, err := store.Open(path)
	if err != nil {
		return false, fmt.Errorf("open trace database: %w", err)
	}
	defer st.Close()
	return st.WriteSnapshot(ctx, snap)
}

func writeRunText(formatter *OutputFormatter, result *RunResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "flow %s (%s)\n", result.FlowID, result.Program)
	for _, ev := range result.snapshot.Events {
		fmt.Fprintf(w, "t=%d d=%d", ev.Time, ev.CausalDistance)
		if len(ev.Predecessors) > 0 {
			fmt.Fprintf(w, " preds=%v", ev.Predecessors)
		}
		if len(ev.Rules) > 0 {
			fmt.Fprintf(w, " via %s", strings.Join(ev.Rules, ", "))
		}
		if ev.Inert {
			fmt.Fprint(w, " (inert)")
		}
		fmt.Fprintln(w)
		for _, sp := range ev.Spaces {
			fmt.Fprintf(w, "  %s\n", sp)
		}
	}

	status := "not inert"
	switch {
	case result.Inert:
		status = "inert"
	case result.CapReached:
		status = "step cap reached"
	}
	fmt.Fprintf(w, "%d step(s), %s\n", result.Steps, status)
}
