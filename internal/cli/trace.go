package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/queryir"
	"github.com/roach88/ruleflow/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	FlowID   string
	Space    string   // optional - find events holding this space
	Where    []string // optional - event filters such as distance>=2
}

// TraceResult holds the trace of one flow.
type TraceResult struct {
	FlowID   string         `json:"flow_id"`
	SpecHash string         `json:"spec_hash"`
	Trace    map[string]any `json:"trace"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for a trace.
type TraceStats struct {
	Events         int  `json:"events"`
	Edges          int  `json:"edges"`
	FinalSpaces    int  `json:"final_spaces"`
	MaxDistance    int  `json:"max_causal_distance"`
	CellsCreated   int  `json:"cells_created"`
	CellsDestroyed int  `json:"cells_destroyed"`
	Inert          bool `json:"inert"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect flows in a trace database",
		Long: `Inspect the causal graphs written by run --db or test --db.

Without --flow, lists every flow in the database. With --flow, prints the
flow's events and causal edges. With --space, lists the events of any flow
whose output held exactly that space. With --where, lists the events of any
flow matching every filter; filters compare time, distance, created,
destroyed, inert or flow, and rule="..." matches events that fired a rule.
--space and --where combine.

Examples:
  ruleflow trace --db ./trace.db
  ruleflow trace --db ./trace.db --flow test-flow-causal-chain
  ruleflow trace --db ./trace.db --space ABAB --format json
  ruleflow trace --db ./trace.db --where "distance>=2" --where 'rule=AB -> ABAB'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the trace database (required)")
	cmd.Flags().StringVar(&opts.FlowID, "flow", "", "flow id to show")
	cmd.Flags().StringVar(&opts.Space, "space", "", "find events holding this space")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "event filter field<op>value (repeatable)")
	_ = cmd.MarkFlagRequired("db")
	cmd.MarkFlagsMutuallyExclusive("flow", "space")
	cmd.MarkFlagsMutuallyExclusive("flow", "where")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("open database: %v", err), nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	switch {
	case len(opts.Where) > 0:
		filter, err := queryir.ParseWheres(queryir.TableEvents, opts.Where)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error(), nil)
		}
		hits, err := st.FindEvents(ctx, filter, opts.Space)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		if formatter.JSON() {
			return formatter.Success(hits)
		}
		if len(hits) == 0 {
			fmt.Fprintln(formatter.Writer, "No matching events.")
			return nil
		}
		for _, h := range hits {
			fmt.Fprintf(formatter.Writer, "%s t=%d d=%d +%d -%d", h.FlowID, h.Time, h.CausalDistance, h.Created, h.Destroyed)
			if len(h.Rules) > 0 {
				fmt.Fprintf(formatter.Writer, " %v", h.Rules)
			}
			if h.Inert {
				fmt.Fprint(formatter.Writer, " (inert)")
			}
			fmt.Fprintln(formatter.Writer)
		}
		return nil

	case opts.Space != "":
		hits, err := st.FindSpace(ctx, opts.Space)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		if formatter.JSON() {
			return formatter.Success(hits)
		}
		if len(hits) == 0 {
			fmt.Fprintf(formatter.Writer, "No events hold %s\n", opts.Space)
			return nil
		}
		for _, h := range hits {
			fmt.Fprintf(formatter.Writer, "%s t=%d\n", h.FlowID, h.Time)
		}
		return nil

	case opts.FlowID != "":
		snap, err := st.ReadSnapshot(ctx, opts.FlowID)
		if errors.Is(err, store.ErrFlowNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("flow not found: %s", opts.FlowID), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		result := TraceResult{
			FlowID:   snap.FlowID,
			SpecHash: snap.SpecHash,
			Trace:    snap.ToCanonical(),
			Stats:    traceStats(snap),
		}
		if formatter.JSON() {
			return formatter.Success(result)
		}
		writeTraceText(formatter, snap, result.Stats)
		return nil

	default:
		flows, err := st.ListFlows(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		if formatter.JSON() {
			return formatter.Success(flows)
		}
		if len(flows) == 0 {
			fmt.Fprintln(formatter.Writer, "No flows recorded.")
			return nil
		}
		for _, f := range flows {
			status := ""
			if f.Inert {
				status = " (inert)"
			}
			fmt.Fprintf(formatter.Writer, "%s  %d event(s)  %s%s\n", f.ID, f.EventCount, f.SpecHash, status)
		}
		return nil
	}
}

func traceStats(snap ir.FlowSnapshot) TraceStats {
	stats := TraceStats{
		Events:      len(snap.Events),
		Edges:       len(snap.Edges),
		FinalSpaces: len(snap.FinalSpaces()),
	}
	for _, ev := range snap.Events {
		stats.CellsCreated += ev.Created
		stats.CellsDestroyed += ev.Destroyed
		stats.MaxDistance = max(stats.MaxDistance, ev.CausalDistance)
	}
	if n := len(snap.Events); n > 0 {
		stats.Inert = snap.Events[n-1].Inert
	}
	return stats
}

func writeTraceText(formatter *OutputFormatter, snap ir.FlowSnapshot, stats TraceStats) {
	w := formatter.Writer
	fmt.Fprintf(w, "Flow: %s\n", snap.FlowID)
	fmt.Fprintf(w, "Spec: %s\n\n", snap.SpecHash)

	fmt.Fprintln(w, "Events:")
	for _, ev := range snap.Events {
		fmt.Fprintf(w, "  t=%d d=%d +%d -%d", ev.Time, ev.CausalDistance, ev.Created, ev.Destroyed)
		if len(ev.Rules) > 0 {
			fmt.Fprintf(w, " %v", ev.Rules)
		}
		if ev.Inert {
			fmt.Fprint(w, " (inert)")
		}
		fmt.Fprintln(w)
		for _, sp := range ev.Spaces {
			fmt.Fprintf(w, "    %s\n", sp)
		}
	}

	if len(snap.Edges) > 0 {
		fmt.Fprintln(w, "\nCausal edges:")
		for _, e := range snap.Edges {
			fmt.Fprintf(w, "  %d -> %d (%d cell(s))\n", e.From, e.To, e.Count)
		}
	}

	fmt.Fprintf(w, "\n%d event(s), %d edge(s), max causal distance %d\n", stats.Events, stats.Edges, stats.MaxDistance)
}
