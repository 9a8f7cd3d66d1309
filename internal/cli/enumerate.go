package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ruleflow/internal/compiler"
)

// EnumerateOptions holds flags for the enumerate command.
type EnumerateOptions struct {
	*RootOptions
	Charset string
	Rule    int
}

// EnumeratedPair is one neighborhood of an elementary automaton rule.
type EnumeratedPair struct {
	Neighborhood string `json:"neighborhood"`
	Center       string `json:"center"`
	Rule         string `json:"rule"`
}

// EnumerateResult is the full table of one automaton rule.
type EnumerateResult struct {
	Charset string           `json:"charset"`
	Rule    int              `json:"rule"`
	Pairs   []EnumeratedPair `json:"pairs"`
}

// NewEnumerateCommand creates the enumerate command.
func NewEnumerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnumerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "enumerate",
		Short: "Print an elementary cellular automaton as rewrite rules",
		Long: `Print the eight neighborhood rules of a Wolfram elementary automaton.

The first charset symbol is the dead state and the second the live one.
Each line is an overwrite rule that rewrites the center of a
neighborhood, as produced by the @decode(wns, charset, n) directive.

Examples:
  ruleflow enumerate --charset AB --rule 30
  ruleflow enumerate --charset 01 --rule 110 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnumerate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Charset, "charset", "AB", "dead and live symbols")
	cmd.Flags().IntVar(&opts.Rule, "rule", 30, "Wolfram rule number (0-255)")

	return cmd
}

func runEnumerate(opts *EnumerateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	pairs, err := compiler.WolframPairs(opts.Charset, opts.Rule)
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrInvalidDirective, err.Error(), nil)
	}
	instructions, err := compiler.WolframRules(opts.Charset, opts.Rule)
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrInvalidDirective, err.Error(), nil)
	}

	result := EnumerateResult{Charset: opts.Charset, Rule: opts.Rule, Pairs: make([]EnumeratedPair, len(pairs))}
	for i, p := range pairs {
		result.Pairs[i] = EnumeratedPair{
			Neighborhood: p.Neighborhood,
			Center:       string(p.Center),
			Rule:         instructions[i].Source,
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	for _, p := range result.Pairs {
		fmt.Fprintf(formatter.Writer, "%s -> %s    %s\n", p.Neighborhood, p.Center, p.Rule)
	}
	return nil
}
