package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ruleflow/internal/compiler"
	"github.com/roach88/ruleflow/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledProgram is one program as compile reports it.
type CompiledProgram struct {
	Name      string         `json:"name"`
	SpecHash  string         `json:"spec_hash"`
	Init      []string       `json:"init"`
	Rules     []string       `json:"rules"`
	Canonical map[string]any `json:"program"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program.cue|dir>",
		Short: "Compile rule programs to canonical JSON",
		Long: `Compile CUE rule programs and expand their directives.

Each program is parsed, its directives are applied and its rules are built
exactly as run would build them. The canonical program JSON and its spec
hash identify the program in trace databases.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical program JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadPrograms(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), loadErrorMessage(err), nil)
	}
	formatter.VerboseLog("Read %d CUE file(s) from %s", loaded.FileCount, path)

	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())
	results := make([]CompiledProgram, 0, len(loaded.Programs))
	canonical := make([]any, 0, len(loaded.Programs))
	for _, prog := range loaded.Programs {
		formatter.VerboseLog("Compiling program: %s", prog.Name)

		compiled, err := compiler.Build(cmd.Context(), prog, compiler.Options{Logger: logger})
		if err != nil {
			return formatter.Fail(ExitCommandError, buildErrorCode(err), fmt.Sprintf("program %s: %v", prog.Name, err), nil)
		}
		hash, err := ir.SpecHash(*prog)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}

		rules := make([]string, len(compiled.Rules.Rules))
		for i, r := range compiled.Rules.Rules {
			rules[i] = r.Name()
		}
		c := prog.ToCanonical()
		c["name"] = prog.Name
		c["spec_hash"] = hash
		canonical = append(canonical, c)
		results = append(results, CompiledProgram{
			Name:      prog.Name,
			SpecHash:  hash,
			Init:      compiled.Init,
			Rules:     rules,
			Canonical: prog.ToCanonical(),
		})
	}

	if opts.Output != "" {
		data, err := ir.MarshalCanonical(canonical)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("marshaling programs: %v", err), nil)
		}
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	if formatter.JSON() {
		return formatter.Success(results)
	}

	w := formatter.Writer
	fmt.Fprintf(w, checkMark+" Compiled %d program(s)\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(w, "%s (%s)\n", r.Name, r.SpecHash)
		fmt.Fprintf(w, "  init: %v\n", r.Init)
		for _, name := range r.Rules {
			fmt.Fprintf(w, "  rule: %s\n", name)
		}
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote canonical programs to %s\n", opts.Output)
	}
	return nil
}

// buildErrorCode maps a compiler.Build error to an error code.
func buildErrorCode(err error) string {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field)
	}
	return ErrCodeGeneric
}
