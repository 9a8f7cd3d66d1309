package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ruleflow/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Programs int                        `json:"programs"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []ValidationWarning        `json:"warnings,omitempty"`
}

// ValidationWarning is a finding that does not stop a program from running.
type ValidationWarning struct {
	Program string   `json:"program"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program.cue|dir>",
		Short: "Validate rule programs without running them",
		Long: `Validate CUE rule programs without building or evolving them.

Checks initial spaces, step settings, directives, flags, selectors and
targets, and reports every error found. Rules that can feed each other
forever are reported as warnings, as are prompt selectors, which need
--ollama-model at run time.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadPrograms(path)
	if loaded == nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), loadErrorMessage(err), nil)
	}
	formatter.VerboseLog("Read %d CUE file(s) from %s", loaded.FileCount, path)

	result := ValidationResult{Programs: len(loaded.Programs)}
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr),
			})
		}
	}

	for _, prog := range loaded.Programs {
		formatter.VerboseLog("Validating program: %s", prog.Name)

		for _, verr := range compiler.Validate(prog) {
			if verr.Code == compiler.ErrUnresolvedPrompts {
				result.Warnings = append(result.Warnings, ValidationWarning{
					Program: prog.Name,
					Code:    verr.Code,
					Message: fmt.Sprintf("%s: %s", verr.Field, verr.Message),
				})
				continue
			}
			verr.Field = prog.Name + "." + verr.Field
			result.Errors = append(result.Errors, verr)
		}

		for _, cw := range compiler.AnalyzeCycles(prog.Instructions) {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Program: prog.Name,
				Message: cw.Message,
				Path:    cw.Path,
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func lineOf(e *LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s All programs valid (%d)\n", checkMark, result.Programs)
	writeWarnings(formatter, result.Warnings)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", crossMark)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	writeWarnings(formatter, result.Warnings)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func writeWarnings(formatter *OutputFormatter, warnings []ValidationWarning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "warning: %s: %s\n", w.Program, w.Message)
	}
}
