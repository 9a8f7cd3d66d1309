package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ruleflow/internal/harness"
	"github.com/roach88/ruleflow/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool   // regenerate golden files
	Filter   string // scenario filter (glob pattern)
	Database string // export every scenario's flow here
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Steps  int      `json:"steps"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files",
		Long: `Run YAML scenario files and check their assertions.

Each scenario names a program (inline rules or a CUE file relative to the
scenario), how far to evolve it, and assertions on the final spaces,
inertness, event count and causal structure. When golden/<name>.golden
exists next to a scenario, the flow's canonical history must match it too.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  ruleflow test ./testdata/scenarios
  ruleflow test ./testdata/scenarios --filter "causal_*"
  ruleflow test ./testdata/scenarios --update
  ruleflow test ./testdata/scenarios --db ./trace.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", "", "write every scenario's flow to this SQLite database")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	hopts := harness.Options{Logger: newLogger(opts.RootOptions, cmd.ErrOrStderr())}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		hopts.Store = st
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(cmd, opts, hopts, scenarioFile)
		result.Scenarios = append(result.Scenarios, scenResult)
		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles returns the scenario files in dir whose base name
// matches filter.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	all, err := harness.FindScenarios(dir)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return all, nil
	}

	var files []string
	for _, path := range all {
		base := filepath.Base(path)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(filter, name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			files = append(files, path)
		}
	}
	return files, nil
}

// runScenario executes a single scenario and returns the result.
func runScenario(cmd *cobra.Command, opts *TestOptions, hopts harness.Options, scenarioFile string) ScenarioResult {
	fail := func(name string, errs ...string) ScenarioResult {
		return ScenarioResult{Name: name, Pass: false, Errors: errs}
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return fail(filepath.Base(scenarioFile), fmt.Sprintf("failed to load scenario: %v", err))
	}
	if scenario.FlowID == "" {
		scenario.FlowID = "scenario-" + scenario.Name
	}

	result, err := harness.RunContext(cmd.Context(), scenario, hopts)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	current, err := harness.GoldenSnapshot(scenario.Name, result.Snapshot)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("failed to build golden snapshot: %v", err))
	}

	goldenPath := goldenFilePath(scenarioFile)
	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			return fail(scenario.Name, fmt.Sprintf("failed to create golden directory: %v", err))
		}
		if err := os.WriteFile(goldenPath, current, 0644); err != nil {
			return fail(scenario.Name, fmt.Sprintf("failed to write golden file: %v", err))
		}
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(bytes.TrimSpace(golden), current) {
			result.AddError("trace does not match golden file (run with --update to regenerate)")
		}
	} else if !os.IsNotExist(err) {
		return fail(scenario.Name, fmt.Sprintf("failed to read golden file: %v", err))
	}

	return ScenarioResult{
		Name:   scenario.Name,
		Pass:   result.Pass,
		Steps:  result.Steps,
		Errors: result.Errors,
	}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(CLIResponse{Status: status, Data: result}); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	for _, s := range result.Scenarios {
		if s.Pass {
			fmt.Fprintf(w, "%s %s\n", checkMark, s.Name)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", crossMark, s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
