package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Scenario     string `json:"scenario,omitempty"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// FindScenarios returns the .yaml and .yml files directly under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario in dir.
//
// For each scenario file:
// 1. Load it with program paths relative to its own directory
// 2. Run it via RunContext
// 3. Collect and report results
//
// Only an unreadable directory is returned as an error; everything else is
// a ScenarioFailure.
func RunSuite(ctx context.Context, dir string, opts Options) (*SuiteResult, error) {
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{}
	for _, path := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail(ScenarioFailure{
				ScenarioPath: path,
				Error:        fmt.Sprintf("failed to load scenario: %v", err),
			})
			continue
		}

		runResult, err := RunContext(ctx, scenario, opts)
		if err != nil {
			result.fail(ScenarioFailure{
				Scenario:     scenario.Name,
				ScenarioPath: path,
				Error:        fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}

		if !runResult.Pass {
			result.fail(ScenarioFailure{
				Scenario:     scenario.Name,
				ScenarioPath: path,
				Error:        fmt.Sprintf("scenario assertions failed: %s", strings.Join(runResult.Errors, "; ")),
			})
			continue
		}

		result.Passed++
	}

	return result, nil
}

func (r *SuiteResult) fail(f ScenarioFailure) {
	r.Failed++
	r.Failures = append(r.Failures, f)
}
