package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ruleflow/internal/ir"
)

// GoldenSnapshot is the golden file payload: the scenario name and the
// flow's canonical causal history. Flow id and spec hash are left out so
// golden files do not churn when either changes.
func GoldenSnapshot(scenarioName string, snap ir.FlowSnapshot) ([]byte, error) {
	canonical := snap.ToCanonical()
	canonical["scenario_name"] = scenarioName
	return ir.MarshalCanonical(canonical)
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Assertion failures and golden
// mismatches fail t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s", msg)
	}

	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's snapshot against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := GoldenSnapshot(scenarioName, result.Snapshot)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
