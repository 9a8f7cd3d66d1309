package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruleflow/internal/engine"
	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
	rftestutil "github.com/roach88/ruleflow/internal/testutil"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func subst(id, from, to string) *rule.Rule {
	r := rule.New(rule.Substitute, []ir.Selector{ir.LiteralSelector(from)}, []ir.Target{ir.CellsTarget(to)})
	r.ID = id
	return r
}

func TestCollector_FlowToInert(t *testing.T) {
	c, _ := newTestCollector(t)

	f, err := engine.New(rule.NewRuleSet(subst("a-to-b", "A", "B")), []string{"AA"},
		engine.WithSink(c), engine.WithObserver(c))
	require.NoError(t, err)

	_, err = f.EvolveUntilInert(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Steps))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.InertFlows))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Applications.WithLabelValues("a-to-b")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Executions.WithLabelValues("a-to-b")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CellsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CellsDestroyed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LiveSpaces))
	assert.Equal(t, 0, testutil.CollectAndCount(c.Conflicts))
}

func TestCollector_OnApplied_IgnoresEmptyResults(t *testing.T) {
	c, _ := newTestCollector(t)
	r := subst("noop", "Z", "Q")

	c.OnApplied(r, nil)

	assert.Equal(t, 0, testutil.CollectAndCount(c.Applications))
}

func TestCollector_RuleCounters(t *testing.T) {
	c, _ := newTestCollector(t)
	r := subst("r1", "A", "B")

	c.OnConflict(r, rule.Match{}, 0)
	c.OnConflict(r, rule.Match{}, 1)
	c.OnBranch(r, rule.Match{}, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Conflicts.WithLabelValues("r1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Branches.WithLabelValues("r1")))
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on one registry would panic; separate registries are
	// independent.
	assert.NotPanics(t, func() {
		newTestCollector(t)
		newTestCollector(t)
	})
}

func TestWriteTextfile(t *testing.T) {
	c, reg := newTestCollector(t)
	c.Steps.Add(3)

	path := filepath.Join(t.TempDir(), "ruleflow.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ruleflow_flow_steps_total 3")
}

func findFamily(t *testing.T, reg prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func TestCollector_CausalDistanceHistogram(t *testing.T) {
	c, reg := newTestCollector(t)

	// Both A cells descend from the initial event, so each rewrite sits at
	// causal distance 1.
	f := rftestutil.NewFlow(t, "AA", []*rule.Rule{rftestutil.Subst("A", "B")},
		engine.WithSink(c), engine.WithObserver(c))
	_, err := f.EvolveUntilInert(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"BB"}, rftestutil.SpaceTexts(f.Current()))

	mf := findFamily(t, reg, "ruleflow_flow_causal_distance")
	assert.Equal(t, dto.MetricType_HISTOGRAM, mf.GetType())
	require.Len(t, mf.GetMetric(), 1)

	h := mf.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), h.GetSampleCount())
	assert.Equal(t, 2.0, h.GetSampleSum())
	assert.Equal(t, uint64(2), h.GetBucket()[0].GetCumulativeCount())
}

func TestCollector_ApplicationsLabelledByRule(t *testing.T) {
	c, reg := newTestCollector(t)

	c.OnApplied(subst("AB -> BA", "AB", "BA"), []rule.DeltaSpace{{}})
	c.OnApplied(subst("A -> B", "A", "B"), []rule.DeltaSpace{{}})
	c.OnApplied(subst("A -> B", "A", "B"), []rule.DeltaSpace{{}})

	mf := findFamily(t, reg, "ruleflow_rule_applications_total")
	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "rule" {
				got[lp.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"AB -> BA": 1, "A -> B": 2}, got)
}
