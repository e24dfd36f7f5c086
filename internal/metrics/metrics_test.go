package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveStage("match", time.Now())
	m.BuildFinished("completed", time.Now())
	m.SetMatches(3, map[string]int{"too_far": 1})
	m.AddSkipped("counts", 2)
	m.SetRows(10, 1)
	m.FeatureRequest("ok")
	m.FeatureCache(true)
}

// gathered returns the metrics of family name, keyed by the joined label values
func gathered(t *testing.T, m *Metrics, name string) map[string]*dto.Metric {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := make(map[string]*dto.Metric)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			key := ""
			for _, lp := range metric.GetLabel() {
				key += lp.GetValue()
			}
			out[key] = metric
		}
	}
	return out
}

func TestMetricsRecord(t *testing.T) {
	m := New()
	m.BuildFinished("completed", time.Now())
	m.BuildFinished("failed", time.Now())
	m.BuildFinished("completed", time.Now())
	builds := gathered(t, m, "cityzn_dataset_builds_total")
	if got := builds["completed"].GetCounter().GetValue(); got != 2 {
		t.Errorf("completed builds = %v, want 2", got)
	}

	m.SetMatches(4, map[string]int{"too_far": 2, "no_location": 1})
	if got := gathered(t, m, "cityzn_sensors_matched")[""].GetGauge().GetValue(); got != 4 {
		t.Errorf("sensors matched = %v, want 4", got)
	}
	m.SetMatches(5, map[string]int{"no_location": 1})
	if got := len(gathered(t, m, "cityzn_sensors_excluded")); got != 1 {
		t.Errorf("excluded series = %d, want 1 after reset", got)
	}

	m.AddSkipped("counts", 3)
	m.AddSkipped("counts", 0)
	if got := gathered(t, m, "cityzn_feed_records_skipped_total")["counts"].GetCounter().GetValue(); got != 3 {
		t.Errorf("skipped = %v, want 3", got)
	}

	m.FeatureCache(true)
	m.FeatureCache(false)
	m.FeatureCache(false)
	if got := gathered(t, m, "cityzn_feature_cache_misses_total")[""].GetCounter().GetValue(); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
}
