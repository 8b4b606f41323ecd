package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestAttributionMetricsExportsOutcomeCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewAttributionMetrics(reg)

	metrics.IncAttempt("converted")
	metrics.IncAttempt("converted")
	metrics.IncAttempt("no_match")
	metrics.IncConversion()
	metrics.IncDuplicate()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchLabeledCounter(mfs, "attribution_match_attempts", "outcome", "converted"); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 2 {
		t.Fatalf("expected converted attempts=2, got %f", got)
	}

	if got, err := fetchPlainCounter(mfs, "attribution_conversions"); err != nil {
		t.Fatalf("fetch conversions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected conversions=1, got %f", got)
	}

	if got, err := fetchPlainCounter(mfs, "attribution_duplicate_orders"); err != nil {
		t.Fatalf("fetch duplicates: %v", err)
	} else if got != 1 {
		t.Fatalf("expected duplicates=1, got %f", got)
	}
}

func TestAttributionMetricsNilRegistererIsInert(t *testing.T) {
	metrics := NewAttributionMetrics(nil)
	metrics.IncAttempt("no_match")
	metrics.IncConversion()
	metrics.IncDuplicate()
}

func TestAttributionMetricsEmptyOutcomeNormalized(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewAttributionMetrics(reg)

	metrics.IncAttempt("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchLabeledCounter(mfs, "attribution_match_attempts", "outcome", "unknown"); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown attempts=1, got %f", got)
	}
}

func fetchLabeledCounter(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchPlainCounter(mfs []*dto.MetricFamily, name string) (float64, error) {
	mf := findFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	metrics := mf.GetMetric()
	if len(metrics) != 1 {
		return 0, fmt.Errorf("metric %q has %d series", name, len(metrics))
	}
	return metrics[0].GetCounter().GetValue(), nil
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
