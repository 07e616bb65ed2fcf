package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCartMetrics(reg)

	metrics.ObserveMutation("add", "ok")
	metrics.ObserveMutation("add", "ok")
	metrics.ObserveMutation("increment", "NOT_FOUND")
	metrics.ObservePersist("file", 250*time.Millisecond)
	metrics.IncPersistFailure("file")
	metrics.IncCoalesced()
	metrics.SetLineItems(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cart_mutations_total", "op", "add"); err != nil {
		t.Fatalf("fetch mutations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected add mutations=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_mutations_total", "result", "NOT_FOUND"); err != nil {
		t.Fatalf("fetch not found mutations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected not found mutations=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cart_persist_failures_total", "backend", "file"); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failures=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "cart_persist_duration_seconds", "backend", "file"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if mf := findMetricFamily(mfs, "cart_line_items"); mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Fatalf("expected line items gauge of 3")
	}
	if mf := findMetricFamily(mfs, "cart_persist_coalesced_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected coalesced counter of 1")
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	metrics := NewCartMetrics(nil)
	metrics.ObserveMutation("add", "ok")
	metrics.ObservePersist("", time.Second)
	metrics.IncPersistFailure("")
	metrics.IncCoalesced()
	metrics.SetLineItems(1)

	var nilMetrics *CartMetrics
	nilMetrics.ObserveMutation("add", "ok")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
