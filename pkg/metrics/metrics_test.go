package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	metrics.ObserveDuration("sms", "sms.deliver", 250*time.Millisecond)
	metrics.IncSuccess("sms", "sms.deliver")
	metrics.IncFailure("sms", "sms.deliver")
	metrics.AddClaimed("sms", 3)
	metrics.AddClaimed("sms", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "notifyd_job_success_total", "kind", "sms.deliver"); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "notifyd_job_failure_total", "lane", "sms"); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "notifyd_job_claimed_total", "lane", "sms"); err != nil {
		t.Fatalf("fetch claimed: %v", err)
	} else if got != 3 {
		t.Fatalf("expected claimed=3, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "notifyd_job_duration_seconds", "kind", "sms.deliver"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestDeliveryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDeliveryMetrics(reg)
	metrics.IncDelivered("sms")
	metrics.IncDelivered("sms")
	metrics.IncEnqueued("email", "mailers")
	metrics.IncFailed("")
	metrics.IncWebhook("404")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "notifyd_notifications_delivered_total", "channel", "sms"); err != nil || got != 2 {
		t.Fatalf("expected delivered=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "notifyd_notifications_enqueued_total", "lane", "mailers"); err != nil || got != 1 {
		t.Fatalf("expected enqueued=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "notifyd_notifications_failed_total", "channel", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected failed=1 under unknown, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "notifyd_status_webhooks_total", "code", "404"); err != nil || got != 1 {
		t.Fatalf("expected webhook=1, got %f err=%v", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var jobs *JobMetrics
	jobs.IncSuccess("sms", "k")
	jobs.ObserveDuration("sms", "k", time.Second)
	var delivery *DeliveryMetrics
	delivery.IncDelivered("sms")
	NewJobMetrics(nil).IncFailure("sms", "k")
	NewDeliveryMetrics(nil).IncWebhook("200")
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
