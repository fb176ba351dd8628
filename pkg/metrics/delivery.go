package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics counts channel notification outcomes.
type DeliveryMetrics struct {
	delivered *prometheus.CounterVec
	enqueued  *prometheus.CounterVec
	failed    *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_notifications_delivered_total",
		Help: "Channel notifications handed to a provider.",
	}, []string{"channel"})
	enqueued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_notifications_enqueued_total",
		Help: "Channel notifications deferred to a queue lane.",
	}, []string{"channel", "lane"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_notifications_failed_total",
		Help: "Channel notification deliveries that returned an error.",
	}, []string{"channel"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_status_webhooks_total",
		Help: "Provider status callbacks by response code.",
	}, []string{"code"})
	reg.MustRegister(delivered, enqueued, failed, webhooks)
	return &DeliveryMetrics{
		delivered: delivered,
		enqueued:  enqueued,
		failed:    failed,
		webhooks:  webhooks,
	}
}

func (m *DeliveryMetrics) IncDelivered(channel string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *DeliveryMetrics) IncEnqueued(channel, lane string) {
	if m == nil || m.enqueued == nil {
		return
	}
	m.enqueued.WithLabelValues(normalizeLabel(channel), normalizeLabel(lane)).Inc()
}

func (m *DeliveryMetrics) IncFailed(channel string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(channel)).Inc()
}

// IncWebhook counts one status callback by the HTTP status it was answered with.
func (m *DeliveryMetrics) IncWebhook(code string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(code)).Inc()
}
