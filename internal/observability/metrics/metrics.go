package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the conversational
// booking flow.
type BookingMetrics struct {
	inboundTotal      *prometheus.CounterVec
	reservationsTotal *prometheus.CounterVec
	reserveRetries    prometheus.Counter
	reserveLatency    prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novamed",
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhooks",
		}, []string{"kind", "status"}),
		reservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novamed",
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Total slot reservation attempts by outcome",
		}, []string{"outcome"}),
		reserveRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "novamed",
			Subsystem: "booking",
			Name:      "reserve_retries_total",
			Help:      "Transactions retried after a store conflict",
		}),
		reserveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "novamed",
			Subsystem: "booking",
			Name:      "reserve_latency_seconds",
			Help:      "Latency of the slot reservation transaction",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.reservationsTotal, m.reserveRetries, m.reserveLatency)
	return m
}

func (m *BookingMetrics) ObserveInbound(kind, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *BookingMetrics) ObserveReservation(outcome string) {
	if m == nil {
		return
	}
	m.reservationsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveReserveRetry() {
	if m == nil {
		return
	}
	m.reserveRetries.Inc()
}

func (m *BookingMetrics) ObserveReserveLatency(seconds float64) {
	if m == nil {
		return
	}
	m.reserveLatency.Observe(seconds)
}
