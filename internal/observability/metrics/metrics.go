package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking and blocking flows.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	conflictsTotal     *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	cacheTotal         *prometheus.CounterVec
	searchLatency      prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "ledger",
			Name:      "bookings_total",
			Help:      "Booking lifecycle transitions",
		}, []string{"action"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "ledger",
			Name:      "conflicts_total",
			Help:      "Rejected slot claims by reason",
		}, []string{"reason"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Email notifications by type and outcome",
		}, []string{"type", "status"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups",
		}, []string{"result"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "ledger",
			Name:      "next_available_seconds",
			Help:      "Latency of the next-available-date search",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal, m.notificationsTotal, m.cacheTotal, m.searchLatency)
	return m
}

func (m *BookingMetrics) ObserveBooking(action string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(action).Inc()
}

func (m *BookingMetrics) ObserveConflict(reason string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveEmail(emailType, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(emailType, status).Inc()
}

func (m *BookingMetrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveSearchLatency(seconds float64) {
	if m == nil {
		return
	}
	m.searchLatency.Observe(seconds)
}
