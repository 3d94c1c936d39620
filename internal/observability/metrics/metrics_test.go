package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveBooking("created")
	m.ObserveBooking("created")
	m.ObserveConflict("slot_taken")
	m.ObserveEmail("confirmation", "sent")
	m.ObserveCache("hit")
	m.ObserveSearchLatency(0.05)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if got := counterValue(families, "booking_ledger_bookings_total", "action", "created"); got != 2 {
		t.Errorf("bookings_total{action=created} = %v, want 2", got)
	}
	if got := counterValue(families, "booking_ledger_conflicts_total", "reason", "slot_taken"); got != 1 {
		t.Errorf("conflicts_total{reason=slot_taken} = %v, want 1", got)
	}
}

func counterValue(families []*dto.MetricFamily, name, labelName, labelValue string) float64 {
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == labelName && l.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("created")
	m.ObserveConflict("slot_taken")
	m.ObserveEmail("confirmation", "failed")
	m.ObserveCache("miss")
	m.ObserveSearchLatency(0.1)
}
