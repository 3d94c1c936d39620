package blockedslots

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datafirstseo/booking-backend/internal/ledger"
)

func newTestHandler(t *testing.T) (*Handler, *fakeStore) {
	t.Helper()
	svc, store := newTestService(t)
	return NewHandler(svc, nil, nil), store
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body)))
	return rec
}

func TestBlockSlotEndpoint(t *testing.T) {
	h, store := newTestHandler(t)

	rec := postJSON(t, h.BlockSlot, "/api/admin/blocked-slots", BlockSlotRequest{
		Date: "2026-03-20", Time: "09:00", Reason: "holiday",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	// Second attempt conflicts.
	rec = postJSON(t, h.BlockSlot, "/api/admin/blocked-slots", BlockSlotRequest{
		Date: "2026-03-20", Time: "09:00",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	// A booked slot also conflicts.
	store.booked[ledger.SlotRef{Date: "2026-03-20", Time: "10:00"}] = true
	rec = postJSON(t, h.BlockSlot, "/api/admin/blocked-slots", BlockSlotRequest{
		Date: "2026-03-20", Time: "10:00",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for booked slot, got %d", rec.Code)
	}

	// Non-catalog label is a 400.
	rec = postJSON(t, h.BlockSlot, "/api/admin/blocked-slots", BlockSlotRequest{
		Date: "2026-03-20", Time: "13:00",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid time, got %d", rec.Code)
	}
}

func TestBulkBlockEndpoint(t *testing.T) {
	h, store := newTestHandler(t)
	store.booked[ledger.SlotRef{Date: "2026-03-20", Time: "10:00"}] = true

	rec := postJSON(t, h.BulkBlock, "/api/admin/blocked-slots/bulk", BulkBlockRequest{
		Dates:  []string{"2026-03-20", "2026-03-23"},
		Times:  []string{"09:00", "10:00"},
		Reason: "vacation",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var result BulkResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	// Cross product minus the booked 03-20 10:00 pair, grouped by day.
	if len(result.Successful) != 2 {
		t.Fatalf("unexpected successful breakdown: %+v", result.Successful)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Date != "2026-03-20" ||
		len(result.Conflicts[0].Times) != 1 || result.Conflicts[0].Times[0] != "10:00" {
		t.Fatalf("unexpected conflict breakdown: %+v", result.Conflicts)
	}
}

func TestBulkBlockAllConflicts(t *testing.T) {
	h, store := newTestHandler(t)
	store.booked[ledger.SlotRef{Date: "2026-03-20", Time: "09:00"}] = true

	rec := postJSON(t, h.BulkBlock, "/api/admin/blocked-slots/bulk", BulkBlockRequest{
		Dates: []string{"2026-03-20"},
		Times: []string{"09:00"},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 when nothing lands, got %d: %s", rec.Code, rec.Body)
	}
	var result BulkResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Conflicts) != 1 || len(result.Conflicts[0].Times) != 1 {
		t.Fatalf("expected the breakdown in the body, got %s", rec.Body)
	}
}

func TestBulkBlockEndpointValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	cases := []struct {
		name string
		req  BulkBlockRequest
	}{
		{"no dates", BulkBlockRequest{Times: []string{"09:00"}}},
		{"no times", BulkBlockRequest{Dates: []string{"2026-03-20"}}},
		{"bad date", BulkBlockRequest{Dates: []string{"20-03-2026"}, Times: []string{"09:00"}}},
		{"bad time", BulkBlockRequest{Dates: []string{"2026-03-20"}, Times: []string{"13:00"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.BulkBlock, "/api/admin/blocked-slots/bulk", tc.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestRecurringBlockEndpointValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	cases := []struct {
		name string
		req  RecurringBlockRequest
	}{
		{"no weekdays", RecurringBlockRequest{Weeks: 2, Times: []string{"09:00"}}},
		{"bad weekday", RecurringBlockRequest{Weekdays: []int{7}, Weeks: 2, Times: []string{"09:00"}}},
		{"zero weeks", RecurringBlockRequest{Weekdays: []int{1}, Weeks: 0, Times: []string{"09:00"}}},
		{"bad time", RecurringBlockRequest{Weekdays: []int{1}, Weeks: 2, Times: []string{"13:00"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.RecurringBlock, "/api/admin/blocked-slots/recurring", tc.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestRecurringBlockEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.RecurringBlock, "/api/admin/blocked-slots/recurring", RecurringBlockRequest{
		Weekdays: []int{1, 5},
		Weeks:    2,
		Times:    []string{"09:00", "10:00"},
		Reason:   "training",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var result BulkResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	// 2 weekdays x 2 weeks = 4 days, each carrying both labels.
	if len(result.Successful) != 4 {
		t.Fatalf("expected 4 blocked days, got %+v", result.Successful)
	}
	for _, day := range result.Successful {
		if len(day.Times) != 2 {
			t.Fatalf("expected both labels on %s, got %v", day.Date, day.Times)
		}
	}
}

func TestUnblockEndpoint(t *testing.T) {
	h, store := newTestHandler(t)
	store.blocked[ledger.SlotRef{Date: "2026-03-20", Time: "09:00"}] = true

	body, _ := json.Marshal(UnblockRequest{Date: "2026-03-20", Times: []string{"09:00", "10:00"}})
	rec := httptest.NewRecorder()
	h.Unblock(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/blocked-slots", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Removed []string `json:"removed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Removed) != 1 || resp.Removed[0] != "09:00" {
		t.Fatalf("unexpected removed set: %v", resp.Removed)
	}
}
