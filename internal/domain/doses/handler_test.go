package doses

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func rangeRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	req, err := http.NewRequest("GET", target, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func TestParseRange_DefaultsToLastSevenDaysFromClock(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	rec := httptest.NewRecorder()
	from, to, ok := parseRange(rec, rangeRequest(t, "/doses"), now)
	if !ok {
		t.Fatalf("expected ok, got %d", rec.Code)
	}
	// el default sale del reloj inyectado, no de time.Now
	if !to.Equal(now) {
		t.Fatalf("expected to=%v, got %v", now, to)
	}
	if !from.Equal(now.AddDate(0, 0, -7)) {
		t.Fatalf("expected from=%v, got %v", now.AddDate(0, 0, -7), from)
	}
}

func TestParseRange_ExplicitBounds(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	rec := httptest.NewRecorder()
	from, to, ok := parseRange(rec, rangeRequest(t, "/doses?from=2026-03-01&to=2026-03-10"), now)
	if !ok {
		t.Fatalf("expected ok, got %d", rec.Code)
	}
	if from.Year() != 2026 || from.Month() != 3 || from.Day() != 1 {
		t.Fatalf("unexpected from: %v", from)
	}
	if to.Day() != 10 {
		t.Fatalf("unexpected to: %v", to)
	}
}

func TestParseRange_RejectsMalformedDates(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, target := range []string{"/doses?from=03-01-2026", "/doses?to=notadate"} {
		rec := httptest.NewRecorder()
		if _, _, ok := parseRange(rec, rangeRequest(t, target), now); ok {
			t.Fatalf("%s: expected rejection", target)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}
