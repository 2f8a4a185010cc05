package reminders

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultCatalog_WindowCounts(t *testing.T) {
	c := DefaultCatalog()

	cases := []struct {
		freq Frequency
		want int
	}{
		{FreqOnceDaily, 1},
		{FreqTwiceDaily, 2},
		{FreqThriceDaily, 3},
		{FreqEvery6Hours, 4},
		{FreqEvery8Hours, 3},
		{FreqEvery12Hours, 2},
	}

	for _, tc := range cases {
		ws, err := c.Windows(tc.freq)
		if err != nil {
			t.Fatalf("Windows(%s) error: %v", tc.freq, err)
		}
		if len(ws) != tc.want {
			t.Fatalf("Windows(%s): expected %d windows, got %d", tc.freq, tc.want, len(ws))
		}
	}
}

func TestDefaultCatalog_OnceDaily_IsMorning(t *testing.T) {
	ws, err := DefaultCatalog().Windows(FreqOnceDaily)
	if err != nil {
		t.Fatalf("Windows error: %v", err)
	}
	w := ws[0]
	if w.Label != "Morning" {
		t.Fatalf("expected Morning, got %q", w.Label)
	}
	if w.Start.String() != "07:00" || w.End.String() != "10:00" {
		t.Fatalf("expected 07:00-10:00, got %s-%s", w.Start, w.End)
	}
}

func TestDefaultCatalog_NoDefaultsForAsNeededAndCustom(t *testing.T) {
	c := DefaultCatalog()
	for _, f := range []Frequency{FreqAsNeeded, FreqCustom} {
		ws, err := c.Windows(f)
		if err != nil {
			t.Fatalf("Windows(%s) error: %v", f, err)
		}
		if ws != nil {
			t.Fatalf("Windows(%s): expected nil, got %v", f, ws)
		}
		if !c.Known(f) {
			t.Fatalf("Known(%s): expected true", f)
		}
	}
}

func TestDefaultCatalog_UnknownFrequency(t *testing.T) {
	c := DefaultCatalog()
	if c.Known(Frequency("hourly")) {
		t.Fatalf("expected hourly to be unknown")
	}
	if _, err := c.Windows(Frequency("hourly")); !errors.Is(err, ErrUnknownFrequency) {
		t.Fatalf("expected ErrUnknownFrequency, got %v", err)
	}
}

func TestTimeWindow_WrapsMidnight(t *testing.T) {
	// every_8_hours Night es 23:00-01:00: el fin cae al día siguiente.
	ws, err := DefaultCatalog().Windows(FreqEvery8Hours)
	if err != nil {
		t.Fatalf("Windows error: %v", err)
	}

	var night TimeWindow
	for _, w := range ws {
		if w.Label == "Night" {
			night = w
		}
	}
	if !night.WrapsMidnight() {
		t.Fatalf("expected Night 23:00-01:00 to wrap midnight")
	}

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	start, end := night.StartAt(day), night.EndAt(day)
	if start.Day() != 10 || start.Hour() != 23 {
		t.Fatalf("unexpected start %v", start)
	}
	if end.Day() != 11 || end.Hour() != 1 {
		t.Fatalf("expected end on next day 01:00, got %v", end)
	}
	if !start.Before(end) {
		t.Fatalf("window start should precede end")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("07:30")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got != TimeOfDay(7*60+30) {
		t.Fatalf("expected 450 minutes, got %d", got)
	}
	if got.String() != "07:30" {
		t.Fatalf("round trip: got %q", got.String())
	}

	for _, bad := range []string{"", "25:00", "12:60", "noon"} {
		if _, err := ParseTimeOfDay(bad); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("ParseTimeOfDay(%q): expected ErrInvalidWindow, got %v", bad, err)
		}
	}
}

func TestValidateWindows(t *testing.T) {
	ok := []TimeWindow{
		{Label: "Morning", Start: hm(8, 0), End: hm(9, 0)},
		{Label: "Night", Start: hm(21, 0), End: hm(22, 0)},
	}
	if err := ValidateWindows(ok); err != nil {
		t.Fatalf("expected valid windows, got %v", err)
	}

	cases := map[string][]TimeWindow{
		"empty set":       {},
		"empty label":     {{Label: " ", Start: hm(8, 0), End: hm(9, 0)}},
		"duplicate label": {{Label: "A", Start: hm(8, 0), End: hm(9, 0)}, {Label: "A", Start: hm(10, 0), End: hm(11, 0)}},
		"start equals end": {
			{Label: "A", Start: hm(8, 0), End: hm(8, 0)},
		},
		// custom nunca puede cruzar medianoche; eso es solo del catálogo
		"wrapping window": {{Label: "Night", Start: hm(23, 0), End: hm(1, 0)}},
	}
	for name, ws := range cases {
		if err := ValidateWindows(ws); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("%s: expected ErrInvalidWindow, got %v", name, err)
		}
	}
}
