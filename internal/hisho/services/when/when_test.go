package when_test

import (
	"testing"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/services/when"
)

// Monday, 2 March 2026, 10:15 in Bucharest.
var now = time.Date(2026, 3, 2, 10, 15, 0, 0, mustLoad("Europe/Bucharest"))

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, now.Location())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"today", day(3, 2), true},
		{"Tomorrow", day(3, 3), true},
		{"yesterday", day(3, 1), true},
		{"day after tomorrow", day(3, 4), true},
		{"in 10 days", day(3, 12), true},
		{"next week", day(3, 9), true},
		{"friday", day(3, 6), true},
		{"this friday", day(3, 6), true},
		{"next friday", day(3, 13), true},
		{"monday", day(3, 9), true},
		{"march 20", day(3, 20), true},
		{"20th of march", day(3, 20), true},
		{"feb 1", time.Date(2027, 2, 1, 0, 0, 0, 0, now.Location()), true},
		{"4/15", day(4, 15), true},
		{"25/12/26", day(12, 25), true},
		{"2026-07-04", day(7, 4), true},
		{"feb 30", time.Time{}, false},
		{"someday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := when.ParseDate(tc.in, now)
			if ok != tc.ok {
				t.Fatalf("ok: got %v, want %v", ok, tc.ok)
			}
			if ok && !got.Equal(tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		h, m int
		ok   bool
	}{
		{"3pm", 15, 0, true},
		{"3:30 PM", 15, 30, true},
		{"15:30", 15, 30, true},
		{"12am", 0, 0, true},
		{"12 pm", 12, 0, true},
		{"9 a.m.", 9, 0, true},
		{"3", 15, 0, true},
		{"10", 10, 0, true},
		{"tomorrow at 2:15pm", 14, 15, true},
		{"noon", 12, 0, true},
		{"midnight", 0, 0, true},
		{"morning", 9, 0, true},
		{"afternoon", 14, 0, true},
		{"3pm this afternoon", 15, 0, true},
		{"4:30 tomorrow afternoon", 16, 30, true},
		{"lunch at midday", 12, 0, true},
		{"evening", 18, 0, true},
		{"night", 20, 0, true},
		{"25:00", 0, 0, false},
		{"whenever", 0, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			h, m, ok := when.ParseClock(tc.in)
			if ok != tc.ok || h != tc.h || m != tc.m {
				t.Errorf("got %02d:%02d ok=%v, want %02d:%02d ok=%v", h, m, ok, tc.h, tc.m, tc.ok)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"2 hours", 2 * time.Hour, true},
		{"1.5 hrs", 90 * time.Minute, true},
		{"45 minutes", 45 * time.Minute, true},
		{"30 mins", 30 * time.Minute, true},
		{"1 hour 30 minutes", 90 * time.Minute, true},
		{"half an hour", 30 * time.Minute, true},
		{"an hour", time.Hour, true},
		{"all day", when.AllDay, true},
		{"2 days", 48 * time.Hour, true},
		{"0.5", 30 * time.Minute, true},
		{"", 0, false},
		{"a while", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := when.ParseDuration(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Errorf("got %v ok=%v, want %v ok=%v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		token      string
		start, end time.Time
		phrase     string
	}{
		{"today", day(3, 2), day(3, 3), "today"},
		{"yesterday", day(3, 1), day(3, 2), "yesterday"},
		{"week", day(3, 2), day(3, 9), "this week"},
		{"last_week", day(2, 23), day(3, 2), "last week"},
		{"next_week", day(3, 9), day(3, 16), "next week"},
		{"month", day(3, 1), day(4, 1), "this month"},
		{"last_month", day(2, 1), day(3, 1), "last month"},
		{"next_month", day(4, 1), day(5, 1), "next month"},
	}
	for _, tc := range tests {
		t.Run(tc.token, func(t *testing.T) {
			start, end, phrase, ok := when.Range(tc.token, now)
			if !ok {
				t.Fatal("expected ok")
			}
			if !start.Equal(tc.start) || !end.Equal(tc.end) || phrase != tc.phrase {
				t.Errorf("got [%v, %v) %q", start, end, phrase)
			}
		})
	}
	if _, _, _, ok := when.Range("fortnight", now); ok {
		t.Error("unknown token accepted")
	}
}

func TestRange_WeekStartsMondayFromSunday(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 20, 0, 0, 0, now.Location())
	start, _, _, _ := when.Range("week", sunday)
	if !start.Equal(day(3, 2)) {
		t.Errorf("got %v, want Monday 2 March", start)
	}
}

func TestAgoAndHours(t *testing.T) {
	if got := when.Ago(now.Add(-3*time.Hour), now); got != "3h ago" {
		t.Errorf("Ago: got %q", got)
	}
	if got := when.Ago(now.Add(-30*24*time.Hour), now); got != "Jan 31" {
		t.Errorf("Ago: got %q", got)
	}
	if got := when.Hours(90 * time.Minute); got != "1.5h" {
		t.Errorf("Hours: got %q", got)
	}
	if got := when.Hours(45 * time.Minute); got != "45m" {
		t.Errorf("Hours: got %q", got)
	}
}

func TestHasClock(t *testing.T) {
	tests := map[string]bool{
		"friday 3pm":      true,
		"tomorrow at 9":   true,
		"march 20 14:30":  true,
		"monday morning":  true,
		"march 20":        false,
		"in 3 days":       false,
		"next wednesday":  false,
		"3 P.M. tomorrow": true,
	}
	for in, want := range tests {
		if got := when.HasClock(in); got != want {
			t.Errorf("HasClock(%q) = %v, want %v", in, got, want)
		}
	}
}
