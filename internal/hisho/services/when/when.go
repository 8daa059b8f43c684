// Package when reads the loose dates, clock times and durations that appear
// in chat requests ("next friday", "3:30 pm", "half an hour") and maps the
// calendar range tokens onto concrete intervals.
//
// All functions are pure: "now" is an argument, and results are in now's
// location.
package when

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
	"sun":      time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"fri": time.Friday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"jun": time.June, "jul": time.July, "aug": time.August, "sep": time.September,
	"sept": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	inDaysRe    = regexp.MustCompile(`\bin (\d{1,3}) days?\b`)
	weekdayRe   = regexp.MustCompile(`\b(next |this )?(sunday|monday|tuesday|wednesday|thursday|friday|saturday|sun|mon|tues|tue|wed|thurs|thur|thu|fri|sat)\b`)
	monthDayRe  = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december|sept|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.? (\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRe  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)? (?:of )?(january|february|march|april|may|june|july|august|september|october|november|december|sept|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\b`)
	numericDate = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
	isoDate     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// Midnight returns the start of t's day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate returns the start of the day s names, relative to now. It
// understands today, tomorrow, yesterday, "in N days", "next week", weekday
// names (optionally with "next"), "march 5", "5 march", "M/D[/Y]" and
// "YYYY-MM-DD". A weekday means its next occurrence after today. A month and
// day already past this year means next year.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	today := Midnight(now)
	if s == "" {
		return time.Time{}, false
	}

	switch {
	case strings.Contains(s, "day after tomorrow"):
		return today.AddDate(0, 0, 2), true
	case strings.Contains(s, "today"), strings.Contains(s, "tonight"), s == "now":
		return today, true
	case strings.Contains(s, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(s, "yesterday"):
		return today.AddDate(0, 0, -1), true
	}

	if m := inDaysRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, n), true
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return dateIfValid(y, time.Month(mo), d, now.Location())
	}
	if m := weekdayRe.FindStringSubmatch(s); m != nil {
		wd := weekdays[m[2]]
		ahead := (int(wd) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		if strings.TrimSpace(m[1]) == "next" && ahead < 7 {
			ahead += 7
		}
		return today.AddDate(0, 0, ahead), true
	}
	if strings.Contains(s, "next week") {
		return today.AddDate(0, 0, 7), true
	}

	var (
		month time.Month
		day   int
	)
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		month = months[m[1]]
		day, _ = strconv.Atoi(m[2])
	} else if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		month = months[m[2]]
		day, _ = strconv.Atoi(m[1])
	}
	if month != 0 {
		t, ok := dateIfValid(today.Year(), month, day, now.Location())
		if ok && t.Before(today) {
			t, ok = dateIfValid(today.Year()+1, month, day, now.Location())
		}
		return t, ok
	}

	if m := numericDate.FindStringSubmatch(s); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y := today.Year()
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
			if y < 100 {
				y += 2000
			}
		}
		if t, ok := dateIfValid(y, time.Month(mo), d, now.Location()); ok {
			return t, true
		}
		// Day-first when month-first is impossible (25/12).
		return dateIfValid(y, time.Month(d), mo, now.Location())
	}
	return time.Time{}, false
}

// dateIfValid rejects dates that time.Date would normalise (Feb 30).
func dateIfValid(y int, m time.Month, d int, loc *time.Location) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if t.Month() != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

var (
	noonRe     = regexp.MustCompile(`\b(?:noon|midday)\b`)
	midnightRe = regexp.MustCompile(`\bmidnight\b`)
)

var clockRe = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?(?:\W|$)`)

// ParseClock reads a time of day. It accepts "3pm", "3:30 PM", "15:30",
// "noon", "midnight" and the parts of the day (morning 9:00, afternoon 14:00,
// evening 18:00, night 20:00). A bare hour below 8 without am/pm is taken as
// afternoon, since few meetings start at 3 in the morning.
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case noonRe.MatchString(s):
		return 12, 0, true
	case midnightRe.MatchString(s):
		return 0, 0, true
	}

	for _, m := range clockRe.FindAllStringSubmatch(s, -1) {
		h, _ := strconv.Atoi(m[1])
		mins := 0
		if m[2] != "" {
			mins, _ = strconv.Atoi(m[2])
		}
		period := strings.ReplaceAll(m[3], ".", "")
		if m[2] == "" && period == "" {
			// A lone number is only a time when nothing else qualifies it.
			if strings.Contains(s, "/") || strings.Contains(s, " day") || strings.Contains(s, "hour") || strings.Contains(s, "min") {
				continue
			}
		}
		switch period {
		case "pm":
			if h != 12 {
				h += 12
			}
		case "am":
			if h == 12 {
				h = 0
			}
		default:
			if h < 8 {
				h += 12
			}
		}
		if h > 23 || mins > 59 {
			continue
		}
		return h, mins, true
	}

	switch {
	case strings.Contains(s, "morning"):
		return 9, 0, true
	case strings.Contains(s, "afternoon"):
		return 14, 0, true
	case strings.Contains(s, "evening"), strings.Contains(s, "tonight"):
		return 18, 0, true
	case strings.Contains(s, "night"):
		return 20, 0, true
	}
	return 0, 0, false
}

var clockHintRe = regexp.MustCompile(`\d\s*(?:am|pm)\b|\d\s*[ap]\.m\.|\d:\d\d|\bat \d|\bnoon|midday|midnight|morning|afternoon|evening|night`)

// HasClock reports whether s names a time of day, so that the day number in
// "march 20" is not read as 20:00.
func HasClock(s string) bool {
	return clockHintRe.MatchString(strings.ToLower(s))
}

// AllDay is the duration ParseDuration reports for "all day".
const AllDay = 24 * time.Hour

var durationRes = []struct {
	re   *regexp.Regexp
	unit time.Duration
}{
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b`), time.Hour},
	{regexp.MustCompile(`(\d+)\s*(?:minutes?|mins?|m)\b`), time.Minute},
	{regexp.MustCompile(`(\d+)\s*days?\b`), 24 * time.Hour},
}

// ParseDuration reads "2 hours", "1.5 hrs", "90 minutes", "half an hour", "an
// hour", "all day", or a bare number of hours ("2"). It combines "1 hour 30
// minutes".
func ParseDuration(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return 0, false
	case strings.Contains(s, "all day"), strings.Contains(s, "all-day"):
		return AllDay, true
	case strings.Contains(s, "half an hour"), strings.Contains(s, "half hour"), strings.Contains(s, "half-hour"):
		return 30 * time.Minute, true
	case strings.Contains(s, "quarter"):
		return 15 * time.Minute, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return time.Duration(f * float64(time.Hour)), true
	}

	var total time.Duration
	for _, d := range durationRes {
		if m := d.re.FindStringSubmatch(s); m != nil {
			f, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				total += time.Duration(f * float64(d.unit))
			}
		}
	}
	if total == 0 && (s == "an hour" || s == "one hour" || strings.HasPrefix(s, "an hour")) {
		total = time.Hour
	}
	return total, total > 0
}

// Range returns the interval a VIEW_EVENTS range token covers and a phrase
// for it ("today", "this week"). Weeks start on Monday.
func Range(token string, now time.Time) (start, end time.Time, phrase string, ok bool) {
	today := Midnight(now)
	monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, now.Location())

	switch token {
	case "today":
		return today, today.AddDate(0, 0, 1), "today", true
	case "tomorrow":
		return today.AddDate(0, 0, 1), today.AddDate(0, 0, 2), "tomorrow", true
	case "yesterday":
		return today.AddDate(0, 0, -1), today, "yesterday", true
	case "week":
		return monday, monday.AddDate(0, 0, 7), "this week", true
	case "last_week":
		return monday.AddDate(0, 0, -7), monday, "last week", true
	case "next_week":
		return monday.AddDate(0, 0, 7), monday.AddDate(0, 0, 14), "next week", true
	case "month":
		return first, first.AddDate(0, 1, 0), "this month", true
	case "last_month":
		return first.AddDate(0, -1, 0), first, "last month", true
	case "next_month":
		return first.AddDate(0, 1, 0), first.AddDate(0, 2, 0), "next month", true
	}
	return time.Time{}, time.Time{}, "", false
}

// Ago renders how long before now t was: "just now", "5m ago", "3h ago",
// "yesterday", "4d ago", or the date.
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d/time.Minute)) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d/time.Hour)) + "h ago"
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return strconv.Itoa(int(d/(24*time.Hour))) + "d ago"
	}
	return t.In(now.Location()).Format("Jan 2")
}

// Hours renders a duration as "1h", "1.5h" or "45m".
func Hours(d time.Duration) string {
	if d < time.Hour {
		return strconv.Itoa(int(d/time.Minute)) + "m"
	}
	return strconv.FormatFloat(d.Hours(), 'f', -1, 64) + "h"
}
