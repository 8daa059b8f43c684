package intent

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// normalize case-folds and trims an utterance and straightens typographic
// apostrophes so "what’s" and "what's" match the same rules.
func normalize(utterance string) string {
	s := strings.ToLower(strings.TrimSpace(utterance))
	return strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`).Replace(s)
}

var (
	rangePatterns = []struct {
		re    *regexp.Regexp
		token string
	}{
		{regexp.MustCompile(`\b(last|previous|past) week\b`), RangeLastWeek},
		{regexp.MustCompile(`\bnext week\b`), RangeNextWeek},
		{regexp.MustCompile(`\b(last|previous|past) month\b`), RangeLastMonth},
		{regexp.MustCompile(`\bnext month\b`), RangeNextMonth},
		{regexp.MustCompile(`\byesterday\b`), RangeYesterday},
		{regexp.MustCompile(`\btomorrow\b`), RangeTomorrow},
		{regexp.MustCompile(`\bweek(ly)?\b`), RangeWeek},
		{regexp.MustCompile(`\bmonth(ly)?\b`), RangeMonth},
	}
)

// DetectRange maps relative-time phrases onto a VIEW_EVENTS range token,
// defaulting to today.
func DetectRange(utterance string) string {
	s := normalize(utterance)
	for _, p := range rangePatterns {
		if p.re.MatchString(s) {
			return p.token
		}
	}
	return RangeToday
}

var durationPatterns = []struct {
	re    *regexp.Regexp
	hours float64 // multiplier, or the fixed value when the pattern has no group
	fixed bool
}{
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`), 1, false},
	{regexp.MustCompile(`(\d+)\s*(?:minutes?|mins?)\b`), 1.0 / 60, false},
	{regexp.MustCompile(`\bhalf\s*(?:an\s*)?hour\b`), 0.5, true},
	{regexp.MustCompile(`(\d+)\s*days?\b`), 24, false},
	{regexp.MustCompile(`\ball\s*day\b`), 24, true},
}

// ExtractDurationHours finds an explicit duration in the utterance.
func ExtractDurationHours(utterance string) (float64, bool) {
	s := normalize(utterance)
	for _, p := range durationPatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if p.fixed {
			return p.hours, true
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v <= 0 {
			continue
		}
		return v * p.hours, true
	}
	return 0, false
}

// FormatHours renders an hour count the way durations are written in action
// parameters: "30 minutes", "1 hour", "1.5 hours".
func FormatHours(h float64) string {
	if h < 1 {
		return strconv.Itoa(int(h*60+0.5)) + " minutes"
	}
	s := strconv.FormatFloat(h, 'f', -1, 64)
	if h == 1 {
		return s + " hour"
	}
	return s + " hours"
}

var (
	eventTitleRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b((?:meeting|event|appointment|call) (?:with|about|for) [^,.\n]+?)(?:\s+(?:on|at|tomorrow|today|next)\b|$|[,.])`),
		regexp.MustCompile(`(?i)\b(?:schedule|create|book) (?:a |an )?([^,.\n]+?)\s+(?:on|at|for|tomorrow|today)\b`),
		regexp.MustCompile(`"([^"]+)"`),
		regexp.MustCompile(`'([^']+)'`),
	}
	eventDateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bnext (week|month|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		regexp.MustCompile(`(?i)\b(tomorrow|today|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?)\b`),
		regexp.MustCompile(`(?i)\b((?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2})\b`),
	}
	eventTimeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bat (\d{1,2}(?::\d{2})?\s*(?:am|pm))`),
		regexp.MustCompile(`(?i)\bat (\d{1,2}(?::\d{2})?)\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s*(?:am|pm))\b`),
		regexp.MustCompile(`(?i)\b(morning|afternoon|evening|noon|midnight)\b`),
	}
)

// ExtractEventInfo pulls title, date, time and duration hints out of an
// event-creation utterance. Only hints that are present are returned.
func ExtractEventInfo(utterance string) map[string]string {
	params := map[string]string{}
	if v := firstGroup(eventTitleRes, utterance); v != "" {
		params["title"] = capitalize(v)
	}
	if m := firstMatch(eventDateRes, utterance); m != nil {
		if strings.HasPrefix(strings.ToLower(m[0]), "next ") {
			params["date"] = strings.ToLower(m[0])
		} else {
			params["date"] = strings.ToLower(m[1])
		}
	}
	if v := firstGroup(eventTimeRes, utterance); v != "" {
		params["time"] = strings.ToLower(v)
	}
	if h, ok := ExtractDurationHours(utterance); ok {
		params["duration"] = FormatHours(h)
	}
	return params
}

var eventRefRes = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]+)"`),
	regexp.MustCompile(`'([^']+)'`),
	regexp.MustCompile(`(?i)\b(?:the |my )?((?:\w+ ){1,3}?(?:meeting|appointment|event|call))\b`),
	regexp.MustCompile(`(?i)\bwith ([\w ]+)`),
	regexp.MustCompile(`(?i)\babout ([\w ]+)`),
}

var refNoise = regexp.MustCompile(`(?i)^(?:cancel|delete|remove|move|reschedule|my|the|a|an)\s+`)

// ExtractEventReference finds the title of an existing event the utterance
// refers to ("cancel the dentist appointment" gives "dentist appointment").
func ExtractEventReference(utterance string) map[string]string {
	params := map[string]string{}
	v := firstGroup(eventRefRes, utterance)
	for {
		trimmed := refNoise.ReplaceAllString(v, "")
		if trimmed == v {
			break
		}
		v = trimmed
	}
	if v = strings.TrimSpace(v); v != "" {
		params["title"] = v
	}
	return params
}

var (
	taskCommandRe   = regexp.MustCompile(`(?i)\b(?:add|create|new|task|todo|to-do|reminder|please)\b`)
	taskConnectorRe = regexp.MustCompile(`(?i)^(?:to|called|named|for|a|an|:)\s+`)
	multiSpaceRe    = regexp.MustCompile(`\s+`)
)

// maxTaskTitle caps titles derived from free text.
const maxTaskTitle = 100

// ExtractTaskTitle strips command words from a task-creation utterance
// ("add a task to buy milk" gives "buy milk"). It may return "".
func ExtractTaskTitle(utterance string) string {
	s := taskCommandRe.ReplaceAllString(utterance, " ")
	s = strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
	for {
		trimmed := strings.TrimSpace(taskConnectorRe.ReplaceAllString(s, ""))
		if trimmed == s {
			break
		}
		s = trimmed
	}
	s = strings.Trim(s, " .!,;:")
	if utf8.RuneCountInString(s) > maxTaskTitle {
		s = string([]rune(s)[:maxTaskTitle])
	}
	return s
}

var emailAddrRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// FirstEmailAddress returns the first mail address in s, or "".
func FirstEmailAddress(s string) string {
	return emailAddrRe.FindString(s)
}

var fromSenderRe = regexp.MustCompile(`(?i)\bfrom\s+([^\s,;]+)`)

// FromSender returns the word following "from", minus trailing punctuation.
func FromSender(s string) string {
	m := fromSenderRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimRight(m[1], ".!?:)")
}

func firstMatch(res []*regexp.Regexp, s string) []string {
	for _, re := range res {
		if m := re.FindStringSubmatch(s); m != nil {
			return m
		}
	}
	return nil
}

func firstGroup(res []*regexp.Regexp, s string) string {
	if m := firstMatch(res, s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return strings.ToUpper(string(r)) + s[size:]
}
