package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Enrich fills parameters the translator omitted using keyword heuristics on
// the original utterance. It is additive only: a parameter that is already
// set, even to a value Enrich would not have chosen, is never changed. A
// blank value counts as omitted, because models emit `duration: ""` for
// "I don't know". The input slice and its maps are not modified.
func Enrich(actions []ActionRequest, utterance string) []ActionRequest {
	if len(actions) == 0 {
		return actions
	}
	norm := normalize(utterance)
	out := make([]ActionRequest, len(actions))
	for i, a := range actions {
		a = a.Clone()
		for _, fill := range enrichers[a.Service] {
			fill(a, norm, utterance)
		}
		out[i] = a
	}
	return out
}

type enricher func(a ActionRequest, norm, raw string)

var enrichers = map[Service][]enricher{
	Calendar: {enrichEventDefaults, enrichViewRange, enrichFreeTime},
	Mail:     {enrichMailQuery, enrichMailLimit},
	Tasks:    {enrichTaskTitle},
	Drive:    {enrichDriveLimit},
}

// setDefault writes value under key when the key is absent or blank
// (whitespace only).
func setDefault(a ActionRequest, key, value string) {
	if value == "" {
		return
	}
	if strings.TrimSpace(a.Parameters[key]) == "" {
		a.Parameters[key] = value
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var eventCreationVerbs = map[string]bool{"CREATE_EVENT": true, "CREATE_RECURRING": true, "BLOCK_TIME": true}

func enrichEventDefaults(a ActionRequest, norm, raw string) {
	if !eventCreationVerbs[a.Action] {
		return
	}
	// A duration the user stated beats the per-kind defaults.
	if h, ok := ExtractDurationHours(norm); ok {
		setDefault(a, "duration", FormatHours(h))
	}
	switch {
	case containsAny(norm, "standup", "stand-up", "daily", "sync"):
		setDefault(a, "duration", "30 minutes")
	case containsAny(norm, "lunch", "interview"):
		setDefault(a, "duration", "1 hour")
	case strings.Contains(norm, "call"):
		setDefault(a, "duration", "30 minutes")
	default:
		setDefault(a, "duration", "1 hour")
	}

	switch {
	case strings.Contains(norm, "meeting"):
		setDefault(a, "title", "Meeting")
	case strings.Contains(norm, "appointment"):
		setDefault(a, "title", "Appointment")
	case strings.Contains(norm, "call"):
		setDefault(a, "title", "Call")
	case strings.Contains(norm, "interview"):
		setDefault(a, "title", "Interview")
	case a.Action == "BLOCK_TIME":
		setDefault(a, "title", "Focus time")
	}

	info := ExtractEventInfo(raw)
	setDefault(a, "date", info["date"])
	setDefault(a, "time", info["time"])
}

func enrichViewRange(a ActionRequest, norm, _ string) {
	if a.Action == "VIEW_EVENTS" {
		setDefault(a, "range", DetectRange(norm))
	}
}

func enrichFreeTime(a ActionRequest, norm, _ string) {
	if a.Action != "FIND_FREE_TIME" {
		return
	}
	if h, ok := ExtractDurationHours(norm); ok {
		setDefault(a, "duration", strconv.FormatFloat(h, 'f', -1, 64))
	}
	setDefault(a, "duration", "1")
}

var (
	mailQueryVerbs = map[string]bool{
		"DELETE_EMAIL": true, "SEARCH_EMAILS": true, "READ_EMAIL": true,
		"MARK_READ": true, "MARK_UNREAD": true, "REPLY_EMAIL": true,
	}
	olderThanRe = regexp.MustCompile(`\bolder than (\d+) days?\b`)
)

// enrichMailQuery derives a search scope from the utterance for mail verbs
// that act on a query.
func enrichMailQuery(a ActionRequest, norm, raw string) {
	if !mailQueryVerbs[a.Action] {
		return
	}
	var terms []string
	if sender := FromSender(raw); sender != "" {
		terms = append(terms, "from:"+sender)
	}
	switch {
	case strings.Contains(norm, "spam"):
		terms = append(terms, "is:spam")
	case containsAny(norm, "promotion", "promotional"):
		terms = append(terms, "category:promotions")
	}
	if m := olderThanRe.FindStringSubmatch(norm); m != nil {
		terms = append(terms, "older_than:"+m[1]+"d")
	} else if strings.Contains(norm, "old ") || strings.HasSuffix(norm, " old") {
		terms = append(terms, "older_than:30d")
	}
	if strings.Contains(norm, "unread") {
		terms = append(terms, "is:unread")
	}
	setDefault(a, "query", strings.Join(terms, " "))
}

func enrichMailLimit(a ActionRequest, _, _ string) {
	if a.Action == "LIST_UNREAD" || a.Action == "SEARCH_EMAILS" {
		setDefault(a, "max_results", "10")
	}
}

func enrichDriveLimit(a ActionRequest, _, _ string) {
	if a.Action == "LIST_RECENT" {
		setDefault(a, "max_results", "10")
	}
}

func enrichTaskTitle(a ActionRequest, _, raw string) {
	if a.Action == "ADD_TASK" {
		setDefault(a, "title", ExtractTaskTitle(raw))
	}
}
