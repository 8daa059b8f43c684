package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// MatcherOptions toggles the UX shortcuts whose intent is ambiguous enough to
// be a deployment choice.
type MatcherOptions struct {
	// BareQuestionShowsToday treats punctuation-only input such as "?" as
	// "show me today's calendar" when the calendar is enabled.
	BareQuestionShowsToday bool
}

// rule is one deterministic pattern. match receives the normalized utterance
// and the original trimmed text (for case-preserving extraction).
type rule struct {
	name    string
	service Service
	match   func(norm, raw string) (TranslationResult, bool)
}

// Matcher recognises common unambiguous requests without calling the model.
// Rules are evaluated in order and the first match wins.
type Matcher struct {
	rules []rule
}

// NewMatcher builds the rule table.
func NewMatcher(opts MatcherOptions) *Matcher {
	m := &Matcher{}
	if opts.BareQuestionShowsToday {
		m.rules = append(m.rules, rule{"bare-question", Calendar, matchBareQuestion})
	}
	m.rules = append(m.rules,
		rule{"calendar-simple", Calendar, matchSimpleCalendar},
		rule{"calendar-create", Calendar, matchCreateEvent},
		rule{"mail-unread", Mail, matchUnreadMail},
		rule{"mail-delete-from", Mail, matchDeleteMailFrom},
		rule{"tasks-add", Tasks, matchAddTask},
		rule{"calendar-free-time", Calendar, matchFreeTime},
		rule{"calendar-view", Calendar, matchCalendarView},
	)
	return m
}

// Match returns the first rule's result whose service is enabled. It never
// fails: unmatched input reports ok=false.
func (m *Matcher) Match(utterance string, enabled ServiceSet) (result TranslationResult, rule string, ok bool) {
	raw := strings.TrimSpace(utterance)
	norm := normalize(raw)
	if norm == "" {
		return TranslationResult{}, "", false
	}
	for _, r := range m.rules {
		if !enabled.Has(r.service) {
			continue
		}
		if res, hit := r.match(norm, raw); hit {
			res.Source = SourceMatcher
			return res, r.name, true
		}
	}
	return TranslationResult{}, "", false
}

func viewEvents(rangeToken string) TranslationResult {
	return TranslationResult{Actions: []ActionRequest{NewAction(Calendar, "VIEW_EVENTS", "range", rangeToken)}}
}

var bareQuestionRe = regexp.MustCompile(`^[?!.…]+$`)

func matchBareQuestion(norm, _ string) (TranslationResult, bool) {
	if bareQuestionRe.MatchString(norm) {
		return viewEvents(RangeToday), true
	}
	return TranslationResult{}, false
}

var simpleCalendarRes = []*regexp.Regexp{
	regexp.MustCompile(`^(?:calendar|schedule|agenda|today)\??$`),
	regexp.MustCompile(`^what(?:'s| is) (?:on )?(?:my )?(?:calendar|schedule|agenda)\??$`),
	regexp.MustCompile(`^what(?:'s| is) (?:on |for )?today\??$`),
}

func matchSimpleCalendar(norm, _ string) (TranslationResult, bool) {
	for _, re := range simpleCalendarRes {
		if re.MatchString(norm) {
			return viewEvents(RangeToday), true
		}
	}
	return TranslationResult{}, false
}

var createEventRe = regexp.MustCompile(`\b(?:schedule|create|add|book|set up)\b.*\b(?:meeting|event|appointment|call|standup|stand-up|interview|lunch)\b`)

func matchCreateEvent(norm, raw string) (TranslationResult, bool) {
	if !createEventRe.MatchString(norm) {
		return TranslationResult{}, false
	}
	a := ActionRequest{Service: Calendar, Action: "CREATE_EVENT", Parameters: ExtractEventInfo(raw)}
	return TranslationResult{Text: "I'll help you schedule that event.", Actions: []ActionRequest{a}}, true
}

var unreadMailRe = regexp.MustCompile(`\b(?:show|list|check|get|view|read)\b.*\b(?:unread|new)\b.*\b(?:e-?mails?|mail|messages?|inbox)\b`)

func matchUnreadMail(norm, _ string) (TranslationResult, bool) {
	if !unreadMailRe.MatchString(norm) {
		return TranslationResult{}, false
	}
	return TranslationResult{
		Text:    "Let me check your unread emails.",
		Actions: []ActionRequest{NewAction(Mail, "LIST_UNREAD")},
	}, true
}

var deleteMailFromRe = regexp.MustCompile(`\b(?:delete|remove|trash)\b.*\b(?:e-?mails?|mail|messages?)\b.*\bfrom\s+\S+`)

func matchDeleteMailFrom(norm, raw string) (TranslationResult, bool) {
	if !deleteMailFromRe.MatchString(norm) {
		return TranslationResult{}, false
	}
	sender := FromSender(raw)
	if sender == "" {
		return TranslationResult{}, false
	}
	return TranslationResult{
		Text:    "I'll find and help you delete emails from " + sender + ".",
		Actions: []ActionRequest{NewAction(Mail, "DELETE_EMAIL", "query", "from:"+sender)},
	}, true
}

var addTaskRe = regexp.MustCompile(`\b(?:add|create|new)\b.*\b(?:task|todo|to-do)\b`)

func matchAddTask(norm, raw string) (TranslationResult, bool) {
	if !addTaskRe.MatchString(norm) {
		return TranslationResult{}, false
	}
	a := NewAction(Tasks, "ADD_TASK")
	if title := ExtractTaskTitle(raw); title != "" {
		a.Parameters["title"] = title
	}
	return TranslationResult{Text: "I'll add that task for you.", Actions: []ActionRequest{a}}, true
}

var freeTimeRe = regexp.MustCompile(`\b(?:find|when am i|available|free)\b.*\b(?:time|slots?|availability)\b`)

func matchFreeTime(norm, raw string) (TranslationResult, bool) {
	if !freeTimeRe.MatchString(norm) {
		return TranslationResult{}, false
	}
	hours, ok := ExtractDurationHours(raw)
	if !ok {
		hours = 1
	}
	h := strconv.FormatFloat(hours, 'f', -1, 64)
	a := NewAction(Calendar, "FIND_FREE_TIME", "duration", h)
	if d := firstMatch(eventDateRes, raw); d != nil {
		a.Parameters["date"] = strings.ToLower(d[0])
	}
	return TranslationResult{Text: "I'll find available " + h + "h slots for you.", Actions: []ActionRequest{a}}, true
}

var (
	calendarViewRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:show|display|list|view|check)\b(?: me)?(?: my)?(?: the)? (?:calendar|schedule|agenda|events?|meetings?|appointments?)\b`),
		regexp.MustCompile(`\bwhat(?:'s| is| was| do i have| did i have)\b.*\b(?:calendar|schedule|agenda|on today|on tomorrow|for today|for tomorrow|today|tomorrow|yesterday|this week|next week|last week|this month|next month|last month)\b`),
		regexp.MustCompile(`^(?:my )?(?:calendar|schedule|agenda)(?: for)? (?:today|tomorrow|yesterday|this week|next week|last week|this month|next month|last month)\??$`),
		regexp.MustCompile(`\b(?:today|tomorrow|yesterday)(?:'s)? (?:calendar|schedule|events|agenda|meetings)\b`),
		regexp.MustCompile(`\bam i (?:free|busy)\b`),
	}
	// Requests about other services or mutations must not be read as a
	// calendar view.
	calendarViewGuardRe = regexp.MustCompile(`\b(?:e-?mails?|mail|inbox|tasks?|todos?|contacts?|files?|folders?|delete|cancel|remove|move|reschedule)\b`)
)

func matchCalendarView(norm, _ string) (TranslationResult, bool) {
	if calendarViewGuardRe.MatchString(norm) {
		return TranslationResult{}, false
	}
	for _, re := range calendarViewRes {
		if re.MatchString(norm) {
			return viewEvents(DetectRange(norm)), true
		}
	}
	return TranslationResult{}, false
}
