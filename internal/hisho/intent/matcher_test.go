package intent_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bdobrica/Hisho/internal/hisho/intent"
)

func TestMatcher(t *testing.T) {
	m := intent.NewMatcher(intent.MatcherOptions{BareQuestionShowsToday: true})

	tests := []struct {
		utterance string
		want      *intent.ActionRequest // nil means no match
	}{
		{"what's on my calendar today", ptr(intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "today"))},
		{"What’s on my calendar?", ptr(intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "today"))},
		{"?", ptr(intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "today"))},
		{"calendar", ptr(intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "today"))},
		{"show my schedule for tomorrow", ptr(intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "tomorrow"))},
		{"what do I have next week", ptr(intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "next_week"))},
		{"what was on my calendar last month", ptr(intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "last_month"))},
		{"show me my events this week", ptr(intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "week"))},
		{"am I free yesterday", ptr(intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "yesterday"))},
		{"show my unread emails", ptr(intent.NewAction(intent.Mail, "LIST_UNREAD"))},
		{"delete my emails from newsletter@example.com", ptr(intent.NewAction(intent.Mail, "DELETE_EMAIL", "query", "from:newsletter@example.com"))},
		{"add a task to buy milk", ptr(intent.NewAction(intent.Tasks, "ADD_TASK", "title", "buy milk"))},
		{"find a free 2 hour slot", ptr(intent.NewAction(intent.Calendar, "FIND_FREE_TIME", "duration", "2"))},
		{
			"Schedule a meeting with Bob tomorrow at 3pm",
			ptr(intent.NewAction(intent.Calendar, "CREATE_EVENT", "title", "Meeting with Bob", "date", "tomorrow", "time", "3pm")),
		},
		{"tell me a joke", nil},
		{"", nil},
		{"cancel the dentist appointment", nil},
	}

	for _, tc := range tests {
		t.Run(tc.utterance, func(t *testing.T) {
			got, _, ok := m.Match(tc.utterance, allEnabled)
			if tc.want == nil {
				if ok {
					t.Fatalf("expected no match, got %+v", got.Actions)
				}
				return
			}
			if !ok {
				t.Fatal("expected a match")
			}
			if got.Source != intent.SourceMatcher {
				t.Errorf("Source: got %q", got.Source)
			}
			if diff := cmp.Diff([]intent.ActionRequest{*tc.want}, got.Actions); diff != "" {
				t.Errorf("actions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatcher_BareQuestionIsPolicy(t *testing.T) {
	off := intent.NewMatcher(intent.MatcherOptions{})
	if _, _, ok := off.Match("?", allEnabled); ok {
		t.Error("bare question matched with the shortcut disabled")
	}
	on := intent.NewMatcher(intent.MatcherOptions{BareQuestionShowsToday: true})
	if _, _, ok := on.Match("??", intent.NewServiceSet(intent.Mail)); ok {
		t.Error("bare question matched with the calendar disabled")
	}
}

func TestMatcher_SkipsDisabledServices(t *testing.T) {
	m := intent.NewMatcher(intent.MatcherOptions{})
	if _, _, ok := m.Match("show my unread emails", intent.NewServiceSet(intent.Calendar)); ok {
		t.Error("mail rule fired with mail disabled")
	}
}

func ptr[T any](v T) *T { return &v }
