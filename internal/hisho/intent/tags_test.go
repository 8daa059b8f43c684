package intent_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/bdobrica/Hisho/internal/hisho/intent"
)

var allEnabled = intent.NewServiceSet(intent.AllServices...)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		enabled     intent.ServiceSet
		wantText    string
		wantActions []intent.ActionRequest
		wantDropped int
	}{
		{
			name:     "plain answer",
			reply:    "Hello! How can I help?",
			enabled:  allEnabled,
			wantText: "Hello! How can I help?",
		},
		{
			name:     "single tag with narration",
			reply:    "I'll schedule that meeting for you.\n[SERVICE_ACTION: CALENDAR | action: CREATE_EVENT | title: \"Meeting\" | date: \"tomorrow\" | time: \"2pm\"]",
			enabled:  allEnabled,
			wantText: "I'll schedule that meeting for you.",
			wantActions: []intent.ActionRequest{
				intent.NewAction(intent.Calendar, "CREATE_EVENT", "title", "Meeting", "date", "tomorrow", "time", "2pm"),
			},
		},
		{
			name:     "several tags in order",
			reply:    "[SERVICE_ACTION: MAIL | action: SEARCH_EMAILS | query: 'from:bob']\nThen:\n\n\n[SERVICE_ACTION: TASKS | action: ADD_TASK | title: \"Reply to Bob\"]",
			enabled:  allEnabled,
			wantText: "Then:",
			wantActions: []intent.ActionRequest{
				intent.NewAction(intent.Mail, "SEARCH_EMAILS", "query", "from:bob"),
				intent.NewAction(intent.Tasks, "ADD_TASK", "title", "Reply to Bob"),
			},
		},
		{
			name:        "disabled service dropped",
			reply:       "Sure. [SERVICE_ACTION: DRIVE | action: LIST_RECENT] [SERVICE_ACTION: CALENDAR | action: VIEW_EVENTS | range: today]",
			enabled:     intent.NewServiceSet(intent.Calendar),
			wantText:    "Sure.",
			wantActions: []intent.ActionRequest{intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "today")},
			wantDropped: 1,
		},
		{
			name:        "missing verb dropped",
			reply:       "[SERVICE_ACTION: CALENDAR | range: \"today\"]Done",
			enabled:     allEnabled,
			wantText:    "Done",
			wantDropped: 1,
		},
		{
			name:        "unknown service dropped",
			reply:       "[SERVICE_ACTION: WEATHER | action: FORECAST]",
			enabled:     allEnabled,
			wantDropped: 1,
		},
		{
			name:    "tolerant whitespace and case",
			reply:   "[service_action:mail|action:list_unread|  Max_Results :  \"5\"  ]",
			enabled: allEnabled,
			wantActions: []intent.ActionRequest{
				intent.NewAction(intent.Mail, "LIST_UNREAD", "max_results", "5"),
			},
		},
		{
			name:    "value containing a colon",
			reply:   `[SERVICE_ACTION: CALENDAR | action: CREATE_EVENT | time: "2:30 pm"]`,
			enabled: allEnabled,
			wantActions: []intent.ActionRequest{
				intent.NewAction(intent.Calendar, "CREATE_EVENT", "time", "2:30 pm"),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, dropped := intent.ParseReply(tc.reply, tc.enabled)
			if got.Text != tc.wantText {
				t.Errorf("Text: got %q, want %q", got.Text, tc.wantText)
			}
			if diff := cmp.Diff(tc.wantActions, got.Actions, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Actions mismatch (-want +got):\n%s", diff)
			}
			if len(dropped) != tc.wantDropped {
				t.Errorf("dropped: got %d (%v), want %d", len(dropped), dropped, tc.wantDropped)
			}
			if got.Source != intent.SourceModel {
				t.Errorf("Source: got %q", got.Source)
			}
		})
	}
}

func TestParseReply_EveryValidTagAppearsOnce(t *testing.T) {
	actions := []intent.ActionRequest{
		intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "week"),
		intent.NewAction(intent.Mail, "DELETE_EMAIL", "query", "from:a@example.com"),
		intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "week"),
		intent.NewAction(intent.Drive, "RENAME_FILE", "query", "budget", "new_name", "Budget 2026"),
	}
	var b strings.Builder
	b.WriteString("Working on it.\n")
	for _, a := range actions {
		b.WriteString(intent.RenderTag(a))
		b.WriteString("\n")
	}

	got, dropped := intent.ParseReply(b.String(), allEnabled)
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped tags: %v", dropped)
	}
	if diff := cmp.Diff(actions, got.Actions); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if strings.ContainsAny(got.Text, "[]|") {
		t.Errorf("orphaned tag fragments in %q", got.Text)
	}
}

func TestRenderTag_SanitisesValues(t *testing.T) {
	a := intent.NewAction(intent.Mail, "SEND_EMAIL", "subject", `a|b] "c"`)
	tag := intent.RenderTag(a)
	got, _ := intent.ParseReply(tag, allEnabled)
	if len(got.Actions) != 1 {
		t.Fatalf("expected 1 action from %q, got %d", tag, len(got.Actions))
	}
	if s := got.Actions[0].Param("subject"); s != "a/b) 'c" {
		t.Errorf("subject: got %q", s)
	}
}

func TestStripTags_CollapsesBlankLines(t *testing.T) {
	in := "Line one\n\n[SERVICE_ACTION: TASKS | action: LIST_TASKS]\n\n  \nLine two"
	if got := intent.StripTags(in); got != "Line one\n\nLine two" {
		t.Errorf("got %q", got)
	}
}
