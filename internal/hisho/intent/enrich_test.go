package intent_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bdobrica/Hisho/internal/hisho/intent"
)

func TestEnrich(t *testing.T) {
	tests := []struct {
		name      string
		action    intent.ActionRequest
		utterance string
		want      map[string]string
	}{
		{
			name:      "standup gets a short default duration",
			action:    intent.NewAction(intent.Calendar, "CREATE_EVENT"),
			utterance: "set up a standup tomorrow at 9am",
			want:      map[string]string{"duration": "30 minutes", "date": "tomorrow", "time": "9am"},
		},
		{
			name:      "explicit parameters are never overwritten",
			action:    intent.NewAction(intent.Calendar, "CREATE_EVENT", "duration", "2 hours", "title", "Sync"),
			utterance: "daily sync meeting",
			want:      map[string]string{"duration": "2 hours", "title": "Sync"},
		},
		{
			name:      "stated duration beats the sync default",
			action:    intent.NewAction(intent.Calendar, "CREATE_EVENT", "title", "X"),
			utterance: "schedule a 2 hour sync with the team tomorrow",
			want:      map[string]string{"duration": "2 hours", "title": "X", "date": "tomorrow"},
		},
		{
			name:      "stated duration beats the call default",
			action:    intent.NewAction(intent.Calendar, "CREATE_EVENT", "title", "Call with Ann"),
			utterance: "book a 90 minutes call with Ann",
			want:      map[string]string{"duration": "1.5 hours", "title": "Call with Ann"},
		},
		{
			name:      "blank parameter counts as omitted",
			action:    intent.NewAction(intent.Calendar, "CREATE_EVENT", "title", "Review", "duration", " "),
			utterance: "review on friday",
			want:      map[string]string{"duration": "1 hour", "title": "Review", "date": "friday"},
		},
		{
			name:      "meeting title and stated duration",
			action:    intent.NewAction(intent.Calendar, "CREATE_EVENT"),
			utterance: "plan a 90 minutes meeting on friday",
			want:      map[string]string{"duration": "1.5 hours", "title": "Meeting", "date": "friday"},
		},
		{
			name:      "block time is titled focus time",
			action:    intent.NewAction(intent.Calendar, "BLOCK_TIME"),
			utterance: "block some time",
			want:      map[string]string{"duration": "1 hour", "title": "Focus time"},
		},
		{
			name:      "view range from phrasing",
			action:    intent.NewAction(intent.Calendar, "VIEW_EVENTS"),
			utterance: "anything next week?",
			want:      map[string]string{"range": "next_week"},
		},
		{
			name:      "free time from minutes",
			action:    intent.NewAction(intent.Calendar, "FIND_FREE_TIME"),
			utterance: "find 30 minutes for me",
			want:      map[string]string{"duration": "0.5"},
		},
		{
			name:      "spam scope",
			action:    intent.NewAction(intent.Mail, "DELETE_EMAIL"),
			utterance: "delete all spam emails",
			want:      map[string]string{"query": "is:spam"},
		},
		{
			name:      "old mail from a sender",
			action:    intent.NewAction(intent.Mail, "DELETE_EMAIL"),
			utterance: "delete old emails from bob@example.com",
			want:      map[string]string{"query": "from:bob@example.com older_than:30d"},
		},
		{
			name:      "explicit age",
			action:    intent.NewAction(intent.Mail, "SEARCH_EMAILS"),
			utterance: "find unread promotions older than 7 days",
			want:      map[string]string{"query": "category:promotions older_than:7d is:unread", "max_results": "10"},
		},
		{
			name:      "listing limit kept",
			action:    intent.NewAction(intent.Mail, "LIST_UNREAD", "max_results", "5"),
			utterance: "unread mail",
			want:      map[string]string{"max_results": "5"},
		},
		{
			name:      "recent files limit",
			action:    intent.NewAction(intent.Drive, "LIST_RECENT"),
			utterance: "show my recent files",
			want:      map[string]string{"max_results": "10"},
		},
		{
			name:      "task title from utterance",
			action:    intent.NewAction(intent.Tasks, "ADD_TASK"),
			utterance: "add task: call mom",
			want:      map[string]string{"title": "call mom"},
		},
		{
			name:      "services without enrichers pass through",
			action:    intent.NewAction(intent.Contacts, "LIST_CONTACTS"),
			utterance: "show my contacts",
			want:      map[string]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := intent.Enrich([]intent.ActionRequest{tc.action}, tc.utterance)
			if len(got) != 1 {
				t.Fatalf("got %d actions, want 1", len(got))
			}
			if got[0].Service != tc.action.Service || got[0].Action != tc.action.Action {
				t.Errorf("identity changed: %s", got[0].Key())
			}
			if diff := cmp.Diff(tc.want, got[0].Parameters); diff != "" {
				t.Errorf("parameters mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnrich_DoesNotMutateInput(t *testing.T) {
	in := []intent.ActionRequest{
		intent.NewAction(intent.Calendar, "CREATE_EVENT", "title", "Lunch"),
		intent.NewAction(intent.Mail, "DELETE_EMAIL"),
	}
	before := []intent.ActionRequest{in[0].Clone(), in[1].Clone()}

	out := intent.Enrich(in, "lunch with the team tomorrow and delete spam")

	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
	if out[0].Param("duration") != "1 hour" {
		t.Errorf("lunch duration: got %q", out[0].Param("duration"))
	}
	if out[1].Param("query") != "is:spam" {
		t.Errorf("spam query: got %q", out[1].Param("query"))
	}
}

func TestEnrich_Empty(t *testing.T) {
	if got := intent.Enrich(nil, "anything"); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}
