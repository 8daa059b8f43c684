package engine_test

import (
	"os"
	"strings"
	"testing"

	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "hisho-engine-test-*.db")
	if err != nil {
		t.Fatalf("create temp db file: %v", err)
	}
	f.Close()
	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCommands(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"/start", []string{"Hi, I'm Hisho", "calendar, mail, contacts, drive and tasks"}},
		{"/help", []string{"**Calendar**", "Show my unread emails", "/cancel - stop"}},
		{"/HELP@hisho_bot", []string{"What I can do"}},
		{"/services", []string{"✅ Calendar", "✅ Tasks"}},
		{"/status", []string{"🤖 **Hisho", "• Model: scripted", "• State: IDLE"}},
		{"/frobnicate", []string{"❓ Unknown command /frobnicate. Try /help."}},
	}
	h := newHarness(t, options{})
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			r := h.say(t, tc.input)
			for _, want := range tc.want {
				if !strings.Contains(r.Text, want) {
					t.Errorf("reply %q does not contain %q", r.Text, want)
				}
			}
		})
	}
}

func TestCommand_CancelDiscardsPending(t *testing.T) {
	h := newHarness(t, options{})
	h.say(t, "delete my emails from newsletter@example.com")

	r := h.say(t, "/cancel")
	wantState(t, r, session.StateIdle)
	if r.Text != "❌ Cancelled." {
		t.Errorf("got %q", r.Text)
	}
	if n := len(h.newsletters(t)); n != 2 {
		t.Errorf("newsletters: got %d, want 2", n)
	}
}

func TestCommand_AnyCommandDiscardsPending(t *testing.T) {
	h := newHarness(t, options{})
	h.say(t, "delete my emails from newsletter@example.com")

	r := h.say(t, "/help")
	wantState(t, r, session.StateIdle)
}

func TestCommand_ClearForgetsHistory(t *testing.T) {
	h := newHarness(t, options{})
	h.say(t, "what's on my calendar today")

	r := h.say(t, "/clear")
	if !strings.Contains(r.Text, "Conversation cleared") {
		t.Errorf("got %q", r.Text)
	}
	err := h.sessions.With(t.Context(), user, func(s *session.Session) error {
		// Only the assistant's reply to /clear survives.
		if len(s.History) != 1 {
			t.Errorf("history after /clear: %d messages", len(s.History))
		}
		if len(s.LastSearchResults) != 0 {
			t.Errorf("results after /clear: %v", s.LastSearchResults)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCommand_Preferences(t *testing.T) {
	h := newHarness(t, options{prefs: true})

	r := h.say(t, "/preferences set email_count 1")
	if r.Text != "✅ **email_count** set to 1." {
		t.Fatalf("got %q", r.Text)
	}
	r = h.say(t, "/preferences")
	if !strings.Contains(r.Text, "• email_count: 1") {
		t.Errorf("got %q", r.Text)
	}

	r = h.say(t, "show my unread emails")
	if !strings.Contains(r.Text, "📬 **Unread emails** (1):") {
		t.Errorf("preference not applied: %q", r.Text)
	}

	for input, want := range map[string]string{
		"/preferences set colour blue":        "Unknown preference",
		"/preferences set email_count 500":    "is not a valid value",
		"/preferences set timezone Mars/Base": "is not a valid value",
		"/preferences set":                    "Usage:",
	} {
		if r := h.say(t, input); !strings.Contains(r.Text, want) {
			t.Errorf("%s: got %q, want %q", input, r.Text, want)
		}
	}
}

func TestCommand_PreferencesUnavailable(t *testing.T) {
	h := newHarness(t, options{})
	r := h.say(t, "/preferences")
	if r.Text != "⚠️ Preferences are not available." {
		t.Errorf("got %q", r.Text)
	}
}

func TestCommand_TimezonePreferenceShiftsCalendar(t *testing.T) {
	h := newHarness(t, options{prefs: true})
	h.say(t, "/preferences set timezone Asia/Tokyo")

	r := h.say(t, "what's on my calendar today")
	if !strings.Contains(r.Text, "18:00") {
		t.Errorf("standup not shown in Tokyo time: %q", r.Text)
	}
}
