package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/bdobrica/Hisho/internal/hisho/session"
)

func TestResolveIndex(t *testing.T) {
	tests := []struct {
		text        string
		n           int
		allowAffirm bool
		wantIdx     int
		wantOK      bool
	}{
		{"2", 3, false, 2, true},
		{"number 3 please", 3, false, 3, true},
		{"#1.", 3, false, 1, true},
		{"the second one", 3, false, 2, true},
		{"Third", 3, false, 3, true},
		{"last", 4, false, 4, true},
		{"9", 3, false, 9, true},
		{"99999999999999999999999", 3, false, 4, true},
		{"yes", 1, true, 1, true},
		{"yes", 1, false, 0, false},
		{"yes", 2, true, 0, false},
		{"that one", 1, true, 1, true},
		{"that one", 2, true, 0, false},
		{"this one", 2, false, 0, false},
		{"the one from Bob", 2, true, 0, false},
		{"two", 3, false, 2, true},
		{"number two", 3, false, 2, true},
		{"option three please", 3, false, 3, true},
		{"the first one", 2, false, 1, true},
		{"hmm", 3, true, 0, false},
		{"", 3, true, 0, false},
	}
	for _, tc := range tests {
		idx, ok := resolveIndex(tc.text, tc.n, tc.allowAffirm)
		if idx != tc.wantIdx || ok != tc.wantOK {
			t.Errorf("resolveIndex(%q, %d, %v) = %d, %v; want %d, %v",
				tc.text, tc.n, tc.allowAffirm, idx, ok, tc.wantIdx, tc.wantOK)
		}
	}
}

func TestReadConfirmation(t *testing.T) {
	tests := map[string]confirmation{
		"yes":             confirmYes,
		"Yes!":            confirmYes,
		"ok, go ahead":    confirmYes,
		"sure thing":      confirmYes,
		"no":              confirmNo,
		"No, thanks":      confirmNo,
		"no, don't do it": confirmNo,
		"never mind":      confirmNo,
		"Don’t":           confirmNo,
		"maybe":           confirmUnclear,
		"yesterday":       confirmUnclear,
		"":                confirmUnclear,
	}
	for text, want := range tests {
		if got := readConfirmation(text); got != want {
			t.Errorf("readConfirmation(%q) = %d, want %d", text, got, want)
		}
	}
}

func TestCancelWords(t *testing.T) {
	tests := []struct {
		text     string
		isCancel bool
		mentions bool
	}{
		{"cancel", true, true},
		{"Cancel.", true, true},
		{"never mind", true, true},
		{"/cancel", true, true},
		{"stop by the bakery", false, true},
		{"please cancel that", false, true},
		{"cancellation policy", false, false},
		{"2", false, false},
	}
	for _, tc := range tests {
		if got := isCancel(tc.text); got != tc.isCancel {
			t.Errorf("isCancel(%q) = %v", tc.text, got)
		}
		if got := mentionsCancel(tc.text); got != tc.mentions {
			t.Errorf("mentionsCancel(%q) = %v", tc.text, got)
		}
	}
}

func TestCommandsParse(t *testing.T) {
	c := NewCommands()

	if _, err := c.Parse("hello"); !errors.Is(err, ErrNotACommand) {
		t.Errorf("plain text: got %v", err)
	}
	if _, err := c.Parse("/ "); err == nil {
		t.Error("empty command parsed")
	}

	cmd, err := c.Parse("  /Preferences@hisho set email_count 5 ")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "preferences" || len(cmd.Args) != 3 || cmd.Arg(2) != "5" || cmd.Arg(3) != "" {
		t.Errorf("got %+v", cmd)
	}
}

func TestCommandsRoute(t *testing.T) {
	c := NewCommands()
	c.Register("ping", func(context.Context, *Command, *session.Session) (string, error) {
		return "pong", nil
	})
	c.Register("echo", func(_ context.Context, cmd *Command, _ *session.Session) (string, error) {
		return cmd.Arg(0), nil
	})
	if got := c.Names(); len(got) != 2 || got[0] != "ping" || got[1] != "echo" {
		t.Errorf("Names: %v", got)
	}

	sess := session.New("u1")
	out, err := c.Route(context.Background(), &Command{Name: "ping"}, sess)
	if err != nil || out != "pong" {
		t.Errorf("ping: %q, %v", out, err)
	}
	if _, err := c.Route(context.Background(), &Command{Name: "nope"}, sess); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("unknown: got %v", err)
	}
}
