// Package reply holds the conversation helpers shared by the service
// collaborators: numbered listings, and starting selection, confirmation and
// free-form interactions on the session.
package reply

import (
	"fmt"
	"strings"

	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/session"
)

// ConfirmedParam is set to "true" on the action that resumes a yes/no
// interaction.
const ConfirmedParam = "confirmed"

// Confirmed reports whether params carry a positive confirmation.
func Confirmed(params map[string]string) bool {
	return params[ConfirmedParam] == "true"
}

// Numbered renders "1. a\n2. b".
func Numbered(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, l)
	}
	return b.String()
}

// Bullets renders "• a\n• b".
func Bullets(lines []string) string {
	return "• " + strings.Join(lines, "\n• ")
}

// Select records candidates as the service's latest results and begins a
// selection that resumes a with the chosen "id". noun is plural ("emails")
// and purpose completes "Which one should I ...?".
func Select(sess *session.Session, a intent.ActionRequest, candidates []session.Candidate, noun, purpose string) (dispatch.Outcome, error) {
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.Label
	}
	var prompt string
	if len(candidates) == 1 {
		prompt = fmt.Sprintf("🔍 **Found 1 match:**\n\n%s\n\nShould I %s it? Reply 'yes' or '1', or 'cancel'.",
			Numbered(labels), purpose)
	} else {
		prompt = fmt.Sprintf("🔍 **Found %d %s:**\n\n%s\n\nWhich one should I %s? Reply with a number, or 'cancel'.",
			len(candidates), noun, Numbered(labels), purpose)
	}

	// The resumed action must pick an id, not repeat the search.
	pending := a.Clone()
	delete(pending.Parameters, "id")
	sess.SetResults(a.Service, candidates)
	if _, err := sess.Begin(session.Select(pending, candidates, prompt)); err != nil {
		return dispatch.Outcome{}, err
	}
	return dispatch.Outcome{Success: true}, nil
}

// Confirm begins a yes/no interaction that re-runs a with confirmed=true.
func Confirm(sess *session.Session, a intent.ActionRequest, question string) (dispatch.Outcome, error) {
	pending := a.With(ConfirmedParam, "true")
	prompt := question + "\n\nReply **yes** to proceed or **no** to cancel."
	if _, err := sess.Begin(session.Confirm(pending, prompt)); err != nil {
		return dispatch.Outcome{}, err
	}
	return dispatch.Outcome{Success: true}, nil
}

// Ask begins a free-form interaction whose answer is stored under field.
func Ask(sess *session.Session, a intent.ActionRequest, field, question string) (dispatch.Outcome, error) {
	if _, err := sess.Begin(session.Freeform(a, field, question+"\n\n(Type 'cancel' to stop.)")); err != nil {
		return dispatch.Outcome{}, err
	}
	return dispatch.Outcome{Success: true}, nil
}

// NotFound wraps dispatch.ErrNotFound with what was missing.
func NotFound(what, id string) error {
	return fmt.Errorf("%w: %s %s", dispatch.ErrNotFound, what, id)
}

// Truncate shortens s to n runes, adding "...".
func Truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
