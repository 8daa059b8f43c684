package mail_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/services/mail"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/workspace"
	"github.com/bdobrica/Hisho/internal/hisho/workspace/workspacetest"
)

func handle(t *testing.T, svc *mail.Service, sess *session.Session, verb string, kv ...string) dispatch.Outcome {
	t.Helper()
	params := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		params[kv[i]] = kv[i+1]
	}
	out, err := svc.HandleAction(context.Background(), verb, params, sess)
	if err != nil {
		t.Fatalf("%s: %v", verb, err)
	}
	return out
}

func resume(t *testing.T, svc *mail.Service, sess *session.Session, extra ...string) dispatch.Outcome {
	t.Helper()
	p := sess.Clear()
	if p == nil {
		t.Fatal("no pending interaction to resume")
	}
	a := p.Request(extra...)
	out, err := svc.HandleAction(context.Background(), a.Action, a.Parameters, sess)
	if err != nil {
		t.Fatalf("resume %s: %v", a.Action, err)
	}
	return out
}

func mustContain(t *testing.T, got string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(got, p) {
			t.Errorf("message %q does not contain %q", got, p)
		}
	}
}

func unreadCount(t *testing.T, w *workspace.Workspace) int {
	t.Helper()
	got, err := w.SearchMail(context.Background(), workspacetest.Owner, workspace.MailQuery{Unread: true})
	if err != nil {
		t.Fatal(err)
	}
	return len(got)
}

func TestListUnread(t *testing.T) {
	svc := mail.New(workspacetest.Seeded(t))
	sess := session.New(workspacetest.Owner)

	out := handle(t, svc, sess, "LIST_UNREAD")
	mustContain(t, out.Message,
		"📬 **Unread emails** (2):",
		"1. 🔵 **Budget review**\n   From: bob@example.com · 3h ago",
		"2. 🔵 **This week in productivity**",
	)
	if got, _ := sess.Results("mail"); len(got) != 2 {
		t.Errorf("results: got %v", got)
	}

	out = handle(t, svc, sess, "LIST_UNREAD", "max_results", "1")
	if strings.Contains(out.Message, "productivity") {
		t.Errorf("limit ignored: %q", out.Message)
	}
}

func TestListUnread_Empty(t *testing.T) {
	svc := mail.New(workspacetest.New(t))
	out := handle(t, svc, session.New(workspacetest.Owner), "LIST_UNREAD")
	if !out.Success || out.Message != "📭 **No unread emails**" {
		t.Errorf("got %+v", out)
	}
}

func TestSearchEmails(t *testing.T) {
	svc := mail.New(workspacetest.Seeded(t))
	sess := session.New(workspacetest.Owner)

	out := handle(t, svc, sess, "SEARCH_EMAILS", "query", "is:spam")
	mustContain(t, out.Message, "You have won")

	out = handle(t, svc, sess, "SEARCH_EMAILS", "query", "category:promotions older_than:7d")
	mustContain(t, out.Message, "(1):", "Last week in productivity")

	out = handle(t, svc, sess, "SEARCH_EMAILS", "query", "zebra")
	if out.Message != `📭 **No emails found for:** "zebra"` {
		t.Errorf("got %q", out.Message)
	}
}

func TestGetLastEmail_MarksRead(t *testing.T) {
	w := workspacetest.Seeded(t)
	svc := mail.New(w)

	out := handle(t, svc, session.New(workspacetest.Owner), "GET_LAST_EMAIL")
	mustContain(t, out.Message, "📧 **Budget review**", "From: bob@example.com", "Q3 numbers")
	if n := unreadCount(t, w); n != 1 {
		t.Errorf("unread after opening: got %d, want 1", n)
	}
}

func TestGetLastEmail_PercentSignsVerbatim(t *testing.T) {
	w := workspacetest.Seeded(t)
	svc := mail.New(w)
	_, err := w.AddMail(context.Background(), workspace.Email{
		Owner: workspacetest.Owner, From: "shop@example.com", Subject: "50% off %s today",
		Body: "Save 100%d on everything", Unread: true, ReceivedAt: w.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}

	out := handle(t, svc, session.New(workspacetest.Owner), "GET_LAST_EMAIL")
	mustContain(t, out.Message, "50% off %s today", "Save 100%d on everything")
	if strings.Contains(out.Message, "%!") {
		t.Errorf("message was used as a format string: %q", out.Message)
	}
}

// Two newsletters match: the user picks the second one.
func TestDeleteEmail_SelectSecond(t *testing.T) {
	w := workspacetest.Seeded(t)
	svc := mail.New(w)
	sess := session.New(workspacetest.Owner)

	handle(t, svc, sess, "DELETE_EMAIL", "query", "from:newsletter@example.com")
	if sess.State() != session.StateAwaitingSelection {
		t.Fatalf("state: got %s", sess.State())
	}
	p := sess.Pending
	if len(p.Candidates) != 2 {
		t.Fatalf("candidates: got %d", len(p.Candidates))
	}
	mustContain(t, p.Prompt, "Found 2 emails", "Which one should I delete?")

	out := resume(t, svc, sess, "id", p.Candidates[1].ID)
	if out.Message != "🗑️ **Deleted:** Last week in productivity, from newsletter@example.com (Feb 21)" {
		t.Errorf("got %q", out.Message)
	}
	left, _ := w.SearchMail(context.Background(), workspacetest.Owner, workspace.ParseMailQuery("from:newsletter"))
	if len(left) != 1 || left[0].Subject != "This week in productivity" {
		t.Errorf("left: %v", left)
	}
	if _, ok := sess.Results("mail"); ok {
		t.Error("stale results kept after delete")
	}
}

func TestDeleteEmail_SingleMatchStillSelects(t *testing.T) {
	svc := mail.New(workspacetest.Seeded(t))
	sess := session.New(workspacetest.Owner)

	handle(t, svc, sess, "DELETE_EMAIL", "query", "from:carol")
	if sess.State() != session.StateAwaitingSelection {
		t.Fatalf("state: got %s", sess.State())
	}
	mustContain(t, sess.Pending.Prompt, "Found 1 match", "Should I delete it?")
}

func TestDeleteEmail_AlreadyDeleted(t *testing.T) {
	w := workspacetest.Seeded(t)
	svc := mail.New(w)
	ctx := context.Background()

	found, _ := w.SearchMail(ctx, workspacetest.Owner, workspace.ParseMailQuery("from:carol"))
	if len(found) != 1 {
		t.Fatalf("fixture: %v", found)
	}
	if _, err := w.DeleteMail(ctx, workspacetest.Owner, found[0].ID); err != nil {
		t.Fatal(err)
	}

	out := handle(t, svc, session.New(workspacetest.Owner), "DELETE_EMAIL", "id", found[0].ID)
	if !out.Success || out.Message != "ℹ️ **Lunch?** was already deleted." {
		t.Errorf("got %+v", out)
	}
}

func TestDeleteEmail_AsksForQuery(t *testing.T) {
	svc := mail.New(workspacetest.Seeded(t))
	sess := session.New(workspacetest.Owner)

	handle(t, svc, sess, "DELETE_EMAIL")
	if sess.State() != session.StateAwaitingFreeform || sess.Pending.Field != "query" {
		t.Fatalf("state: got %s", sess.State())
	}
	resume(t, svc, sess, "query", "lottery")
	if sess.State() != session.StateAwaitingSelection {
		t.Errorf("state after query: got %s", sess.State())
	}
}

func TestDeleteEmail_NoMatch(t *testing.T) {
	svc := mail.New(workspacetest.Seeded(t))
	sess := session.New(workspacetest.Owner)
	out := handle(t, svc, sess, "DELETE_EMAIL", "query", "from:nobody@example.com")
	if out.Success || sess.Pending != nil {
		t.Errorf("got %+v, pending %v", out, sess.Pending)
	}
}

func TestMarkUnread(t *testing.T) {
	w := workspacetest.Seeded(t)
	svc := mail.New(w)

	out := handle(t, svc, session.New(workspacetest.Owner), "MARK_UNREAD", "query", "from:carol")
	if out.Message != "✅ Marked as unread: **Lunch?**" {
		t.Errorf("got %q", out.Message)
	}
	if n := unreadCount(t, w); n != 3 {
		t.Errorf("unread: got %d, want 3", n)
	}
}

func TestSendEmail_AsksBodyThenConfirms(t *testing.T) {
	w := workspacetest.Seeded(t)
	svc := mail.New(w)
	sess := session.New(workspacetest.Owner)

	handle(t, svc, sess, "SEND_EMAIL", "to", "Bob Stone", "subject", "Lunch")
	if sess.State() != session.StateAwaitingFreeform || sess.Pending.Field != "body" {
		t.Fatalf("state: got %s", sess.State())
	}
	if got := sess.Pending.Params["to"]; got != "bob@example.com" {
		t.Errorf("resolved recipient: got %q", got)
	}

	resume(t, svc, sess, "body", "Friday at noon?")
	if sess.State() != session.StateAwaitingConfirmation {
		t.Fatalf("state: got %s", sess.State())
	}
	mustContain(t, sess.Pending.Prompt, "To: bob@example.com", "Subject: Lunch", "Friday at noon?")

	out := resume(t, svc, sess)
	if out.Message != "✅ **Email sent** to bob@example.com" {
		t.Errorf("got %q", out.Message)
	}
	if n := unreadCount(t, w); n != 2 {
		t.Errorf("sent mail leaked into the inbox: %d unread", n)
	}
}

func TestSendEmail_AsksRecipient(t *testing.T) {
	svc := mail.New(workspacetest.Seeded(t))
	sess := session.New(workspacetest.Owner)
	handle(t, svc, sess, "SEND_EMAIL", "body", "hi")
	if sess.Pending == nil || sess.Pending.Field != "to" {
		t.Fatalf("pending: %+v", sess.Pending)
	}
}

func TestSendEmail_UnknownRecipient(t *testing.T) {
	svc := mail.New(workspacetest.Seeded(t))
	_, err := svc.HandleAction(context.Background(), "SEND_EMAIL",
		map[string]string{"to": "Zed", "body": "hi"}, session.New(workspacetest.Owner))
	if !errors.Is(err, dispatch.ErrInvalidParams) {
		t.Errorf("got %v, want ErrInvalidParams", err)
	}
}

func TestReplyEmail(t *testing.T) {
	svc := mail.New(workspacetest.Seeded(t))
	sess := session.New(workspacetest.Owner)

	handle(t, svc, sess, "REPLY_EMAIL", "query", "from:carol")
	if sess.State() != session.StateAwaitingFreeform || sess.Pending.Params["id"] == "" {
		t.Fatalf("expected a body prompt pinned to the message, got %s %+v", sess.State(), sess.Pending)
	}

	out := resume(t, svc, sess, "body", "Friday works.")
	if out.Message != "✅ **Reply sent** to carol@example.com: Re: Lunch?" {
		t.Errorf("got %q", out.Message)
	}
}

func TestHandleAction_Validation(t *testing.T) {
	svc := mail.New(workspacetest.New(t))
	sess := session.New(workspacetest.Owner)
	ctx := context.Background()

	if _, err := svc.HandleAction(ctx, "LIST_UNREAD", map[string]string{"max_results": "ten"}, sess); !errors.Is(err, dispatch.ErrInvalidParams) {
		t.Errorf("bad max_results: got %v", err)
	}
	if _, err := svc.HandleAction(ctx, "FORWARD_EMAIL", nil, sess); !errors.Is(err, dispatch.ErrUnknownAction) {
		t.Errorf("unknown verb: got %v", err)
	}
}
