package dispatch_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bdobrica/Hisho/common/trace"
	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/session"
)

// fakeCollaborator runs the handler it is given.
type fakeCollaborator struct {
	service intent.Service
	handle  func(verb string, params map[string]string, sess *session.Session) (dispatch.Outcome, error)
}

func (f *fakeCollaborator) Service() intent.Service { return f.service }

func (f *fakeCollaborator) HandleAction(_ context.Context, verb string, params map[string]string, sess *session.Session) (dispatch.Outcome, error) {
	return f.handle(verb, params, sess)
}

type auditRow struct {
	traceID, actor, action, target, result string
	payload                                map[string]any
	errMsg                                 string
}

type fakeAuditor struct{ rows []auditRow }

func (f *fakeAuditor) WriteAudit(_ context.Context, traceID, actor, action, target, result string, payload map[string]any, errorMsg string) error {
	f.rows = append(f.rows, auditRow{traceID, actor, action, target, result, payload, errorMsg})
	return nil
}

func TestDispatch_MissingCollaborator(t *testing.T) {
	d := dispatch.New(nil)
	out, err := d.Dispatch(context.Background(), intent.NewAction(intent.Drive, "LIST_RECENT"), session.New("@u:x"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Success || out.Message != "⚠️ Drive service is not available." {
		t.Errorf("got %+v", out)
	}
}

func TestDispatch_RelaysOutcome(t *testing.T) {
	aud := &fakeAuditor{}
	d := dispatch.New(aud)
	d.Register(&fakeCollaborator{service: intent.Calendar, handle: func(verb string, params map[string]string, _ *session.Session) (dispatch.Outcome, error) {
		params["range"] = "mutated"
		return dispatch.Done("📭 **No events %s**", "today"), nil
	}})

	a := intent.NewAction(intent.Calendar, "VIEW_EVENTS", "range", "today")
	ctx := trace.WithTraceID(context.Background(), "t_abc")
	out, err := d.Dispatch(ctx, a, session.New("@u:x"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !out.Success || out.Awaiting || out.Message != "📭 **No events today**" {
		t.Errorf("got %+v", out)
	}
	if a.Param("range") != "today" {
		t.Error("collaborator mutated the caller's action")
	}
	if len(aud.rows) != 1 || aud.rows[0].result != "success" || aud.rows[0].traceID != "t_abc" || aud.rows[0].action != "calendar.VIEW_EVENTS" {
		t.Errorf("audit: %+v", aud.rows)
	}
}

func TestDispatch_DetectsAwaiting(t *testing.T) {
	d := dispatch.New(nil)
	d.Register(&fakeCollaborator{service: intent.Mail, handle: func(verb string, params map[string]string, sess *session.Session) (dispatch.Outcome, error) {
		req := intent.ActionRequest{Service: intent.Mail, Action: verb, Parameters: params}
		_, err := sess.Begin(session.Select(req, []session.Candidate{{ID: "m1", Label: "a"}, {ID: "m2", Label: "b"}}, "Which one?"))
		return dispatch.Outcome{Success: true}, err
	}})

	sess := session.New("@u:x")
	out, err := d.Dispatch(context.Background(), intent.NewAction(intent.Mail, "DELETE_EMAIL"), sess)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !out.Awaiting || out.Message != "Which one?" {
		t.Errorf("got %+v", out)
	}
	if sess.State() != session.StateAwaitingSelection {
		t.Errorf("state: %s", sess.State())
	}
}

func TestDispatch_ExistingPendingIsNotAwaiting(t *testing.T) {
	d := dispatch.New(nil)
	d.Register(&fakeCollaborator{service: intent.Tasks, handle: func(string, map[string]string, *session.Session) (dispatch.Outcome, error) {
		return dispatch.Done("ok"), nil
	}})
	sess := session.New("@u:x")
	sess.Begin(session.Freeform(intent.NewAction(intent.Mail, "SEND_EMAIL"), "body", "?"))

	out, _ := d.Dispatch(context.Background(), intent.NewAction(intent.Tasks, "LIST_TASKS"), sess)
	if out.Awaiting {
		t.Error("untouched pending interaction reported as awaiting")
	}
}

func TestDispatch_WrapsErrors(t *testing.T) {
	aud := &fakeAuditor{}
	d := dispatch.New(aud)
	d.Register(&fakeCollaborator{service: intent.Contacts, handle: func(string, map[string]string, *session.Session) (dispatch.Outcome, error) {
		return dispatch.Outcome{}, dispatch.ErrNotFound
	}})

	_, err := d.Dispatch(context.Background(), intent.NewAction(intent.Contacts, "DELETE_CONTACT", "id", "c9", "email", "jane@example.com"), session.New("@u:x"))
	if !errors.Is(err, dispatch.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "contacts.DELETE_CONTACT") {
		t.Errorf("error lacks the action key: %v", err)
	}
	row := aud.rows[0]
	if row.result != "error" || row.target != "c9" {
		t.Errorf("audit: %+v", row)
	}
	if row.payload["email"] == "jane@example.com" {
		t.Error("audit payload not redacted")
	}
}

func TestServices(t *testing.T) {
	d := dispatch.New(nil)
	d.Register(&fakeCollaborator{service: intent.Tasks})
	got := d.Services()
	if !got.Has(intent.Tasks) || got.Has(intent.Mail) {
		t.Errorf("Services: %v", got)
	}
}
