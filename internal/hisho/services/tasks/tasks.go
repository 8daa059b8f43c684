// Package tasks is the to-do list collaborator.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/services/reply"
	"github.com/bdobrica/Hisho/internal/hisho/services/when"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/workspace"
)

// dueHour is the time of day a due date without a clock time resolves to.
const dueHour = 17

var refProps = map[string]string{
	"id": dispatch.NonBlank, "title": dispatch.AnyString, "query": dispatch.AnyString,
	"confirmed": dispatch.YesNo,
}

var schemas = dispatch.MustSchemas(intent.Tasks, map[string]string{
	"ADD_TASK": dispatch.Object(nil, map[string]string{
		"title": dispatch.AnyString, "due": dispatch.AnyString, "notes": dispatch.AnyString,
	}),
	"LIST_TASKS":    dispatch.Object(nil, map[string]string{"filter": dispatch.AnyString}),
	"COMPLETE_TASK": dispatch.Object(nil, refProps),
	"DELETE_TASK":   dispatch.Object(nil, refProps),
})

// Service implements dispatch.Collaborator for tasks.
type Service struct {
	ws  *workspace.Workspace
	loc *time.Location
}

// New returns the tasks collaborator. loc is the default time zone for due
// dates; a "timezone" parameter overrides it.
func New(ws *workspace.Workspace, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{ws: ws, loc: loc}
}

// Service reports intent.Tasks.
func (s *Service) Service() intent.Service { return intent.Tasks }

// HandleAction runs one tasks verb.
func (s *Service) HandleAction(ctx context.Context, verb string, params map[string]string, sess *session.Session) (dispatch.Outcome, error) {
	if err := schemas.Validate(verb, params); err != nil {
		return dispatch.Outcome{}, err
	}
	a := intent.ActionRequest{Service: intent.Tasks, Action: verb, Parameters: params}
	now := s.now(params)

	switch verb {
	case "ADD_TASK":
		return s.add(ctx, sess, a, now)
	case "LIST_TASKS":
		return s.list(ctx, sess, a, now)
	case "COMPLETE_TASK":
		return s.complete(ctx, sess, a, now)
	case "DELETE_TASK":
		return s.delete(ctx, sess, a, now)
	}
	return dispatch.Outcome{}, fmt.Errorf("%w: tasks.%s", dispatch.ErrUnknownAction, verb)
}

func (s *Service) now(params map[string]string) time.Time {
	loc := s.loc
	if tz := params["timezone"]; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	return s.ws.Now().In(loc)
}

func dueLabel(due, now time.Time) string {
	due = due.In(now.Location())
	today := when.Midnight(now)
	switch day := when.Midnight(due); {
	case day.Before(today):
		return "⚠️ overdue (" + due.Format("Jan 2") + ")"
	case day.Equal(today):
		return "due today"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "due tomorrow"
	case day.Before(today.AddDate(0, 0, 7)):
		return "due " + due.Format("Monday")
	}
	return "due " + due.Format("Mon Jan 2")
}

func line(t workspace.Task, now time.Time) string {
	box := "⬜"
	if t.Completed {
		box = "✅"
	}
	out := box + " " + t.Title
	if t.Due != nil && !t.Completed {
		out += " · " + dueLabel(*t.Due, now)
	}
	if t.Notes != "" {
		out += "\n   📝 " + reply.Truncate(t.Notes, 80)
	}
	return out
}

func candidates(tasks []workspace.Task, now time.Time) []session.Candidate {
	out := make([]session.Candidate, len(tasks))
	for i, t := range tasks {
		label := t.Title
		if t.Due != nil && !t.Completed {
			label += " (" + dueLabel(*t.Due, now) + ")"
		}
		if t.Completed {
			label += " (done)"
		}
		out[i] = session.Candidate{ID: t.ID, Label: label}
	}
	return out
}

func (s *Service) add(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	title := strings.TrimSpace(a.Param("title"))
	if title == "" {
		return reply.Ask(sess, a, "title", "📝 What's the task?")
	}
	t := workspace.Task{Owner: sess.UserID, Title: title, Notes: strings.TrimSpace(a.Param("notes"))}
	if d := strings.TrimSpace(a.Param("due")); d != "" {
		day, ok := when.ParseDate(d, now)
		if !ok {
			return dispatch.Outcome{}, fmt.Errorf("%w: cannot read due date %q", dispatch.ErrInvalidParams, d)
		}
		h, m := dueHour, 0
		if when.HasClock(d) {
			if ch, cm, ok := when.ParseClock(d); ok {
				h, m = ch, cm
			}
		}
		due := day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
		t.Due = &due
	}

	added, err := s.ws.AddTask(ctx, t)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if added.Due != nil {
		return dispatch.Done("✅ **Task added:** %s (%s)", added.Title, dueLabel(*added.Due, now)), nil
	}
	return dispatch.Done("✅ **Task added:** %s", added.Title), nil
}

func (s *Service) list(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	raw := strings.ToLower(strings.TrimSpace(a.Param("filter")))
	dueToday := raw == "today"
	filter := workspace.ParseTaskFilter(raw)

	all, err := s.ws.ListTasks(ctx, sess.UserID, filter, 0)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	tasks := all
	if dueToday {
		end := when.Midnight(now).AddDate(0, 0, 1)
		tasks = tasks[:0:0]
		for _, t := range all {
			if t.Due != nil && t.Due.Before(end) {
				tasks = append(tasks, t)
			}
		}
	}

	var title, empty string
	switch {
	case dueToday:
		title, empty = "Due today", "🎉 **Nothing due today**"
	case filter == workspace.TasksCompleted:
		title, empty = "Completed tasks", "📭 **No completed tasks**"
	case filter == workspace.TasksAll:
		title, empty = "All tasks", "📭 **No tasks yet**"
	default:
		title, empty = "Pending tasks", "🎉 **No pending tasks**"
	}
	if len(tasks) == 0 {
		return dispatch.Done("%s", empty), nil
	}

	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = line(t, now)
	}
	sess.SetResults(intent.Tasks, candidates(tasks, now))
	return dispatch.Done("📋 **%s** (%d):\n\n%s", title, len(tasks), reply.Numbered(lines)), nil
}

// find resolves the task an action targets by "id" or by searching the
// title, selecting when several match.
func (s *Service) find(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time, f workspace.TaskFilter, purpose string) (t workspace.Task, out *dispatch.Outcome, err error) {
	if id := a.Param("id"); id != "" {
		t, err = s.ws.GetTask(ctx, sess.UserID, id)
		if errors.Is(err, workspace.ErrNotFound) {
			return t, nil, reply.NotFound("task", id)
		}
		return t, nil, err
	}
	q := strings.TrimSpace(a.Param("title"))
	if q == "" {
		q = strings.TrimSpace(a.Param("query"))
	}
	if q == "" {
		o, err := reply.Ask(sess, a, "title", fmt.Sprintf("📝 Which task should I %s?", purpose))
		return t, &o, err
	}
	found, err := s.ws.FindTasks(ctx, sess.UserID, q, f, 10)
	if err != nil {
		return t, nil, err
	}
	switch len(found) {
	case 0:
		o := dispatch.Failed("📭 No task matches %q.", q)
		return t, &o, nil
	case 1:
		return found[0], nil, nil
	}
	o, err := reply.Select(sess, a, candidates(found, now), "tasks", purpose)
	return t, &o, err
}

func (s *Service) complete(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	t, out, err := s.find(ctx, sess, a, now, workspace.TasksPending, "mark as done")
	if out != nil || err != nil {
		return deref(out), err
	}
	if t.Completed {
		return dispatch.Done("ℹ️ **%s** is already done.", t.Title), nil
	}
	if _, err := s.ws.CompleteTask(ctx, sess.UserID, t.ID); err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("task", t.ID)
		}
		return dispatch.Outcome{}, err
	}
	sess.ClearResults(intent.Tasks)
	return dispatch.Done("✅ **Done:** %s", t.Title), nil
}

func (s *Service) delete(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	t, out, err := s.find(ctx, sess, a, now, workspace.TasksAll, "delete")
	if out != nil || err != nil {
		return deref(out), err
	}
	if !reply.Confirmed(a.Parameters) {
		return reply.Confirm(sess, a.With("id", t.ID), fmt.Sprintf("🗑️ Delete the task **%s**?", t.Title))
	}
	if err := s.ws.DeleteTask(ctx, sess.UserID, t.ID); err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("task", t.ID)
		}
		return dispatch.Outcome{}, err
	}
	sess.ClearResults(intent.Tasks)
	return dispatch.Done("🗑️ **Deleted task:** %s", t.Title), nil
}

func deref(o *dispatch.Outcome) dispatch.Outcome {
	if o == nil {
		return dispatch.Outcome{}
	}
	return *o
}
