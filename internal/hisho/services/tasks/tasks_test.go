package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/services/tasks"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/workspace"
	"github.com/bdobrica/Hisho/internal/hisho/workspace/workspacetest"
)

func handle(t *testing.T, svc *tasks.Service, sess *session.Session, verb string, kv ...string) dispatch.Outcome {
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

func resume(t *testing.T, svc *tasks.Service, sess *session.Session, extra ...string) dispatch.Outcome {
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

func TestListTasks(t *testing.T) {
	svc := tasks.New(workspacetest.Seeded(t), time.UTC)

	tests := []struct {
		filter string
		want   string
	}{
		{"", "📋 **Pending tasks** (3):\n\n" +
			"1. ⬜ Buy milk · due today\n" +
			"2. ⬜ Renew passport · due Mon Mar 16\n   📝 Photos first\n" +
			"3. ⬜ Call mom"},
		{"today", "📋 **Due today** (1):\n\n1. ⬜ Buy milk · due today"},
		{"done", "📋 **Completed tasks** (1):\n\n1. ✅ File expense report"},
	}
	for _, tc := range tests {
		t.Run(tc.filter, func(t *testing.T) {
			out := handle(t, svc, session.New(workspacetest.Owner), "LIST_TASKS", "filter", tc.filter)
			if out.Message != tc.want {
				t.Errorf("got:\n%s\nwant:\n%s", out.Message, tc.want)
			}
		})
	}
}

func TestListTasks_Empty(t *testing.T) {
	svc := tasks.New(workspacetest.New(t), time.UTC)
	if out := handle(t, svc, session.New(workspacetest.Owner), "LIST_TASKS"); out.Message != "🎉 **No pending tasks**" {
		t.Errorf("got %q", out.Message)
	}
	if out := handle(t, svc, session.New(workspacetest.Owner), "LIST_TASKS", "filter", "all"); out.Message != "📭 **No tasks yet**" {
		t.Errorf("got %q", out.Message)
	}
}

func TestAddTask(t *testing.T) {
	w := workspacetest.New(t)
	svc := tasks.New(w, time.UTC)
	sess := session.New(workspacetest.Owner)

	if out := handle(t, svc, sess, "ADD_TASK", "title", "Pay rent", "due", "friday"); out.Message != "✅ **Task added:** Pay rent (due Friday)" {
		t.Errorf("got %q", out.Message)
	}
	handle(t, svc, sess, "ADD_TASK", "title", "Call the bank", "due", "tomorrow at 9am")
	handle(t, svc, sess, "ADD_TASK", "title", "Read a book")

	all, err := w.ListTasks(context.Background(), workspacetest.Owner, workspace.TasksAll, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListTasks: %v %v", all, err)
	}
	wantDue := []time.Time{
		time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC),
	}
	for i, want := range wantDue {
		if all[i].Due == nil || !all[i].Due.Equal(want) {
			t.Errorf("task %d (%s) due: got %v, want %v", i, all[i].Title, all[i].Due, want)
		}
	}
	if all[2].Due != nil {
		t.Errorf("undated task got a due date: %v", all[2].Due)
	}
}

func TestAddTask_AsksTitle(t *testing.T) {
	svc := tasks.New(workspacetest.New(t), time.UTC)
	sess := session.New(workspacetest.Owner)

	handle(t, svc, sess, "ADD_TASK", "due", "tomorrow")
	if sess.State() != session.StateAwaitingFreeform || sess.Pending.Field != "title" {
		t.Fatalf("state: got %s", sess.State())
	}
	if out := resume(t, svc, sess, "title", "Water plants"); out.Message != "✅ **Task added:** Water plants (due tomorrow)" {
		t.Errorf("got %q", out.Message)
	}
}

func TestAddTask_BadDue(t *testing.T) {
	svc := tasks.New(workspacetest.New(t), time.UTC)
	_, err := svc.HandleAction(context.Background(), "ADD_TASK",
		map[string]string{"title": "x", "due": "someday"}, session.New(workspacetest.Owner))
	if !errors.Is(err, dispatch.ErrInvalidParams) {
		t.Errorf("got %v", err)
	}
}

func TestCompleteTask(t *testing.T) {
	w := workspacetest.Seeded(t)
	svc := tasks.New(w, time.UTC)
	sess := session.New(workspacetest.Owner)

	if out := handle(t, svc, sess, "COMPLETE_TASK", "title", "milk"); out.Message != "✅ **Done:** Buy milk" {
		t.Errorf("got %q", out.Message)
	}
	pending, _ := w.ListTasks(context.Background(), workspacetest.Owner, workspace.TasksPending, 0)
	if len(pending) != 2 {
		t.Errorf("pending: got %d", len(pending))
	}

	// Completed tasks are not offered again.
	out := handle(t, svc, sess, "COMPLETE_TASK", "title", "expense")
	if out.Success {
		t.Errorf("got %+v", out)
	}
}

func TestCompleteTask_SeveralMatchesSelect(t *testing.T) {
	w := workspacetest.Seeded(t)
	if _, err := w.AddTask(context.Background(), workspace.Task{Owner: workspacetest.Owner, Title: "Call dad"}); err != nil {
		t.Fatal(err)
	}
	svc := tasks.New(w, time.UTC)
	sess := session.New(workspacetest.Owner)

	handle(t, svc, sess, "COMPLETE_TASK", "title", "call")
	if sess.State() != session.StateAwaitingSelection || len(sess.Pending.Candidates) != 2 {
		t.Fatalf("state: got %s %+v", sess.State(), sess.Pending)
	}
	c := sess.Pending.Candidates[0]
	if out := resume(t, svc, sess, "id", c.ID); out.Message != "✅ **Done:** "+c.Label {
		t.Errorf("got %q", out.Message)
	}
}

func TestDeleteTask_Confirms(t *testing.T) {
	w := workspacetest.Seeded(t)
	svc := tasks.New(w, time.UTC)
	sess := session.New(workspacetest.Owner)

	handle(t, svc, sess, "DELETE_TASK", "title", "passport")
	if sess.State() != session.StateAwaitingConfirmation {
		t.Fatalf("state: got %s", sess.State())
	}
	if out := resume(t, svc, sess); out.Message != "🗑️ **Deleted task:** Renew passport" {
		t.Errorf("got %q", out.Message)
	}
	all, _ := w.ListTasks(context.Background(), workspacetest.Owner, workspace.TasksAll, 0)
	if len(all) != 3 {
		t.Errorf("tasks left: %d", len(all))
	}
}
