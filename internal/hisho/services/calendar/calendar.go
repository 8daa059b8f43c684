// Package calendar is the calendar collaborator: viewing, creating, finding,
// moving and deleting events, and finding free time, over the workspace.
package calendar

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

// Working hours searched by FIND_FREE_TIME, and how far ahead.
const (
	dayStartHour  = 9
	dayEndHour    = 17
	freeDaysAhead = 7
	maxFreeSlots  = 10
)

var schemas = dispatch.MustSchemas(intent.Calendar, map[string]string{
	"VIEW_EVENTS": dispatch.Object(nil, map[string]string{
		"range": dispatch.Enum(intent.Ranges...),
	}),
	"CREATE_EVENT": dispatch.Object(nil, eventProps),
	"BLOCK_TIME":   dispatch.Object(nil, eventProps),
	"SEARCH_EVENTS": dispatch.Object([]string{"query"}, map[string]string{
		"query": dispatch.NonBlank,
	}),
	"DELETE_EVENT": dispatch.Object(nil, map[string]string{
		"id": dispatch.NonBlank, "title": dispatch.AnyString, "query": dispatch.AnyString,
		"confirmed": dispatch.YesNo,
	}),
	"MOVE_EVENT": dispatch.Object(nil, map[string]string{
		"id": dispatch.NonBlank, "title": dispatch.AnyString, "query": dispatch.AnyString,
		"date": dispatch.AnyString, "time": dispatch.AnyString, "when": dispatch.AnyString,
	}),
	"FIND_FREE_TIME": dispatch.Object(nil, map[string]string{
		"duration": dispatch.AnyString, "date": dispatch.AnyString,
	}),
})

var eventProps = map[string]string{
	"title": dispatch.AnyString, "date": dispatch.AnyString, "time": dispatch.AnyString,
	"duration": dispatch.AnyString, "location": dispatch.AnyString, "attendees": dispatch.AnyString,
	"description": dispatch.AnyString, "confirmed": dispatch.YesNo,
}

// Service implements dispatch.Collaborator for the calendar.
type Service struct {
	ws  *workspace.Workspace
	loc *time.Location
}

// New returns the calendar collaborator. loc is the default time zone; a
// "timezone" parameter overrides it per request.
func New(ws *workspace.Workspace, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{ws: ws, loc: loc}
}

// Service reports intent.Calendar.
func (s *Service) Service() intent.Service { return intent.Calendar }

// HandleAction runs one calendar verb.
func (s *Service) HandleAction(ctx context.Context, verb string, params map[string]string, sess *session.Session) (dispatch.Outcome, error) {
	if err := schemas.Validate(verb, params); err != nil {
		return dispatch.Outcome{}, err
	}
	a := intent.ActionRequest{Service: intent.Calendar, Action: verb, Parameters: params}
	now := s.now(params)

	switch verb {
	case "VIEW_EVENTS":
		return s.view(ctx, sess, a, now)
	case "CREATE_EVENT", "BLOCK_TIME":
		return s.create(ctx, sess, a, now)
	case "SEARCH_EVENTS":
		return s.search(ctx, sess, a, now)
	case "DELETE_EVENT":
		return s.delete(ctx, sess, a, now)
	case "MOVE_EVENT":
		return s.move(ctx, sess, a, now)
	case "FIND_FREE_TIME":
		return s.freeTime(ctx, sess, a, now)
	}
	return dispatch.Outcome{}, fmt.Errorf("%w: calendar.%s", dispatch.ErrUnknownAction, verb)
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

// ---------------------------------------------------------------------------
// Formatting
// ---------------------------------------------------------------------------

func formatSpan(e workspace.Event, loc *time.Location) string {
	start, end := e.Start.In(loc), e.End.In(loc)
	if e.AllDay {
		days := int(end.Sub(start).Hours()/24 + 0.5)
		if days <= 1 {
			return start.Format("Mon Jan 2") + ", all day"
		}
		return fmt.Sprintf("%s, all day (%d days)", start.Format("Mon Jan 2"), days)
	}
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return start.Format("Mon Jan 2, 15:04") + " - " + end.Format("15:04")
	}
	return start.Format("Mon Jan 2 15:04") + " - " + end.Format("Mon Jan 2 15:04")
}

func summary(e workspace.Event, loc *time.Location) string {
	line := fmt.Sprintf("**%s** (%s)", e.Title, formatSpan(e, loc))
	var icons []string
	if n := len(e.Attendees); n > 0 {
		icons = append(icons, fmt.Sprintf("👥%d", n))
	}
	if e.Location != "" {
		icons = append(icons, "📍 "+e.Location)
	}
	if len(icons) > 0 {
		line += " " + strings.Join(icons, " ")
	}
	return line
}

func candidates(events []workspace.Event, loc *time.Location) []session.Candidate {
	out := make([]session.Candidate, len(events))
	for i, e := range events {
		out[i] = session.Candidate{ID: e.ID, Label: fmt.Sprintf("%s (%s)", e.Title, formatSpan(e, loc))}
	}
	return out
}

// ---------------------------------------------------------------------------
// Verbs
// ---------------------------------------------------------------------------

func (s *Service) view(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	token := a.Param("range")
	if token == "" {
		token = intent.RangeToday
	}
	start, end, phrase, _ := when.Range(token, now)

	events, err := s.ws.ListEvents(ctx, sess.UserID, a.Param("calendar"), start, end)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if len(events) == 0 {
		return dispatch.Done("📭 **No events %s**", phrase), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 **Your events %s** (%d):\n", phrase, len(events))
	var lastDay string
	for _, e := range events {
		day := e.Start.In(now.Location()).Format("Monday, January 2")
		if token != intent.RangeToday && token != intent.RangeTomorrow && token != intent.RangeYesterday && day != lastDay {
			fmt.Fprintf(&b, "\n__%s__\n", day)
			lastDay = day
		}
		b.WriteString("• " + summary(e, now.Location()) + "\n")
	}
	return dispatch.Done("%s", strings.TrimRight(b.String(), "\n")), nil
}

// eventTimes resolves date, time and duration parameters into a start and
// end. The defaults are today, noon and one hour.
func eventTimes(a intent.ActionRequest, now time.Time) (start, end time.Time, allDay bool, err error) {
	day := when.Midnight(now)
	if d := a.Param("date"); d != "" {
		var ok bool
		if day, ok = when.ParseDate(d, now); !ok {
			return start, end, false, fmt.Errorf("%w: cannot read date %q", dispatch.ErrInvalidParams, d)
		}
	}

	dur := time.Hour
	if d := a.Param("duration"); d != "" {
		var ok bool
		if dur, ok = when.ParseDuration(d); !ok {
			return start, end, false, fmt.Errorf("%w: cannot read duration %q", dispatch.ErrInvalidParams, d)
		}
	}
	if dur == when.AllDay && a.Param("time") == "" {
		return day, day.AddDate(0, 0, 1), true, nil
	}

	h, m := 12, 0
	if t := a.Param("time"); t != "" {
		var ok bool
		if h, m, ok = when.ParseClock(t); !ok {
			return start, end, false, fmt.Errorf("%w: cannot read time %q", dispatch.ErrInvalidParams, t)
		}
	}
	start = day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
	return start, start.Add(dur), false, nil
}

func splitAttendees(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
		if strings.Contains(f, "@") {
			out = append(out, f)
		}
	}
	return out
}

func (s *Service) create(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	start, end, allDay, err := eventTimes(a, now)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	title := strings.TrimSpace(a.Param("title"))
	if title == "" {
		title = "New Event"
		if a.Action == "BLOCK_TIME" {
			title = "Focus time"
		}
	}
	e := workspace.Event{
		Owner:       sess.UserID,
		Calendar:    a.Param("calendar"),
		Title:       title,
		Description: a.Param("description"),
		Location:    a.Param("location"),
		Attendees:   splitAttendees(a.Param("attendees")),
		Start:       start,
		End:         end,
		AllDay:      allDay,
	}

	if !allDay && !reply.Confirmed(a.Parameters) {
		conflicts, err := s.ws.Conflicts(ctx, sess.UserID, start, end, "")
		if err != nil {
			return dispatch.Outcome{}, err
		}
		if len(conflicts) > 0 {
			lines := make([]string, len(conflicts))
			for i, c := range conflicts {
				lines[i] = summary(c, now.Location())
			}
			return reply.Confirm(sess, a, fmt.Sprintf(
				"⚠️ **Conflict detected**\n\n**%s** (%s) overlaps with:\n%s\n\nCreate it anyway?",
				title, formatSpan(e, now.Location()), reply.Bullets(lines)))
		}
	}

	created, err := s.ws.CreateEvent(ctx, e)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	msg := fmt.Sprintf("✅ **Event created:** %s\n📅 %s", created.Title, formatSpan(created, now.Location()))
	if created.Location != "" {
		msg += "\n📍 " + created.Location
	}
	if n := len(created.Attendees); n > 0 {
		msg += fmt.Sprintf("\n👥 %s", strings.Join(created.Attendees, ", "))
	}
	return dispatch.Done("%s", msg), nil
}

func (s *Service) search(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	q := a.Param("query")
	events, err := s.ws.SearchEvents(ctx, sess.UserID, q, when.Midnight(now), 10)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if len(events) == 0 {
		return dispatch.Done("📭 **No events found for:** %q", q), nil
	}
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = summary(e, now.Location())
	}
	return dispatch.Done("🔍 **Events matching %q:**\n\n%s", q, reply.Numbered(lines)), nil
}

// find resolves the event an action refers to. With an "id" it loads that
// event. Otherwise it searches upcoming events by title or query; a single
// match resolves directly, several start a selection.
func (s *Service) find(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time, purpose string) (ev workspace.Event, out *dispatch.Outcome, err error) {
	if id := a.Param("id"); id != "" {
		ev, err = s.ws.GetEvent(ctx, sess.UserID, id)
		if errors.Is(err, workspace.ErrNotFound) {
			return ev, nil, reply.NotFound("event", id)
		}
		return ev, nil, err
	}

	q := strings.TrimSpace(a.Param("title"))
	if q == "" {
		q = strings.TrimSpace(a.Param("query"))
	}
	if q == "" {
		o, err := reply.Ask(sess, a, "title", "Which event? Tell me its title.")
		return ev, &o, err
	}

	events, err := s.ws.SearchEvents(ctx, sess.UserID, q, when.Midnight(now), 10)
	if err != nil {
		return ev, nil, err
	}
	switch len(events) {
	case 0:
		o := dispatch.Failed("📭 No upcoming event matches %q.", q)
		return ev, &o, nil
	case 1:
		return events[0], nil, nil
	}
	o, err := reply.Select(sess, a, candidates(events, now.Location()), "events", purpose)
	return ev, &o, err
}

func (s *Service) delete(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	ev, out, err := s.find(ctx, sess, a, now, "delete")
	if out != nil || err != nil {
		return deref(out), err
	}

	if len(ev.Attendees) > 0 && !reply.Confirmed(a.Parameters) {
		return reply.Confirm(sess, a.With("id", ev.ID), fmt.Sprintf(
			"⚠️ **%s** (%s) has %d attendee(s): %s\n\nDelete it anyway?",
			ev.Title, formatSpan(ev, now.Location()), len(ev.Attendees), strings.Join(ev.Attendees, ", ")))
	}

	if err := s.ws.DeleteEvent(ctx, sess.UserID, ev.ID); err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("event", ev.ID)
		}
		return dispatch.Outcome{}, err
	}
	sess.ClearResults(intent.Calendar)
	return dispatch.Done("✅ **Deleted:** %s (%s)", ev.Title, formatSpan(ev, now.Location())), nil
}

func (s *Service) move(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	ev, out, err := s.find(ctx, sess, a, now, "move")
	if out != nil || err != nil {
		return deref(out), err
	}

	target := a.Param("when")
	date, clock := a.Param("date"), a.Param("time")
	if target != "" {
		date = target
		if when.HasClock(target) {
			clock = target
		}
	}
	if date == "" && clock == "" {
		return reply.Ask(sess, a.With("id", ev.ID), "when",
			fmt.Sprintf("🕐 When should I move **%s** to?", ev.Title))
	}

	start := ev.Start.In(now.Location())
	day := when.Midnight(start)
	h, m := start.Hour(), start.Minute()
	d, dateOK := when.ParseDate(date, now)
	ch, cm, clockOK := when.ParseClock(clock)
	switch {
	case target != "" && !dateOK && !clockOK:
		return dispatch.Outcome{}, fmt.Errorf("%w: cannot read %q", dispatch.ErrInvalidParams, target)
	case target == "" && date != "" && !dateOK:
		return dispatch.Outcome{}, fmt.Errorf("%w: cannot read date %q", dispatch.ErrInvalidParams, date)
	case target == "" && clock != "" && !clockOK:
		return dispatch.Outcome{}, fmt.Errorf("%w: cannot read time %q", dispatch.ErrInvalidParams, clock)
	}
	if dateOK {
		day = d
	}
	if clockOK {
		h, m = ch, cm
	}
	newStart := day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
	if newStart.Equal(ev.Start) {
		return dispatch.Failed("❓ **%s** is already at %s.", ev.Title, formatSpan(ev, now.Location())), nil
	}

	moved, err := s.ws.MoveEvent(ctx, sess.UserID, ev.ID, newStart)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("event", ev.ID)
		}
		return dispatch.Outcome{}, err
	}
	msg := fmt.Sprintf("✅ **Moved:** %s\n📅 %s", moved.Title, formatSpan(moved, now.Location()))
	if conflicts, err := s.ws.Conflicts(ctx, sess.UserID, moved.Start, moved.End, moved.ID); err == nil && len(conflicts) > 0 {
		msg += fmt.Sprintf("\n⚠️ It now overlaps %d other event(s).", len(conflicts))
	}
	return dispatch.Done("%s", msg), nil
}

func (s *Service) freeTime(ctx context.Context, sess *session.Session, a intent.ActionRequest, now time.Time) (dispatch.Outcome, error) {
	dur := time.Hour
	if d := a.Param("duration"); d != "" {
		var ok bool
		if dur, ok = when.ParseDuration(d); !ok || dur >= when.AllDay {
			return dispatch.Outcome{}, fmt.Errorf("%w: cannot search for %q slots", dispatch.ErrInvalidParams, d)
		}
	}

	first, days := when.Midnight(now), freeDaysAhead
	if d := a.Param("date"); d != "" {
		day, ok := when.ParseDate(d, now)
		if !ok {
			return dispatch.Outcome{}, fmt.Errorf("%w: cannot read date %q", dispatch.ErrInvalidParams, d)
		}
		first, days = day, 1
	}

	var lines []string
	for i := 0; i < days && len(lines) < maxFreeSlots; i++ {
		day := first.AddDate(0, 0, i)
		from := day.Add(dayStartHour * time.Hour)
		to := day.Add(dayEndHour * time.Hour)
		if from.Before(now) {
			from = now.Truncate(15 * time.Minute).Add(15 * time.Minute)
		}
		if !to.After(from) {
			continue
		}
		slots, err := s.ws.FreeSlots(ctx, sess.UserID, from, to, dur, maxFreeSlots-len(lines))
		if err != nil {
			return dispatch.Outcome{}, err
		}
		for _, sl := range slots {
			lines = append(lines, fmt.Sprintf("**%s:** %s - %s",
				sl[0].In(now.Location()).Format("Mon Jan 2"),
				sl[0].In(now.Location()).Format("15:04"),
				sl[1].In(now.Location()).Format("15:04")))
		}
	}

	if len(lines) == 0 {
		if days == 1 {
			return dispatch.Done("❌ **No %s free slots on %s**", when.Hours(dur), first.Format("Monday, January 2")), nil
		}
		return dispatch.Done("❌ **No %s free slots found in the next %d days**", when.Hours(dur), days), nil
	}
	return dispatch.Done("🕐 **Available %s slots:**\n\n%s", when.Hours(dur), reply.Bullets(lines)), nil
}

func deref(o *dispatch.Outcome) dispatch.Outcome {
	if o == nil {
		return dispatch.Outcome{}
	}
	return *o
}
