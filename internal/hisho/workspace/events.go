package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is a calendar entry. End is exclusive.
type Event struct {
	ID          string
	Owner       string
	Calendar    string
	Title       string
	Description string
	Location    string
	Attendees   []string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

const eventColumns = `id, owner, calendar, title, description, location, attendees, starts_at, ends_at, all_day`

func scanEvent(row interface{ Scan(...any) error }) (Event, error) {
	var (
		e          Event
		attendees  string
		start, end int64
		allDay     int
	)
	if err := row.Scan(&e.ID, &e.Owner, &e.Calendar, &e.Title, &e.Description, &e.Location,
		&attendees, &start, &end, &allDay); err != nil {
		return Event{}, err
	}
	e.Attendees = splitList(attendees)
	e.Start, e.End = fromUnix(start), fromUnix(end)
	e.AllDay = allDay == 1
	return e, nil
}

func (w *Workspace) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("workspace: query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("workspace: scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEvents returns events overlapping [from, to) in start order. An empty
// calendar means every calendar.
func (w *Workspace) ListEvents(ctx context.Context, owner, calendar string, from, to time.Time) ([]Event, error) {
	q := "SELECT " + eventColumns + " FROM events WHERE owner = ? AND starts_at < ? AND ends_at > ?"
	args := []any{owner, unix(to), unix(from)}
	if calendar != "" {
		q += " AND calendar = ?"
		args = append(args, calendar)
	}
	return w.queryEvents(ctx, q+" ORDER BY starts_at, id", args...)
}

// SearchEvents finds events at or after from whose title, description,
// location or attendees contain text.
func (w *Workspace) SearchEvents(ctx context.Context, owner, text string, from time.Time, limit int) ([]Event, error) {
	p := like(text)
	return w.queryEvents(ctx, "SELECT "+eventColumns+` FROM events
		WHERE owner = ? AND ends_at > ?
		  AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'
		       OR LOWER(location) LIKE ? ESCAPE '\' OR LOWER(attendees) LIKE ? ESCAPE '\')
		ORDER BY starts_at, id LIMIT ?`,
		owner, unix(from), p, p, p, p, limitOr(limit, 10))
}

// GetEvent returns one event.
func (w *Workspace) GetEvent(ctx context.Context, owner, id string) (Event, error) {
	e, err := scanEvent(w.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE owner = ? AND id = ?", owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("workspace: get event %s: %w", id, err)
	}
	return e, nil
}

// CreateEvent stores e. An empty calendar becomes "primary".
func (w *Workspace) CreateEvent(ctx context.Context, e Event) (Event, error) {
	if !e.End.After(e.Start) {
		return Event{}, fmt.Errorf("workspace: event %q ends before it starts", e.Title)
	}
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Calendar == "" {
		e.Calendar = "primary"
	}
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO events (id, owner, calendar, title, description, location, attendees, starts_at, ends_at, all_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Owner, e.Calendar, e.Title, e.Description, e.Location, joinList(e.Attendees),
		unix(e.Start), unix(e.End), boolInt(e.AllDay))
	if err != nil {
		return Event{}, fmt.Errorf("workspace: create event: %w", err)
	}
	return e, nil
}

// MoveEvent shifts an event to start, keeping its duration.
func (w *Workspace) MoveEvent(ctx context.Context, owner, id string, start time.Time) (Event, error) {
	e, err := w.GetEvent(ctx, owner, id)
	if err != nil {
		return Event{}, err
	}
	d := e.Duration()
	e.Start, e.End = start, start.Add(d)
	if _, err := w.db.ExecContext(ctx,
		"UPDATE events SET starts_at = ?, ends_at = ? WHERE owner = ? AND id = ?",
		unix(e.Start), unix(e.End), owner, id); err != nil {
		return Event{}, fmt.Errorf("workspace: move event %s: %w", id, err)
	}
	return e, nil
}

// DeleteEvent removes an event.
func (w *Workspace) DeleteEvent(ctx context.Context, owner, id string) error {
	err := affected(w.db.ExecContext(ctx, "DELETE FROM events WHERE owner = ? AND id = ?", owner, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("workspace: delete event %s: %w", id, err)
	}
	return err
}

// Conflicts returns the owner's events overlapping [start, end), excluding
// the event named by skipID.
func (w *Workspace) Conflicts(ctx context.Context, owner string, start, end time.Time, skipID string) ([]Event, error) {
	all, err := w.ListEvents(ctx, owner, "", start, end)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if e.ID != skipID && !e.AllDay {
			out = append(out, e)
		}
	}
	return out, nil
}

// FreeSlots returns the gaps of at least d inside [from, to) that no timed
// event covers, earliest first, capped at limit.
func (w *Workspace) FreeSlots(ctx context.Context, owner string, from, to time.Time, d time.Duration, limit int) ([][2]time.Time, error) {
	busy, err := w.Conflicts(ctx, owner, from, to, "")
	if err != nil {
		return nil, err
	}
	var (
		slots  [][2]time.Time
		cursor = from
	)
	emit := func(end time.Time) {
		if end.Sub(cursor) >= d {
			slots = append(slots, [2]time.Time{cursor, end})
		}
	}
	for _, e := range busy {
		if e.Start.After(cursor) {
			emit(e.Start)
		}
		if e.End.After(cursor) {
			cursor = e.End
		}
	}
	if to.After(cursor) {
		emit(to)
	}
	if limit > 0 && len(slots) > limit {
		slots = slots[:limit]
	}
	return slots, nil
}

// Calendars lists the distinct calendar names the owner has events in.
func (w *Workspace) Calendars(ctx context.Context, owner string) ([]string, error) {
	rows, err := w.db.QueryContext(ctx,
		"SELECT DISTINCT calendar FROM events WHERE owner = ? ORDER BY calendar", owner)
	if err != nil {
		return nil, fmt.Errorf("workspace: list calendars: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, strings.TrimSpace(c))
	}
	return out, rows.Err()
}
