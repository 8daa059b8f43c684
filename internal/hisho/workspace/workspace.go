// Package workspace is Hisho's local productivity data: a mailbox, calendars,
// an address book, a file tree and a task list per user, kept in the
// application SQLite database. The service collaborators read and write it.
//
// Every method is scoped to an owner (the chat user id). Rows belonging to
// other owners are invisible, and asking for one yields ErrNotFound.
package workspace

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bdobrica/Hisho/internal/hisho/store"
)

// ErrNotFound is returned when an id does not name a row the owner can see.
var ErrNotFound = errors.New("workspace: not found")

// Workspace provides the per-entity repositories.
type Workspace struct {
	db  *sql.DB
	now func() time.Time
}

// New returns a Workspace over the application database.
func New(s *store.Store) *Workspace {
	return &Workspace{db: s.DB(), now: time.Now}
}

// SetClock replaces the time source. Tests use it to pin "now".
func (w *Workspace) SetClock(now func() time.Time) {
	w.now = now
}

// Now returns the workspace clock's current time.
func (w *Workspace) Now() time.Time {
	return w.now()
}

func newID() string {
	return uuid.NewString()
}

func unix(t time.Time) int64 {
	return t.Unix()
}

func fromUnix(s int64) time.Time {
	return time.Unix(s, 0).UTC()
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func ptrFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnix(n.Int64)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinList(xs []string) string {
	return strings.Join(xs, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// like builds a LIKE pattern matching text anywhere, escaping wildcards.
func like(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(text))) + "%"
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// affected maps a zero-row update or delete to ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
