package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Email is a message in an owner's mailbox. Sent messages are stored in the
// same table with Sent set.
type Email struct {
	ID         string
	Owner      string
	From       string
	To         []string
	Subject    string
	Body       string
	Category   string
	Unread     bool
	Spam       bool
	Sent       bool
	Deleted    bool
	InReplyTo  string
	ReceivedAt time.Time
}

// MailQuery narrows a mailbox search. The zero value matches every inbox
// message that is neither spam nor deleted.
type MailQuery struct {
	From      string
	Text      string
	Category  string
	Unread    bool
	Spam      bool
	OlderThan time.Duration
	Limit     int
}

// ParseMailQuery reads a search string in the familiar webmail syntax:
// "from:x", "is:unread", "is:spam", "category:promotions", "older_than:7d",
// "subject:x". Remaining words become free text matched against sender,
// subject and body.
func ParseMailQuery(q string) MailQuery {
	var (
		out  MailQuery
		text []string
	)
	for _, tok := range strings.Fields(q) {
		key, val, ok := strings.Cut(tok, ":")
		if !ok || val == "" {
			text = append(text, tok)
			continue
		}
		switch strings.ToLower(key) {
		case "from":
			out.From = strings.Trim(val, `"'`)
		case "is":
			switch strings.ToLower(val) {
			case "unread":
				out.Unread = true
			case "spam":
				out.Spam = true
			}
		case "category":
			out.Category = strings.ToLower(val)
		case "older_than":
			out.OlderThan = parseAge(val)
		case "subject":
			text = append(text, strings.Trim(val, `"'`))
		default:
			text = append(text, tok)
		}
	}
	out.Text = strings.Join(text, " ")
	return out
}

// parseAge reads "3h", "7d", "2w", "3m" (months) or "1y". Unknown forms are
// zero.
func parseAge(s string) time.Duration {
	if len(s) < 2 {
		return 0
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0
	}
	day := 24 * time.Hour
	switch s[len(s)-1] {
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * day
	case 'w':
		return time.Duration(n) * 7 * day
	case 'm':
		return time.Duration(n) * 30 * day
	case 'y':
		return time.Duration(n) * 365 * day
	}
	return 0
}

const mailColumns = `id, owner, sender, recipients, subject, body, category, unread, spam, sent, deleted, COALESCE(in_reply_to, ''), received_at`

func scanEmail(row interface{ Scan(...any) error }) (Email, error) {
	var (
		e                       Email
		to                      string
		unread, spam, sent, del int
		received                int64
	)
	if err := row.Scan(&e.ID, &e.Owner, &e.From, &to, &e.Subject, &e.Body, &e.Category,
		&unread, &spam, &sent, &del, &e.InReplyTo, &received); err != nil {
		return Email{}, err
	}
	e.To = splitList(to)
	e.Unread, e.Spam, e.Sent, e.Deleted = unread == 1, spam == 1, sent == 1, del == 1
	e.ReceivedAt = fromUnix(received)
	return e, nil
}

// SearchMail returns inbox messages matching q, newest first. Deleted and
// sent messages are never returned; spam only when q asks for it.
func (w *Workspace) SearchMail(ctx context.Context, owner string, q MailQuery) ([]Email, error) {
	var (
		where = []string{"owner = ?", "deleted = 0", "sent = 0", "spam = ?"}
		args  = []any{owner, boolInt(q.Spam)}
	)
	if q.From != "" {
		where = append(where, `LOWER(sender) LIKE ? ESCAPE '\'`)
		args = append(args, like(q.From))
	}
	if q.Text != "" {
		where = append(where, `(LOWER(subject) LIKE ? ESCAPE '\' OR LOWER(body) LIKE ? ESCAPE '\' OR LOWER(sender) LIKE ? ESCAPE '\')`)
		p := like(q.Text)
		args = append(args, p, p, p)
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Unread {
		where = append(where, "unread = 1")
	}
	if q.OlderThan > 0 {
		where = append(where, "received_at < ?")
		args = append(args, unix(w.now().Add(-q.OlderThan)))
	}
	args = append(args, limitOr(q.Limit, 10))

	rows, err := w.db.QueryContext(ctx,
		"SELECT "+mailColumns+" FROM mail_messages WHERE "+strings.Join(where, " AND ")+
			" ORDER BY received_at DESC, id LIMIT ?", args...)
	if err != nil {
		return nil, fmt.Errorf("workspace: search mail: %w", err)
	}
	defer rows.Close()

	var out []Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("workspace: scan mail: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetMail returns one message, including deleted ones.
func (w *Workspace) GetMail(ctx context.Context, owner, id string) (Email, error) {
	e, err := scanEmail(w.db.QueryRowContext(ctx,
		"SELECT "+mailColumns+" FROM mail_messages WHERE owner = ? AND id = ?", owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Email{}, ErrNotFound
	}
	if err != nil {
		return Email{}, fmt.Errorf("workspace: get mail %s: %w", id, err)
	}
	return e, nil
}

// AddMail stores a received message. Missing ID, category and time are
// filled in.
func (w *Workspace) AddMail(ctx context.Context, e Email) (Email, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Category == "" {
		e.Category = "primary"
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = w.now()
	}
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO mail_messages (id, owner, sender, recipients, subject, body, category, unread, spam, sent, deleted, in_reply_to, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Owner, e.From, joinList(e.To), e.Subject, e.Body, e.Category,
		boolInt(e.Unread), boolInt(e.Spam), boolInt(e.Sent), boolInt(e.Deleted),
		sql.NullString{String: e.InReplyTo, Valid: e.InReplyTo != ""}, unix(e.ReceivedAt))
	if err != nil {
		return Email{}, fmt.Errorf("workspace: add mail: %w", err)
	}
	return e, nil
}

// SendMail records an outgoing message from owner.
func (w *Workspace) SendMail(ctx context.Context, owner string, to []string, subject, body, inReplyTo string) (Email, error) {
	return w.AddMail(ctx, Email{
		Owner:     owner,
		From:      owner,
		To:        to,
		Subject:   subject,
		Body:      body,
		Category:  "sent",
		Sent:      true,
		InReplyTo: inReplyTo,
	})
}

// SetUnread marks a message read or unread.
func (w *Workspace) SetUnread(ctx context.Context, owner, id string, unread bool) error {
	err := affected(w.db.ExecContext(ctx,
		"UPDATE mail_messages SET unread = ? WHERE owner = ? AND id = ? AND deleted = 0",
		boolInt(unread), owner, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("workspace: mark mail %s: %w", id, err)
	}
	return err
}

// DeleteMail moves a message to the trash. It reports already=true without
// error when the message was deleted before.
func (w *Workspace) DeleteMail(ctx context.Context, owner, id string) (already bool, err error) {
	e, err := w.GetMail(ctx, owner, id)
	if err != nil {
		return false, err
	}
	if e.Deleted {
		return true, nil
	}
	if _, err := w.db.ExecContext(ctx,
		"UPDATE mail_messages SET deleted = 1 WHERE owner = ? AND id = ?", owner, id); err != nil {
		return false, fmt.Errorf("workspace: delete mail %s: %w", id, err)
	}
	return false, nil
}
