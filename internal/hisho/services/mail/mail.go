// Package mail is the mailbox collaborator. Every verb that acts on one
// message searches first and lets the user pick; deletion always asks, even
// for a single match.
package mail

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strconv"
	"strings"

	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/services/reply"
	"github.com/bdobrica/Hisho/internal/hisho/services/when"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/workspace"
)

const (
	defaultLimit = 10
	maxLimit     = 50
	previewRunes = 80
)

var queryProps = map[string]string{
	"id": dispatch.NonBlank, "query": dispatch.AnyString,
}

var schemas = dispatch.MustSchemas(intent.Mail, map[string]string{
	"LIST_UNREAD": dispatch.Object(nil, map[string]string{"max_results": dispatch.Digits}),
	"SEARCH_EMAILS": dispatch.Object(nil, map[string]string{
		"query": dispatch.AnyString, "max_results": dispatch.Digits,
	}),
	"GET_LAST_EMAIL": dispatch.Object(nil, nil),
	"READ_EMAIL":     dispatch.Object(nil, queryProps),
	"MARK_READ":      dispatch.Object(nil, queryProps),
	"MARK_UNREAD":    dispatch.Object(nil, queryProps),
	"DELETE_EMAIL":   dispatch.Object(nil, queryProps),
	"SEND_EMAIL": dispatch.Object(nil, map[string]string{
		"to": dispatch.AnyString, "subject": dispatch.AnyString, "body": dispatch.AnyString,
		"confirmed": dispatch.YesNo,
	}),
	"REPLY_EMAIL": dispatch.Object(nil, map[string]string{
		"id": dispatch.NonBlank, "query": dispatch.AnyString, "body": dispatch.AnyString,
	}),
})

// Service implements dispatch.Collaborator for mail.
type Service struct {
	ws *workspace.Workspace
}

// New returns the mail collaborator.
func New(ws *workspace.Workspace) *Service {
	return &Service{ws: ws}
}

// Service reports intent.Mail.
func (s *Service) Service() intent.Service { return intent.Mail }

// HandleAction runs one mail verb.
func (s *Service) HandleAction(ctx context.Context, verb string, params map[string]string, sess *session.Session) (dispatch.Outcome, error) {
	if err := schemas.Validate(verb, params); err != nil {
		return dispatch.Outcome{}, err
	}
	a := intent.ActionRequest{Service: intent.Mail, Action: verb, Parameters: params}

	switch verb {
	case "LIST_UNREAD":
		return s.listUnread(ctx, sess, a)
	case "SEARCH_EMAILS":
		return s.search(ctx, sess, a)
	case "GET_LAST_EMAIL":
		return s.last(ctx, sess)
	case "READ_EMAIL":
		return s.read(ctx, sess, a)
	case "MARK_READ", "MARK_UNREAD":
		return s.mark(ctx, sess, a, verb == "MARK_UNREAD")
	case "DELETE_EMAIL":
		return s.delete(ctx, sess, a)
	case "SEND_EMAIL":
		return s.send(ctx, sess, a)
	case "REPLY_EMAIL":
		return s.replyTo(ctx, sess, a)
	}
	return dispatch.Outcome{}, fmt.Errorf("%w: mail.%s", dispatch.ErrUnknownAction, verb)
}

func limit(a intent.ActionRequest) int {
	n, err := strconv.Atoi(a.Param("max_results"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return min(n, maxLimit)
}

// ---------------------------------------------------------------------------
// Formatting
// ---------------------------------------------------------------------------

func (s *Service) label(e workspace.Email) string {
	subject := e.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	return fmt.Sprintf("%s, from %s (%s)", subject, e.From, when.Ago(e.ReceivedAt, s.ws.Now()))
}

func (s *Service) listing(e workspace.Email) string {
	marker := ""
	if e.Unread {
		marker = "🔵 "
	}
	line := fmt.Sprintf("%s**%s**\n   From: %s · %s", marker, orNoSubject(e.Subject), e.From, when.Ago(e.ReceivedAt, s.ws.Now()))
	if p := reply.Truncate(strings.Join(strings.Fields(e.Body), " "), previewRunes); p != "" {
		line += "\n   " + p
	}
	return line
}

func (s *Service) full(e workspace.Email) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📧 **%s**\nFrom: %s\n", orNoSubject(e.Subject), e.From)
	if len(e.To) > 0 {
		fmt.Fprintf(&b, "To: %s\n", strings.Join(e.To, ", "))
	}
	fmt.Fprintf(&b, "Received: %s\n\n%s", when.Ago(e.ReceivedAt, s.ws.Now()), strings.TrimSpace(e.Body))
	return strings.TrimRight(b.String(), "\n")
}

func orNoSubject(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(no subject)"
	}
	return s
}

func (s *Service) candidates(emails []workspace.Email) []session.Candidate {
	out := make([]session.Candidate, len(emails))
	for i, e := range emails {
		out[i] = session.Candidate{ID: e.ID, Label: s.label(e)}
	}
	return out
}

func (s *Service) numbered(emails []workspace.Email) string {
	lines := make([]string, len(emails))
	for i, e := range emails {
		lines[i] = s.listing(e)
	}
	return reply.Numbered(lines)
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

func (s *Service) listUnread(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	emails, err := s.ws.SearchMail(ctx, sess.UserID, workspace.MailQuery{Unread: true, Limit: limit(a)})
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if len(emails) == 0 {
		return dispatch.Done("📭 **No unread emails**"), nil
	}
	sess.SetResults(intent.Mail, s.candidates(emails))
	return dispatch.Done("📬 **Unread emails** (%d):\n\n%s", len(emails), s.numbered(emails)), nil
}

func (s *Service) search(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	q := strings.TrimSpace(a.Param("query"))
	mq := workspace.ParseMailQuery(q)
	mq.Limit = limit(a)
	emails, err := s.ws.SearchMail(ctx, sess.UserID, mq)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if len(emails) == 0 {
		if q == "" {
			return dispatch.Done("📭 **Your inbox is empty**"), nil
		}
		return dispatch.Done("📭 **No emails found for:** %q", q), nil
	}
	sess.SetResults(intent.Mail, s.candidates(emails))
	header := "📬 **Inbox**"
	if q != "" {
		header = fmt.Sprintf("🔍 **Emails matching %q**", q)
	}
	return dispatch.Done("%s (%d):\n\n%s", header, len(emails), s.numbered(emails)), nil
}

func (s *Service) last(ctx context.Context, sess *session.Session) (dispatch.Outcome, error) {
	emails, err := s.ws.SearchMail(ctx, sess.UserID, workspace.MailQuery{Limit: 1})
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if len(emails) == 0 {
		return dispatch.Done("📭 **Your inbox is empty**"), nil
	}
	return s.open(ctx, sess, emails[0])
}

// ---------------------------------------------------------------------------
// Acting on one message
// ---------------------------------------------------------------------------

// find resolves the message an action targets. An "id" is loaded directly.
// Otherwise the query is searched: no match ends the action, several start a
// selection, and one is returned unless always is set, in which case even a
// single match is offered for selection.
func (s *Service) find(ctx context.Context, sess *session.Session, a intent.ActionRequest, always bool, purpose string) (e workspace.Email, out *dispatch.Outcome, err error) {
	if id := a.Param("id"); id != "" {
		e, err = s.ws.GetMail(ctx, sess.UserID, id)
		if errors.Is(err, workspace.ErrNotFound) {
			return e, nil, reply.NotFound("email", id)
		}
		return e, nil, err
	}

	q := strings.TrimSpace(a.Param("query"))
	if q == "" {
		o, err := reply.Ask(sess, a, "query", fmt.Sprintf(
			"Which email should I %s? Give me a sender, a subject or some words from it.", purpose))
		return e, &o, err
	}

	mq := workspace.ParseMailQuery(q)
	mq.Limit = defaultLimit
	emails, err := s.ws.SearchMail(ctx, sess.UserID, mq)
	if err != nil {
		return e, nil, err
	}
	switch {
	case len(emails) == 0:
		o := dispatch.Failed("📭 No emails match %q.", q)
		return e, &o, nil
	case len(emails) == 1 && !always:
		return emails[0], nil, nil
	}
	o, err := reply.Select(sess, a, s.candidates(emails), "emails", purpose)
	return e, &o, err
}

func (s *Service) open(ctx context.Context, sess *session.Session, e workspace.Email) (dispatch.Outcome, error) {
	if e.Deleted {
		return dispatch.Failed("🗑️ That email is in the trash."), nil
	}
	if e.Unread {
		if err := s.ws.SetUnread(ctx, sess.UserID, e.ID, false); err != nil && !errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, err
		}
	}
	return dispatch.Done("%s", s.full(e)), nil
}

func (s *Service) read(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	e, out, err := s.find(ctx, sess, a, false, "open")
	if out != nil || err != nil {
		return deref(out), err
	}
	return s.open(ctx, sess, e)
}

func (s *Service) mark(ctx context.Context, sess *session.Session, a intent.ActionRequest, unread bool) (dispatch.Outcome, error) {
	purpose := "mark as read"
	if unread {
		purpose = "mark as unread"
	}
	e, out, err := s.find(ctx, sess, a, false, purpose)
	if out != nil || err != nil {
		return deref(out), err
	}
	if err := s.ws.SetUnread(ctx, sess.UserID, e.ID, unread); err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("email", e.ID)
		}
		return dispatch.Outcome{}, err
	}
	state := "read"
	if unread {
		state = "unread"
	}
	return dispatch.Done("✅ Marked as %s: **%s**", state, orNoSubject(e.Subject)), nil
}

func (s *Service) delete(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	e, out, err := s.find(ctx, sess, a, true, "delete")
	if out != nil || err != nil {
		return deref(out), err
	}
	already, err := s.ws.DeleteMail(ctx, sess.UserID, e.ID)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("email", e.ID)
		}
		return dispatch.Outcome{}, err
	}
	sess.ClearResults(intent.Mail)
	if already {
		return dispatch.Done("ℹ️ **%s** was already deleted.", orNoSubject(e.Subject)), nil
	}
	return dispatch.Done("🗑️ **Deleted:** %s", s.label(e)), nil
}

// ---------------------------------------------------------------------------
// Sending
// ---------------------------------------------------------------------------

// recipients resolves each comma-separated entry of to. Plain addresses are
// kept; anything else is looked up in the contacts by name and must resolve
// to exactly one address.
func (s *Service) recipients(ctx context.Context, owner, to string) ([]string, error) {
	var out []string
	for _, part := range strings.FieldsFunc(to, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if addr, err := netmail.ParseAddress(part); err == nil {
			out = append(out, addr.Address)
			continue
		}
		found, err := s.ws.FindContacts(ctx, owner, part, 2)
		if err != nil {
			return nil, err
		}
		var withMail []string
		for _, c := range found {
			if c.Email != "" {
				withMail = append(withMail, c.Email)
			}
		}
		if len(withMail) != 1 {
			return nil, fmt.Errorf("%w: no single address for %q", dispatch.ErrInvalidParams, part)
		}
		out = append(out, withMail[0])
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no recipients", dispatch.ErrInvalidParams)
	}
	return out, nil
}

func (s *Service) send(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	if strings.TrimSpace(a.Param("to")) == "" {
		return reply.Ask(sess, a, "to", "📧 Who should I send it to?")
	}
	to, err := s.recipients(ctx, sess.UserID, a.Param("to"))
	if err != nil {
		return dispatch.Outcome{}, err
	}
	a = a.With("to", strings.Join(to, ", "))
	if strings.TrimSpace(a.Param("body")) == "" {
		return reply.Ask(sess, a, "body", fmt.Sprintf("✍️ What should the email to %s say?", strings.Join(to, ", ")))
	}
	subject := strings.TrimSpace(a.Param("subject"))

	if !reply.Confirmed(a.Parameters) {
		return reply.Confirm(sess, a, fmt.Sprintf("📤 **Send this email?**\n\nTo: %s\nSubject: %s\n\n%s",
			strings.Join(to, ", "), orNoSubject(subject), reply.Truncate(a.Param("body"), 500)))
	}

	if _, err := s.ws.SendMail(ctx, sess.UserID, to, subject, a.Param("body"), ""); err != nil {
		return dispatch.Outcome{}, err
	}
	return dispatch.Done("✅ **Email sent** to %s", strings.Join(to, ", ")), nil
}

func (s *Service) replyTo(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	e, out, err := s.find(ctx, sess, a, false, "reply to")
	if out != nil || err != nil {
		return deref(out), err
	}
	if strings.TrimSpace(a.Param("body")) == "" {
		return reply.Ask(sess, a.With("id", e.ID), "body",
			fmt.Sprintf("✍️ What should I reply to **%s** from %s?", orNoSubject(e.Subject), e.From))
	}

	subject := e.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}
	if _, err := s.ws.SendMail(ctx, sess.UserID, []string{e.From}, subject, a.Param("body"), e.ID); err != nil {
		return dispatch.Outcome{}, err
	}
	return dispatch.Done("✅ **Reply sent** to %s: %s", e.From, subject), nil
}

func deref(o *dispatch.Outcome) dispatch.Outcome {
	if o == nil {
		return dispatch.Outcome{}
	}
	return *o
}
