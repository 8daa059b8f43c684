// Package contacts is the address book collaborator.
package contacts

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/services/reply"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/workspace"
)

var schemas = dispatch.MustSchemas(intent.Contacts, map[string]string{
	"FIND_CONTACT":  dispatch.Object(nil, map[string]string{"query": dispatch.AnyString}),
	"LIST_CONTACTS": dispatch.Object(nil, nil),
	"ADD_CONTACT": dispatch.Object(nil, map[string]string{
		"name": dispatch.AnyString, "email": dispatch.AnyString,
		"phone": dispatch.AnyString, "company": dispatch.AnyString,
	}),
	"DELETE_CONTACT": dispatch.Object(nil, map[string]string{
		"id": dispatch.NonBlank, "query": dispatch.AnyString, "confirmed": dispatch.YesNo,
	}),
})

// Service implements dispatch.Collaborator for contacts.
type Service struct {
	ws *workspace.Workspace
}

// New returns the contacts collaborator.
func New(ws *workspace.Workspace) *Service {
	return &Service{ws: ws}
}

// Service reports intent.Contacts.
func (s *Service) Service() intent.Service { return intent.Contacts }

// HandleAction runs one contacts verb.
func (s *Service) HandleAction(ctx context.Context, verb string, params map[string]string, sess *session.Session) (dispatch.Outcome, error) {
	if err := schemas.Validate(verb, params); err != nil {
		return dispatch.Outcome{}, err
	}
	a := intent.ActionRequest{Service: intent.Contacts, Action: verb, Parameters: params}

	switch verb {
	case "FIND_CONTACT":
		return s.find(ctx, sess, a)
	case "LIST_CONTACTS":
		return s.list(ctx, sess)
	case "ADD_CONTACT":
		return s.add(ctx, sess, a)
	case "DELETE_CONTACT":
		return s.delete(ctx, sess, a)
	}
	return dispatch.Outcome{}, fmt.Errorf("%w: contacts.%s", dispatch.ErrUnknownAction, verb)
}

func card(c workspace.Contact) string {
	var details []string
	if c.Email != "" {
		details = append(details, "📧 "+c.Email)
	}
	if c.Phone != "" {
		details = append(details, "📞 "+c.Phone)
	}
	if c.Company != "" {
		details = append(details, "🏢 "+c.Company)
	}
	if len(details) == 0 {
		return "**" + c.Name + "**"
	}
	return "**" + c.Name + "**\n   " + strings.Join(details, " · ")
}

func label(c workspace.Contact) string {
	if c.Email != "" {
		return fmt.Sprintf("%s <%s>", c.Name, c.Email)
	}
	return c.Name
}

func cards(found []workspace.Contact) string {
	lines := make([]string, len(found))
	for i, c := range found {
		lines[i] = card(c)
	}
	return reply.Numbered(lines)
}

func candidates(found []workspace.Contact) []session.Candidate {
	out := make([]session.Candidate, len(found))
	for i, c := range found {
		out[i] = session.Candidate{ID: c.ID, Label: label(c)}
	}
	return out
}

func (s *Service) find(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	q := strings.TrimSpace(a.Param("query"))
	if q == "" {
		return reply.Ask(sess, a, "query", "👤 Who are you looking for?")
	}
	found, err := s.ws.FindContacts(ctx, sess.UserID, q, 10)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if len(found) == 0 {
		return dispatch.Done("📭 **No contacts found for:** %q", q), nil
	}
	sess.SetResults(intent.Contacts, candidates(found))
	return dispatch.Done("👤 **Contacts matching %q:**\n\n%s", q, cards(found)), nil
}

func (s *Service) list(ctx context.Context, sess *session.Session) (dispatch.Outcome, error) {
	all, err := s.ws.ListContacts(ctx, sess.UserID, 0)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if len(all) == 0 {
		return dispatch.Done("📭 **No contacts yet**"), nil
	}
	sess.SetResults(intent.Contacts, candidates(all))
	return dispatch.Done("📇 **Your contacts** (%d):\n\n%s", len(all), cards(all)), nil
}

func (s *Service) add(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	name := strings.TrimSpace(a.Param("name"))
	if name == "" {
		return reply.Ask(sess, a, "name", "👤 What's the contact's name?")
	}
	c := workspace.Contact{
		Owner:   sess.UserID,
		Name:    name,
		Phone:   strings.TrimSpace(a.Param("phone")),
		Company: strings.TrimSpace(a.Param("company")),
	}
	if e := strings.TrimSpace(a.Param("email")); e != "" {
		addr, err := netmail.ParseAddress(e)
		if err != nil {
			return dispatch.Outcome{}, fmt.Errorf("%w: %q is not an email address", dispatch.ErrInvalidParams, e)
		}
		c.Email = strings.ToLower(addr.Address)

		existing, err := s.ws.FindContacts(ctx, sess.UserID, c.Email, 10)
		if err != nil {
			return dispatch.Outcome{}, err
		}
		for _, x := range existing {
			if strings.EqualFold(x.Email, c.Email) {
				return dispatch.Failed("ℹ️ %s is already in your contacts as **%s**.", c.Email, x.Name), nil
			}
		}
	}

	added, err := s.ws.AddContact(ctx, c)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	return dispatch.Done("✅ **Contact added:** %s", card(added)), nil
}

func (s *Service) delete(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	var c workspace.Contact
	if id := a.Param("id"); id != "" {
		var err error
		c, err = s.ws.GetContact(ctx, sess.UserID, id)
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("contact", id)
		}
		if err != nil {
			return dispatch.Outcome{}, err
		}
	} else {
		q := strings.TrimSpace(a.Param("query"))
		if q == "" {
			return reply.Ask(sess, a, "query", "👤 Which contact should I delete?")
		}
		found, err := s.ws.FindContacts(ctx, sess.UserID, q, 10)
		if err != nil {
			return dispatch.Outcome{}, err
		}
		switch len(found) {
		case 0:
			return dispatch.Failed("📭 No contact matches %q.", q), nil
		case 1:
			c = found[0]
		default:
			return reply.Select(sess, a, candidates(found), "contacts", "delete")
		}
	}

	if !reply.Confirmed(a.Parameters) {
		return reply.Confirm(sess, a.With("id", c.ID), fmt.Sprintf("🗑️ Delete contact %s?", card(c)))
	}
	if err := s.ws.DeleteContact(ctx, sess.UserID, c.ID); err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("contact", c.ID)
		}
		return dispatch.Outcome{}, err
	}
	sess.ClearResults(intent.Contacts)
	return dispatch.Done("🗑️ **Deleted contact:** %s", label(c)), nil
}
