// Package session holds per-user conversational state: bounded history, the
// single pending interaction and the last search results per service.
//
// A Session is only ever touched through Store.With, which gives the caller
// exclusive access for the duration of one message.
package session

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bdobrica/Hisho/internal/hisho/intent"
)

// ErrNoCandidates is returned by Begin for a selection with nothing to select.
var ErrNoCandidates = errors.New("session: selection needs at least one candidate")

// Role identifies who authored a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in the conversation history.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Kind is the shape of input a pending interaction is waiting for.
type Kind int

const (
	SelectFromList Kind = iota + 1
	FreeformInput
	ConfirmYesNo
)

func (k Kind) String() string {
	switch k {
	case SelectFromList:
		return "SELECT_FROM_LIST"
	case FreeformInput:
		return "FREEFORM_INPUT"
	case ConfirmYesNo:
		return "CONFIRM_YES_NO"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is the interaction state derived from the pending interaction.
type State string

const (
	StateIdle                 State = "IDLE"
	StateAwaitingSelection    State = "AWAITING_SELECTION"
	StateAwaitingFreeform     State = "AWAITING_FREEFORM"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
)

// Candidate is one selectable item: a stable identifier plus what the user
// was shown.
type Candidate struct {
	ID    string
	Label string
}

// ActionUnknown marks a pending interaction whose verb is not decided yet.
// Resuming it re-resolves the collected input within the pending service.
const ActionUnknown = ""

// PendingInteraction is a suspended action waiting for more user input.
type PendingInteraction struct {
	ID      string
	Service intent.Service
	Action  string
	Params  map[string]string
	Kind    Kind
	// Field names the parameter a FreeformInput reply is stored under.
	Field      string
	Candidates []Candidate
	// Prompt is repeated when a reply cannot be used.
	Prompt    string
	CreatedAt time.Time
}

// Request is the action that resumes the interaction, with extra parameters
// merged over the accumulated ones.
func (p *PendingInteraction) Request(extra ...string) intent.ActionRequest {
	a := intent.ActionRequest{Service: p.Service, Action: p.Action, Parameters: maps.Clone(p.Params)}
	if a.Parameters == nil {
		a.Parameters = map[string]string{}
	}
	for i := 0; i+1 < len(extra); i += 2 {
		a.Parameters[extra[i]] = extra[i+1]
	}
	return a
}

// State maps the interaction kind onto the state machine's state names.
func (p *PendingInteraction) State() State {
	if p == nil {
		return StateIdle
	}
	switch p.Kind {
	case SelectFromList:
		return StateAwaitingSelection
	case FreeformInput:
		return StateAwaitingFreeform
	case ConfirmYesNo:
		return StateAwaitingConfirmation
	default:
		return StateIdle
	}
}

// Select builds a selection interaction over candidates.
func Select(action intent.ActionRequest, candidates []Candidate, prompt string) PendingInteraction {
	return PendingInteraction{
		Service:    action.Service,
		Action:     action.Action,
		Params:     action.Parameters,
		Kind:       SelectFromList,
		Candidates: candidates,
		Prompt:     prompt,
	}
}

// Confirm builds a yes/no interaction that runs action on "yes".
func Confirm(action intent.ActionRequest, prompt string) PendingInteraction {
	return PendingInteraction{
		Service: action.Service,
		Action:  action.Action,
		Params:  action.Parameters,
		Kind:    ConfirmYesNo,
		Prompt:  prompt,
	}
}

// Freeform builds an interaction that stores the next message under field.
func Freeform(action intent.ActionRequest, field, prompt string) PendingInteraction {
	return PendingInteraction{
		Service: action.Service,
		Action:  action.Action,
		Params:  action.Parameters,
		Kind:    FreeformInput,
		Field:   field,
		Prompt:  prompt,
	}
}

// Session is the per-user conversational context.
type Session struct {
	UserID            string
	History           []Message
	Pending           *PendingInteraction
	LastSearchResults map[intent.Service][]Candidate

	historyLimit int
	now          func() time.Time

	// Changes made while the session is held, flushed by Store.With.
	appended       []Message
	historyCleared bool
}

func newSession(userID string, historyLimit int, now func() time.Time) *Session {
	return &Session{
		UserID:            userID,
		LastSearchResults: make(map[intent.Service][]Candidate),
		historyLimit:      historyLimit,
		now:               now,
	}
}

// New returns a detached session, for callers that drive collaborators
// without a Store.
func New(userID string) *Session {
	return newSession(userID, DefaultHistoryLimit, time.Now)
}

// State reports the interaction state.
func (s *Session) State() State {
	return s.Pending.State()
}

// Begin installs p as the pending interaction, replacing any existing one.
// A selection without candidates is refused with ErrNoCandidates and leaves
// the session untouched.
func (s *Session) Begin(p PendingInteraction) (*PendingInteraction, error) {
	if p.Kind == SelectFromList && len(p.Candidates) == 0 {
		return nil, ErrNoCandidates
	}
	p.ID = uuid.NewString()
	p.Params = maps.Clone(p.Params)
	if p.Params == nil {
		p.Params = map[string]string{}
	}
	p.Candidates = slices.Clone(p.Candidates)
	p.CreatedAt = s.now()
	s.Pending = &p
	return s.Pending, nil
}

// Clear discards the pending interaction and returns it, or nil.
func (s *Session) Clear() *PendingInteraction {
	p := s.Pending
	s.Pending = nil
	return p
}

// SetResults records the latest search or list results for service,
// replacing any previous ones.
func (s *Session) SetResults(service intent.Service, items []Candidate) {
	s.LastSearchResults[service] = slices.Clone(items)
}

// Results returns the last results for service.
func (s *Session) Results(service intent.Service) ([]Candidate, bool) {
	items, ok := s.LastSearchResults[service]
	return items, ok
}

// ClearResults forgets the last results for service.
func (s *Session) ClearResults(service intent.Service) {
	delete(s.LastSearchResults, service)
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

const (
	// DefaultHistoryLimit is how many messages a session keeps.
	DefaultHistoryLimit = 10
	// DefaultContextTurns is how many recent messages feed the model.
	DefaultContextTurns = 6
	// DefaultTruncate caps each message in the model context, in runes.
	DefaultTruncate = 500
)

// AddMessage appends to the history, dropping the oldest messages beyond
// the limit. Empty content is ignored.
func (s *Session) AddMessage(role Role, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	m := Message{Role: role, Content: content, Timestamp: s.now()}
	s.History = append(s.History, m)
	if excess := len(s.History) - s.historyLimit; s.historyLimit > 0 && excess > 0 {
		s.History = s.History[excess:]
	}
	s.appended = append(s.appended, m)
}

// ClearHistory forgets every message.
func (s *Session) ClearHistory() {
	s.History = nil
	s.appended = nil
	s.historyCleared = true
}

// ContextString renders the last turns messages for the model prompt, each
// cut to maxChars runes. It returns "" when there is no history.
func (s *Session) ContextString(turns, maxChars int) string {
	if len(s.History) == 0 || turns <= 0 {
		return ""
	}
	recent := s.History[max(0, len(s.History)-turns):]
	var b strings.Builder
	b.WriteString("Previous conversation:")
	for _, m := range recent {
		b.WriteString("\n")
		if m.Role == RoleUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(truncate(m.Content, maxChars))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
