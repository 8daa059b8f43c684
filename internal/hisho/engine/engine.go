// Package engine is the conversational core: it routes each user message to
// a slash command, a pending interaction or the translators, and dispatches
// the resulting actions.
//
// Every message runs under the user's exclusive session lock with a finite
// deadline. Whatever happens while handling it, including a panic or a
// timeout, the session ends in a known state: either the interaction a
// collaborator deliberately began, or IDLE.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bdobrica/Hisho/common/trace"
	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/nlp"
	"github.com/bdobrica/Hisho/internal/hisho/prefs"
	"github.com/bdobrica/Hisho/internal/hisho/session"
)

// User-facing messages.
const (
	CancelledMessage = "❌ Cancelled."
	ExpiredMessage   = "❌ Session expired. Please search again."
	TimeoutMessage   = "⏱ That took too long, so I stopped. Please try again."
	BusyMessage      = "⏳ I'm still working on your previous message. Please try again in a moment."
	FailureMessage   = "❌ Sorry, something went wrong. Please try again."
	NotFoundMessage  = "🔍 I couldn't find that any more. Please search again."
	InvalidMessage   = "❓ I need a bit more detail to do that. Could you rephrase with specifics?"
	DoneMessage      = "✅ Done."
	EmptyMessage     = "👋 I'm here. Ask me about your calendar, mail, contacts, files or tasks."
)

// Config holds engine behaviour settings.
type Config struct {
	// Enabled is the set of services users may reach.
	Enabled intent.ServiceSet
	// Timeout bounds the handling of one message. Default: 30 s.
	Timeout time.Duration
	// PendingTTL expires an unanswered interaction. Zero disables expiry.
	PendingTTL time.Duration
	// ContextTurns and Truncate bound the history sent to the model.
	ContextTurns int
	Truncate     int
	// SingleCandidateAffirm lets "yes" pick the only candidate of a
	// one-item selection.
	SingleCandidateAffirm bool
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Deps are the engine's collaborators. Prefs may be nil.
type Deps struct {
	Sessions   *session.Store
	Matcher    *intent.Matcher
	Translator *nlp.Translator
	Dispatcher *dispatch.Dispatcher
	Prefs      prefs.Store
}

// Engine handles user messages. It is safe for concurrent use; messages from
// one user are serialized by the session store.
type Engine struct {
	cfg        Config
	sessions   *session.Store
	matcher    *intent.Matcher
	translator *nlp.Translator
	dispatcher *dispatch.Dispatcher
	prefs      prefs.Store
	commands   *Commands
	started    time.Time
}

// New creates an Engine and registers the slash commands.
func New(cfg Config, deps Deps) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = session.DefaultContextTurns
	}
	if cfg.Truncate <= 0 {
		cfg.Truncate = session.DefaultTruncate
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(session.Config{})
	}
	if deps.Matcher == nil {
		deps.Matcher = intent.NewMatcher(intent.MatcherOptions{})
	}
	if deps.Translator == nil {
		deps.Translator = nlp.NewTranslator(nlp.TranslatorConfig{})
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = dispatch.New(nil)
	}
	e := &Engine{
		cfg:        cfg,
		sessions:   deps.Sessions,
		matcher:    deps.Matcher,
		translator: deps.Translator,
		dispatcher: deps.Dispatcher,
		prefs:      deps.Prefs,
		started:    cfg.Now(),
	}
	e.commands = e.registerCommands()
	return e
}

// Reply is the engine's answer to one message.
type Reply struct {
	Text  string
	State session.State
}

// Handle processes one message from userID and returns the text to show.
// Failures are reported in Reply.Text; the error is non-nil only for an
// empty user id.
func (e *Engine) Handle(ctx context.Context, userID, text string) (Reply, error) {
	if userID == "" {
		return Reply{}, fmt.Errorf("engine: empty user id")
	}
	ctx = trace.Ensure(ctx)
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	log := trace.Logger(ctx).With("user", userID)

	var reply Reply
	err := e.sessions.With(ctx, userID, func(sess *session.Session) error {
		history := sess.ContextString(e.cfg.ContextTurns, e.cfg.Truncate)
		text = strings.TrimSpace(text)
		sess.AddMessage(session.RoleUser, text)
		before := sess.State()

		out := e.safeHandle(ctx, sess, text, history)
		if ctx.Err() != nil {
			log.Warn("message handling timed out", "state", sess.State())
			sess.Clear()
			out = TimeoutMessage
		}

		sess.AddMessage(session.RoleAssistant, out)
		reply = Reply{Text: out, State: sess.State()}
		if reply.State != before {
			log.Debug("state transition", "from", before, "to", reply.State)
		}
		return nil
	})
	if err != nil {
		log.Warn("session busy", "err", err)
		return Reply{Text: BusyMessage}, nil
	}
	return reply, nil
}

// safeHandle converts a panic anywhere below into a failure message and an
// idle session.
func (e *Engine) safeHandle(ctx context.Context, sess *session.Session, text, history string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			trace.Logger(ctx).Error("panic while handling message",
				"panic", r, "stack", string(debug.Stack()))
			sess.Clear()
			out = FailureMessage
		}
	}()
	return e.handle(ctx, sess, text, history)
}

func (e *Engine) handle(ctx context.Context, sess *session.Session, text, history string) string {
	if text == "" {
		return EmptyMessage
	}

	if cmd, err := e.commands.Parse(text); err == nil {
		if p := sess.Clear(); p != nil {
			trace.Logger(ctx).Debug("command discarded pending interaction", "kind", p.Kind)
		}
		out, err := e.commands.Route(ctx, cmd, sess)
		if errors.Is(err, ErrUnknownCommand) {
			return fmt.Sprintf("❓ Unknown command /%s. Try /help.", cmd.Name)
		}
		if err != nil {
			trace.Logger(ctx).Error("command failed", "command", cmd.Name, "err", err)
			return FailureMessage
		}
		return out
	}

	if p := sess.Pending; p != nil {
		return e.resume(ctx, sess, p, text)
	}
	return e.resolve(ctx, sess, text, history, e.cfg.Enabled, nil)
}

// ---------------------------------------------------------------------------
// Translation and dispatch
// ---------------------------------------------------------------------------

// resolve translates text into actions within enabled and runs them. base
// parameters, when given, are defaults merged into every resulting action.
func (e *Engine) resolve(ctx context.Context, sess *session.Session, text, history string, enabled intent.ServiceSet, base map[string]string) string {
	log := trace.Logger(ctx)

	res, rule, matched := e.matcher.Match(text, enabled)
	if matched {
		log.Debug("matcher hit", "rule", rule)
	} else {
		var err error
		res, err = e.translator.Translate(ctx, nlp.Request{
			UserID:    sess.UserID,
			Utterance: text,
			History:   history,
			Enabled:   enabled,
		})
		if err != nil {
			log.Info("using fallback classifier", "reason", err)
			res = intent.Fallback(text, enabled)
		}
	}

	actions := withDefaults(res.Actions, base)
	actions = e.applyPrefs(ctx, sess.UserID, actions)
	res.Actions = intent.Enrich(actions, text)
	log.Debug("resolved", "source", res.Source, "actions", len(res.Actions))
	return e.run(ctx, sess, res)
}

// run dispatches the actions in order. It stops early when an action fails
// or leaves the user an interaction to answer, since later actions may
// depend on the earlier ones.
func (e *Engine) run(ctx context.Context, sess *session.Session, res intent.TranslationResult) string {
	var parts []string
	if res.Text != "" {
		parts = append(parts, res.Text)
	}
	for i, a := range res.Actions {
		out, err := e.dispatcher.Dispatch(ctx, a, sess)
		if err != nil {
			parts = append(parts, e.failure(ctx, sess, a, err))
			break
		}
		if out.Message != "" {
			parts = append(parts, out.Message)
		}
		if out.Awaiting {
			if skipped := len(res.Actions) - i - 1; skipped > 0 {
				trace.Logger(ctx).Info("actions skipped for pending interaction", "skipped", skipped)
			}
			break
		}
	}
	if len(parts) == 0 {
		return DoneMessage
	}
	return strings.Join(parts, "\n\n")
}

// dispatchOne runs a single resumed action.
func (e *Engine) dispatchOne(ctx context.Context, sess *session.Session, a intent.ActionRequest) string {
	out, err := e.dispatcher.Dispatch(ctx, a, sess)
	if err != nil {
		return e.failure(ctx, sess, a, err)
	}
	if out.Message == "" {
		return DoneMessage
	}
	return out.Message
}

// failure turns a dispatch error into a message. The session always returns
// to IDLE, except that an unknown verb asks the user what they meant within
// the same service.
func (e *Engine) failure(ctx context.Context, sess *session.Session, a intent.ActionRequest, err error) string {
	sess.Clear()
	switch {
	case errors.Is(err, dispatch.ErrUnknownAction):
		prompt := fmt.Sprintf("🤔 I can't do that with %s. What would you like to do with %s?", a.Service.Title(), a.Service.Title())
		p := session.PendingInteraction{
			Service: a.Service,
			Action:  session.ActionUnknown,
			Params:  a.Parameters,
			Kind:    session.FreeformInput,
			Field:   "request",
			Prompt:  prompt,
		}
		if _, err := sess.Begin(p); err != nil {
			return FailureMessage
		}
		return prompt
	case errors.Is(err, dispatch.ErrNotFound):
		return NotFoundMessage
	case errors.Is(err, dispatch.ErrInvalidParams):
		return InvalidMessage
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return TimeoutMessage
	default:
		slog.Debug("engine: unclassified dispatch error", "action", a.Key(), "err", err)
		return FailureMessage
	}
}

// withDefaults merges base under each action's own parameters.
func withDefaults(actions []intent.ActionRequest, base map[string]string) []intent.ActionRequest {
	if len(base) == 0 {
		return actions
	}
	out := make([]intent.ActionRequest, len(actions))
	for i, a := range actions {
		c := a.Clone()
		for k, v := range base {
			if _, set := c.Parameters[k]; !set {
				c.Parameters[k] = v
			}
		}
		out[i] = c
	}
	return out
}

// applyPrefs fills parameters from the user's preferences. Like enrichment,
// it never overrides a parameter that is already set.
func (e *Engine) applyPrefs(ctx context.Context, userID string, actions []intent.ActionRequest) []intent.ActionRequest {
	if e.prefs == nil || len(actions) == 0 {
		return actions
	}
	p, err := e.prefs.List(ctx, userID)
	if err != nil {
		trace.Logger(ctx).Warn("preferences unavailable", "err", err)
		return actions
	}
	out := make([]intent.ActionRequest, len(actions))
	for i, a := range actions {
		c := a.Clone()
		fill := func(key, value string) {
			if value != "" && strings.TrimSpace(c.Parameters[key]) == "" {
				c.Parameters[key] = value
			}
		}
		switch c.Service {
		case intent.Mail:
			if c.Action == "LIST_UNREAD" || c.Action == "SEARCH_EMAILS" {
				fill("max_results", p[prefs.KeyEmailCount])
			}
		case intent.Calendar:
			fill("calendar", p[prefs.KeyCalendar])
			fill("timezone", p[prefs.KeyTimezone])
		case intent.Tasks:
			fill("timezone", p[prefs.KeyTimezone])
		}
		out[i] = c
	}
	return out
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status is a snapshot for /status and the HTTP API.
type Status struct {
	Enabled  []intent.Service
	Model    string
	Sessions int
	Uptime   time.Duration
}

// Status reports the engine's configuration and load.
func (e *Engine) Status() Status {
	return Status{
		Enabled:  e.cfg.Enabled.List(),
		Model:    e.translator.ModelName(),
		Sessions: e.sessions.Len(),
		Uptime:   e.cfg.Now().Sub(e.started).Round(time.Second),
	}
}
