// Package dispatch routes resolved actions to collaborator services.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bdobrica/Hisho/common/redact"
	"github.com/bdobrica/Hisho/common/trace"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/session"
)

var (
	// ErrNotFound means the item an action refers to no longer exists.
	ErrNotFound = errors.New("dispatch: not found")
	// ErrInvalidParams means the parameters failed the collaborator's checks.
	ErrInvalidParams = errors.New("dispatch: invalid parameters")
	// ErrUnknownAction means the collaborator has no such verb.
	ErrUnknownAction = errors.New("dispatch: unknown action")
)

// Collaborator performs actions for one service. HandleAction validates its
// own parameters and may set search results or begin a pending interaction on
// sess; those side effects are visible to the caller once it returns.
type Collaborator interface {
	Service() intent.Service
	HandleAction(ctx context.Context, verb string, params map[string]string, sess *session.Session) (Outcome, error)
}

// Outcome is a collaborator's result.
type Outcome struct {
	Success bool
	Message string
	// Awaiting is set by the Dispatcher when the collaborator left a new
	// pending interaction. Message then holds the prompt. It is a valid
	// outcome, distinct from success and failure.
	Awaiting bool
}

// Done is a successful outcome.
func Done(format string, args ...any) Outcome {
	return Outcome{Success: true, Message: sprintf(format, args...)}
}

// Failed is an unsuccessful outcome with a message for the user.
func Failed(format string, args ...any) Outcome {
	return Outcome{Message: sprintf(format, args...)}
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// UnavailableMessage is returned for a service with no registered
// collaborator.
const UnavailableMessage = "⚠️ %s service is not available."

// Auditor records dispatched actions. *store.Store satisfies it.
type Auditor interface {
	WriteAudit(ctx context.Context, traceID, actor, action, target, result string, payload map[string]any, errorMsg string) error
}

// Dispatcher holds the registered collaborators. It is safe for concurrent
// use.
type Dispatcher struct {
	mu            sync.RWMutex
	collaborators map[intent.Service]Collaborator
	auditor       Auditor
}

// New creates an empty Dispatcher. auditor may be nil.
func New(auditor Auditor) *Dispatcher {
	return &Dispatcher{
		collaborators: make(map[intent.Service]Collaborator),
		auditor:       auditor,
	}
}

// Register adds c, replacing any collaborator for the same service.
func (d *Dispatcher) Register(c Collaborator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collaborators[c.Service()] = c
}

// Services returns the set of services with a collaborator.
func (d *Dispatcher) Services() intent.ServiceSet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set := make(intent.ServiceSet, len(d.collaborators))
	for s := range d.collaborators {
		set[s] = true
	}
	return set
}

func (d *Dispatcher) lookup(s intent.Service) (Collaborator, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.collaborators[s]
	return c, ok
}

// Dispatch runs a on its collaborator with the caller's session. A missing
// collaborator is reported as an unsuccessful outcome, not an error. Errors
// from the collaborator are wrapped with the action key and returned as is;
// the Dispatcher never retries.
func (d *Dispatcher) Dispatch(ctx context.Context, a intent.ActionRequest, sess *session.Session) (Outcome, error) {
	log := trace.Logger(ctx).With("action", a.Key())

	c, ok := d.lookup(a.Service)
	if !ok {
		log.Warn("no collaborator for service")
		d.audit(ctx, sess, a, "unavailable", "")
		return Failed(UnavailableMessage, a.Service.Title()), nil
	}

	var before string
	if sess.Pending != nil {
		before = sess.Pending.ID
	}

	params := a.Clone().Parameters
	log.Debug("dispatching", "params", redact.Params(params))
	out, err := c.HandleAction(ctx, a.Action, params, sess)
	if err != nil {
		log.Error("action failed", "err", err)
		d.audit(ctx, sess, a, "error", err.Error())
		return Outcome{}, fmt.Errorf("dispatch: %s: %w", a.Key(), err)
	}

	if p := sess.Pending; p != nil && p.ID != before {
		out.Awaiting = true
		if out.Message == "" {
			out.Message = p.Prompt
		}
		log.Debug("collaborator awaits input", "state", p.State(), "candidates", len(p.Candidates))
	}

	result := "failure"
	switch {
	case out.Awaiting:
		result = "awaiting"
	case out.Success:
		result = "success"
	}
	d.audit(ctx, sess, a, result, "")
	return out, nil
}

func (d *Dispatcher) audit(ctx context.Context, sess *session.Session, a intent.ActionRequest, result, errMsg string) {
	if d.auditor == nil {
		return
	}
	payload := make(map[string]any, len(a.Parameters))
	for k, v := range redact.Params(a.Parameters) {
		payload[k] = v
	}
	err := d.auditor.WriteAudit(context.WithoutCancel(ctx), trace.FromContext(ctx), sess.UserID,
		a.Key(), a.Param("id"), result, payload, redact.String(errMsg))
	if err != nil {
		slog.Warn("dispatch: audit write failed", "action", a.Key(), "err", err)
	}
}
