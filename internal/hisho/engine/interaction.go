package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bdobrica/Hisho/common/trace"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/session"
)

// resume feeds a reply to the pending interaction. Only an explicit cancel,
// a successful resolution or an expired interaction clears it; any other
// reply repeats the prompt and leaves it unchanged.
func (e *Engine) resume(ctx context.Context, sess *session.Session, p *session.PendingInteraction, text string) string {
	log := trace.Logger(ctx).With("service", p.Service, "kind", p.Kind)

	if e.cfg.PendingTTL > 0 && e.cfg.Now().Sub(p.CreatedAt) > e.cfg.PendingTTL {
		log.Debug("pending interaction expired")
		sess.Clear()
		sess.ClearResults(p.Service)
		return ExpiredMessage
	}

	switch p.Kind {
	case session.SelectFromList:
		return e.resumeSelection(ctx, sess, p, text)
	case session.ConfirmYesNo:
		return e.resumeConfirmation(ctx, sess, p, text)
	case session.FreeformInput:
		return e.resumeFreeform(ctx, sess, p, text)
	default:
		log.Error("pending interaction of unknown kind")
		sess.Clear()
		return FailureMessage
	}
}

func (e *Engine) resumeSelection(ctx context.Context, sess *session.Session, p *session.PendingInteraction, text string) string {
	if mentionsCancel(text) {
		sess.Clear()
		return CancelledMessage
	}

	backing, ok := sess.Results(p.Service)
	if !ok || len(backing) == 0 {
		sess.Clear()
		return ExpiredMessage
	}

	n := len(p.Candidates)
	idx, ok := resolveIndex(text, n, e.cfg.SingleCandidateAffirm)
	if !ok || idx < 1 || idx > n {
		return e.selectionReprompt(n)
	}

	chosen := p.Candidates[idx-1]
	if !slices.ContainsFunc(backing, func(c session.Candidate) bool { return c.ID == chosen.ID }) {
		// The list the user picked from is no longer the one on record.
		sess.Clear()
		sess.ClearResults(p.Service)
		return ExpiredMessage
	}

	sess.Clear()
	sess.ClearResults(p.Service)
	trace.Logger(ctx).Debug("candidate selected", "index", idx, "id", chosen.ID)
	return e.dispatchOne(ctx, sess, p.Request("id", chosen.ID))
}

func (e *Engine) selectionReprompt(n int) string {
	var b strings.Builder
	b.WriteString("❗ **Please choose:**\n")
	if n == 1 && e.cfg.SingleCandidateAffirm {
		b.WriteString("• Type 'yes' or '1' to confirm\n")
	} else {
		fmt.Fprintf(&b, "• Type a number (1-%d)\n", n)
	}
	b.WriteString("• Or type 'cancel' to stop")
	return b.String()
}

func (e *Engine) resumeConfirmation(ctx context.Context, sess *session.Session, p *session.PendingInteraction, text string) string {
	switch readConfirmation(text) {
	case confirmYes:
		sess.Clear()
		return e.dispatchOne(ctx, sess, p.Request("confirmed", "true"))
	case confirmNo:
		sess.Clear()
		return CancelledMessage
	default:
		if isCancel(text) {
			sess.Clear()
			return CancelledMessage
		}
		prompt := p.Prompt
		if prompt != "" {
			prompt += "\n\n"
		}
		return prompt + "Please reply **yes** to proceed or **no** to cancel."
	}
}

func (e *Engine) resumeFreeform(ctx context.Context, sess *session.Session, p *session.PendingInteraction, text string) string {
	if isCancel(text) {
		sess.Clear()
		return CancelledMessage
	}
	sess.Clear()

	if p.Action == session.ActionUnknown {
		enabled := intent.ServiceSet{}
		if e.cfg.Enabled.Has(p.Service) {
			enabled[p.Service] = true
		}
		return e.resolve(ctx, sess, text, "", enabled, p.Params)
	}
	return e.dispatchOne(ctx, sess, p.Request(p.Field, text))
}
