// Package nlp is the probabilistic half of intent resolution: it renders a
// capability-scoped prompt, calls a language model and parses the tagged reply
// into structured actions.
//
// Invariants:
//   - The prompt only ever describes enabled services.
//   - The model only proposes actions; nothing it says is executed without
//     going through the dispatcher and the collaborator's own validation.
//   - Any model failure is reported as ErrUnavailable so the caller can fall
//     back to keyword classification. Raw transport errors never reach users.
package nlp

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the model could not produce a usable reply.
	// Callers engage the fallback classifier.
	ErrUnavailable = errors.New("nlp: model unavailable")

	// ErrRateLimited means the user exceeded the per-user translator quota,
	// or the upstream API reported HTTP 429. It wraps ErrUnavailable.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrUnavailable)

	// ErrEmptyReply is returned by a Model whose reply has no text.
	ErrEmptyReply = errors.New("nlp: empty reply")
)

// Model is a text-completion backend.
type Model interface {
	// Complete sends prompt and returns the raw reply text.
	Complete(ctx context.Context, prompt string) (string, error)
	// Name identifies the backend in logs and /status.
	Name() string
}

// NoModel is the Model used when no provider is configured. Every call fails
// with ErrUnavailable.
type NoModel struct{}

func (NoModel) Complete(context.Context, string) (string, error) { return "", ErrUnavailable }

func (NoModel) Name() string { return "none" }
