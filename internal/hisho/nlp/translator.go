package nlp

import (
	"context"
	"fmt"
	"time"

	"github.com/bdobrica/Hisho/common/trace"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
)

// TranslatorConfig holds the Translator's collaborators and limits.
type TranslatorConfig struct {
	Model Model
	// Limiter is optional. When set, a user over quota gets ErrRateLimited
	// without a model call.
	Limiter *RateLimiter
	// Timeout bounds one model call. Defaults to 30 s.
	Timeout time.Duration
	// Location is the zone the prompt's current time is rendered in.
	Location *time.Location
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Translator turns an utterance into actions through the model.
type Translator struct {
	cfg TranslatorConfig
}

// NewTranslator creates a Translator. A nil Model behaves like NoModel.
func NewTranslator(cfg TranslatorConfig) *Translator {
	if cfg.Model == nil {
		cfg.Model = NoModel{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Translator{cfg: cfg}
}

// ModelName reports the configured backend.
func (t *Translator) ModelName() string { return t.cfg.Model.Name() }

// Request is one translation.
type Request struct {
	UserID    string
	Utterance string
	// History is the rendered recent conversation, or "".
	History string
	Enabled intent.ServiceSet
}

// Translate asks the model for the actions behind req.Utterance. Every
// failure, including a reply with neither text nor usable tags, is returned
// wrapping ErrUnavailable; the caller should then use intent.Fallback.
func (t *Translator) Translate(ctx context.Context, req Request) (intent.TranslationResult, error) {
	log := trace.Logger(ctx)

	if t.cfg.Limiter != nil && !t.cfg.Limiter.Allow(req.UserID) {
		log.Warn("translator rate limit hit", "user", req.UserID)
		return intent.TranslationResult{}, ErrRateLimited
	}

	prompt := RenderPrompt(PromptInput{
		Now:       t.cfg.Now().In(t.cfg.Location),
		Enabled:   req.Enabled,
		History:   req.History,
		Utterance: req.Utterance,
	})

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	started := time.Now()
	reply, err := t.cfg.Model.Complete(ctx, prompt)
	if err != nil {
		log.Warn("model call failed", "model", t.cfg.Model.Name(), "err", err)
		return intent.TranslationResult{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	result, dropped := intent.ParseReply(reply, req.Enabled)
	for _, d := range dropped {
		log.Warn("dropped action tag", "tag", d.Raw, "reason", d.Reason)
	}
	if result.Text == "" && len(result.Actions) == 0 {
		log.Warn("model reply had nothing usable", "model", t.cfg.Model.Name(), "dropped", len(dropped))
		return intent.TranslationResult{}, fmt.Errorf("%w: %w", ErrUnavailable, ErrEmptyReply)
	}

	log.Debug("translated",
		"model", t.cfg.Model.Name(),
		"actions", len(result.Actions),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}
