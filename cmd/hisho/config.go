package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bdobrica/Hisho/common/environment"
	"github.com/bdobrica/Hisho/internal/hisho/app"
	"github.com/bdobrica/Hisho/internal/hisho/httpapi"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/matrix"
	"github.com/bdobrica/Hisho/internal/hisho/nlp"
	"github.com/bdobrica/Hisho/internal/hisho/prefs"
	"github.com/bdobrica/Hisho/internal/hisho/session"
)

// settings is the validated environment.
type settings struct {
	app      app.Config
	provider string
	gemini   nlp.GeminiConfig
	openai   nlp.OpenAIConfig
}

// loadSettings reads the whole configuration and reports every problem at
// once.
func loadSettings(r *environment.Reader) (*settings, error) {
	s := &settings{}
	loc := r.Location("DEFAULT_TIMEZONE", time.UTC)

	enabled := intent.ServiceSet{}
	for _, svc := range intent.AllServices {
		if r.Bool("ENABLE_"+strings.ToUpper(string(svc)), true) {
			enabled[svc] = true
		}
	}

	prefDefaults := map[string]string{
		prefs.KeyTimezone:   loc.String(),
		prefs.KeyCalendar:   r.String("DEFAULT_CALENDAR", ""),
		prefs.KeyEmailCount: strconv.Itoa(r.Int("DEFAULT_EMAIL_COUNT", 10)),
	}
	for k, v := range prefDefaults {
		if v == "" {
			continue
		}
		if err := prefs.Validate(k, v); err != nil {
			return nil, fmt.Errorf("default %s: %w", k, err)
		}
	}

	s.app = app.Config{
		DatabasePath:           r.String("DATABASE_PATH", "./hisho.db"),
		Location:               loc,
		Enabled:                enabled,
		RequestsPerMinute:      r.Int("MAX_REQUESTS_PER_MINUTE", nlp.DefaultRateLimit),
		ModelTimeout:           r.Duration("MODEL_TIMEOUT", 20*time.Second),
		RequestTimeout:         r.Duration("REQUEST_TIMEOUT", 30*time.Second),
		PendingTTL:             r.Duration("PENDING_TTL", 30*time.Minute),
		HistoryLimit:           r.Int("HISTORY_LIMIT", session.DefaultHistoryLimit),
		ContextTurns:           r.Int("HISTORY_CONTEXT_TURNS", session.DefaultContextTurns),
		Truncate:               r.Int("HISTORY_TRUNCATE", session.DefaultTruncate),
		BareQuestionShowsToday: r.Bool("POLICY_BARE_QUESTION_TODAY", true),
		SingleCandidateAffirm:  r.Bool("POLICY_SINGLE_CANDIDATE_AFFIRM", true),
		PrefDefaults:           prefDefaults,
	}

	if hs := r.String("MATRIX_HOMESERVER", ""); hs != "" {
		s.app.Matrix = &matrix.Config{
			Homeserver:  hs,
			UserID:      r.Required("MATRIX_USER_ID"),
			AccessToken: r.Required("MATRIX_ACCESS_TOKEN"),
			Rooms:       r.List("MATRIX_ROOMS", nil),
		}
	}
	if addr := r.String("HTTP_ADDR", ""); addr != "" {
		s.app.HTTP = &httpapi.Config{Addr: addr, JWTSecret: r.String("HTTP_JWT_SECRET", "")}
	}

	s.provider = r.OneOf("NLP_PROVIDER", "gemini", "gemini", "openai", "none")
	switch s.provider {
	case "gemini":
		s.gemini = nlp.GeminiConfig{
			APIKey: r.Required("GEMINI_API_KEY"),
			Model:  r.String("GEMINI_MODEL", ""),
		}
	case "openai":
		s.openai = nlp.OpenAIConfig{
			APIKey:  r.Required("OPENAI_API_KEY"),
			BaseURL: r.String("OPENAI_BASE_URL", ""),
			Model:   r.String("OPENAI_MODEL", ""),
			Timeout: s.app.ModelTimeout,
		}
	}

	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// model builds the configured language model.
func (s *settings) model(ctx context.Context) (nlp.Model, error) {
	switch s.provider {
	case "gemini":
		return nlp.NewGemini(ctx, s.gemini)
	case "openai":
		return nlp.NewOpenAI(s.openai), nil
	default:
		slog.Warn("no language model configured; using keyword matching only")
		return nlp.NoModel{}, nil
	}
}

// newApp loads the settings and builds the application.
func newApp(ctx context.Context) (*app.App, *settings, error) {
	s, err := loadSettings(environment.NewReader())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	m, err := s.model(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.app.Model = m
	a, err := app.New(s.app)
	if err != nil {
		return nil, nil, err
	}
	return a, s, nil
}

// seedSettings is the subset of the environment the seed command needs. It
// does not require model credentials.
type seedSettings struct {
	path string
	loc  *time.Location
}

func loadSettingsForSeed() (*seedSettings, error) {
	r := environment.NewReader()
	s := &seedSettings{
		path: r.String("DATABASE_PATH", "./hisho.db"),
		loc:  r.Location("DEFAULT_TIMEZONE", time.UTC),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
