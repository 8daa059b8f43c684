// Package app wires the store, the engine, the collaborators and the
// transports into a running Hisho.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bdobrica/Hisho/common/trace"
	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/engine"
	"github.com/bdobrica/Hisho/internal/hisho/httpapi"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/matrix"
	"github.com/bdobrica/Hisho/internal/hisho/nlp"
	"github.com/bdobrica/Hisho/internal/hisho/prefs"
	"github.com/bdobrica/Hisho/internal/hisho/services/calendar"
	"github.com/bdobrica/Hisho/internal/hisho/services/contacts"
	"github.com/bdobrica/Hisho/internal/hisho/services/drive"
	"github.com/bdobrica/Hisho/internal/hisho/services/mail"
	"github.com/bdobrica/Hisho/internal/hisho/services/tasks"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/store"
	"github.com/bdobrica/Hisho/internal/hisho/workspace"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	// Location is the default zone for dates. Users override it with the
	// timezone preference.
	Location *time.Location
	Enabled  intent.ServiceSet

	Model             nlp.Model
	RequestsPerMinute int
	ModelTimeout      time.Duration

	RequestTimeout time.Duration
	PendingTTL     time.Duration
	HistoryLimit   int
	ContextTurns   int
	Truncate       int

	BareQuestionShowsToday bool
	SingleCandidateAffirm  bool

	// PrefDefaults are the preference values for users who set none.
	PrefDefaults map[string]string

	// Matrix is nil when the Matrix transport is disabled.
	Matrix *matrix.Config
	// HTTP is nil when the HTTP API is disabled.
	HTTP *httpapi.Config
}

// App is a wired Hisho instance.
type App struct {
	cfg       Config
	store     *store.Store
	workspace *workspace.Workspace
	engine    *engine.Engine
}

// New opens the database and builds the engine. Transports start in Run.
func New(cfg Config) (*App, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	ws := workspace.New(db)

	d := dispatch.New(db)
	for _, c := range collaborators(ws, cfg.Location) {
		if cfg.Enabled.Has(c.Service()) {
			d.Register(c)
		}
	}

	model := cfg.Model
	if model == nil {
		model = nlp.NoModel{}
	}
	e := engine.New(engine.Config{
		Enabled:               cfg.Enabled,
		Timeout:               cfg.RequestTimeout,
		PendingTTL:            cfg.PendingTTL,
		ContextTurns:          cfg.ContextTurns,
		Truncate:              cfg.Truncate,
		SingleCandidateAffirm: cfg.SingleCandidateAffirm,
	}, engine.Deps{
		Sessions: session.NewStore(session.Config{HistoryLimit: cfg.HistoryLimit, Backend: db}),
		Matcher:  intent.NewMatcher(intent.MatcherOptions{BareQuestionShowsToday: cfg.BareQuestionShowsToday}),
		Translator: nlp.NewTranslator(nlp.TranslatorConfig{
			Model:    model,
			Limiter:  nlp.NewRateLimiter(cfg.RequestsPerMinute, time.Minute),
			Timeout:  cfg.ModelTimeout,
			Location: cfg.Location,
		}),
		Dispatcher: d,
		Prefs:      prefs.New(db, cfg.PrefDefaults),
	})

	slog.Info("hisho configured",
		"services", cfg.Enabled.List(),
		"model", model.Name(),
		"matrix", cfg.Matrix != nil,
		"http", cfg.HTTP != nil,
	)
	return &App{cfg: cfg, store: db, workspace: ws, engine: e}, nil
}

func collaborators(ws *workspace.Workspace, loc *time.Location) []dispatch.Collaborator {
	return []dispatch.Collaborator{
		calendar.New(ws, loc),
		mail.New(ws),
		contacts.New(ws),
		drive.New(ws),
		tasks.New(ws, loc),
	}
}

// Engine returns the conversational engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Workspace returns the productivity data store.
func (a *App) Workspace() *workspace.Workspace { return a.workspace }

// Close releases the database.
func (a *App) Close() error {
	return a.store.Close()
}

// Run starts the configured transports and blocks until ctx ends or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Matrix == nil && a.cfg.HTTP == nil {
		return errors.New("app: no transport configured; set MATRIX_HOMESERVER or HTTP_ADDR")
	}
	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.HTTP != nil {
		srv := httpapi.New(*a.cfg.HTTP, a.engine)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if a.cfg.Matrix != nil {
		mcfg := *a.cfg.Matrix
		mcfg.State = a.store
		client, err := matrix.New(mcfg)
		if err != nil {
			return err
		}
		g.Go(func() error {
			// Replies finish even after shutdown begins.
			in := newInbox(func(msg matrix.Message) {
				a.answer(context.WithoutCancel(ctx), client, msg)
			})
			err := client.Run(ctx, func(_ context.Context, msg matrix.Message) {
				in.Push(msg)
			})
			in.Wait()
			return err
		})
	}

	slog.Info("hisho is running")
	if err := g.Wait(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	slog.Info("hisho stopped")
	return nil
}

// replier is the part of the Matrix client answer needs.
type replier interface {
	SendFormatted(ctx context.Context, roomID, html, plain string) error
	SetTyping(ctx context.Context, roomID string, typing bool)
}

// answer runs one Matrix message through the engine and posts the reply.
// Each Matrix user is one Hisho user, whichever room they write in.
func (a *App) answer(ctx context.Context, r replier, msg matrix.Message) {
	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	log := trace.Logger(ctx).With("room", msg.RoomID, "sender", msg.Sender)

	r.SetTyping(ctx, msg.RoomID, true)
	defer r.SetTyping(ctx, msg.RoomID, false)

	reply, err := a.engine.Handle(ctx, msg.Sender, msg.Body)
	if err != nil {
		log.Error("message rejected", "err", err)
		return
	}
	if err := r.SendFormatted(ctx, msg.RoomID, MarkdownToHTML(reply.Text), reply.Text); err != nil {
		log.Error("reply not delivered", "err", err)
	}
}
