package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// HistoryBackend persists conversation history across restarts.
type HistoryBackend interface {
	LoadHistory(ctx context.Context, userID string, limit int) ([]Message, error)
	AppendHistory(ctx context.Context, userID string, msgs []Message, keep int) error
	ClearHistory(ctx context.Context, userID string) error
}

// Config holds Store settings.
type Config struct {
	// HistoryLimit bounds each session's history. Default: 10.
	HistoryLimit int
	// Backend, when set, loads history on first use and receives appends.
	Backend HistoryBackend
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Store owns every Session. Access for one user is serialized; different
// users proceed in parallel. It is safe for concurrent use.
type Store struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry
}

// entry guards one user's session. lock is a one-slot semaphore so that
// acquisition can give up when the caller's context ends.
type entry struct {
	lock   chan struct{}
	sess   *Session
	loaded bool
}

// NewStore creates an empty Store.
func NewStore(cfg Config) *Store {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{cfg: cfg, entries: make(map[string]*entry)}
}

func (s *Store) entry(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry{
			lock: make(chan struct{}, 1),
			sess: newSession(userID, s.cfg.HistoryLimit, s.cfg.Now),
		}
		s.entries[userID] = e
	}
	return e
}

// With runs fn with exclusive access to userID's session. It waits for any
// other call for the same user to finish, or returns ctx.Err() if ctx ends
// first. History changes made by fn are written to the backend afterwards,
// even when fn returns an error.
func (s *Store) With(ctx context.Context, userID string, fn func(*Session) error) error {
	if userID == "" {
		return fmt.Errorf("session: empty user id")
	}
	e := s.entry(userID)
	select {
	case e.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.lock }()

	if !e.loaded {
		s.load(ctx, e)
	}
	defer s.flush(ctx, e.sess)
	return fn(e.sess)
}

func (s *Store) load(ctx context.Context, e *entry) {
	e.loaded = true
	if s.cfg.Backend == nil {
		return
	}
	msgs, err := s.cfg.Backend.LoadHistory(ctx, e.sess.UserID, s.cfg.HistoryLimit)
	if err != nil {
		slog.Warn("session: history load failed", "user", e.sess.UserID, "err", err)
		return
	}
	e.sess.History = msgs
}

// flush writes pending history changes. It runs after the deadline of a
// timed-out message too, so it detaches from ctx cancellation.
func (s *Store) flush(ctx context.Context, sess *Session) {
	cleared, appended := sess.historyCleared, sess.appended
	sess.historyCleared, sess.appended = false, nil
	if s.cfg.Backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if cleared {
		if err := s.cfg.Backend.ClearHistory(ctx, sess.UserID); err != nil {
			slog.Warn("session: history clear failed", "user", sess.UserID, "err", err)
		}
	}
	if len(appended) > 0 {
		if err := s.cfg.Backend.AppendHistory(ctx, sess.UserID, appended, s.cfg.HistoryLimit); err != nil {
			slog.Warn("session: history append failed", "user", sess.UserID, "err", err)
		}
	}
}

// Len returns the number of sessions the store has seen.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
