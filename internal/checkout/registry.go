package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/travelbook/internal/catalog"
)

var ErrSessionNotFound = errors.New("checkout session not found")

const (
	DefaultIdleTTL     = 30 * time.Minute
	DefaultMaxSessions = 10000
)

// RegistryConfig bounds how many sessions a Registry keeps and for how long.
// A zero IdleTTL or MaxSessions disables that bound.
type RegistryConfig struct {
	IdleTTL     time.Duration
	MaxSessions int
	Log         *slog.Logger
}

// Registry tracks live sessions by id for a long running process. Sessions
// nobody has looked up for IdleTTL are closed by Sweep, and creating a
// session past MaxSessions closes the least recently used one.
type Registry struct {
	base context.Context
	opts []Option
	cfg  RegistryConfig
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates sessions parented on base with opts applied to each.
func NewRegistry(base context.Context, cfg RegistryConfig, opts ...Option) *Registry {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Registry{
		base:     base,
		opts:     opts,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Create(item catalog.Item, opts ...Option) *Session {
	all := append(append([]Option(nil), r.opts...), opts...)
	s := NewSession(r.base, item, all...)
	s.touch(r.now())

	var evicted []*Session
	r.mu.Lock()
	for r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		evicted = append(evicted, r.removeOldestLocked())
	}
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.closeAll(evicted, "checkout session limit reached")
	return s
}

// Get returns the session and marks it active.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Close tears down and forgets the session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes every session idle for longer than IdleTTL and reports how
// many were closed.
func (r *Registry) Sweep() int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	var idle []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	r.closeAll(idle, "idle checkout session closed")
	return len(idle)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.cfg.Log.Info("swept checkout sessions", "closed", n, "live", r.Len())
			}
		}
	}
}

// CloseAll tears down every session, e.g. on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

func (r *Registry) removeOldestLocked() *Session {
	var oldest *Session
	for _, s := range r.sessions {
		if oldest == nil || s.idleSince().Before(oldest.idleSince()) {
			oldest = s
		}
	}
	delete(r.sessions, oldest.ID())
	return oldest
}

func (r *Registry) closeAll(sessions []*Session, msg string) {
	for _, s := range sessions {
		s.Close()
		r.cfg.Log.Debug(msg, "session_id", s.ID())
	}
}
