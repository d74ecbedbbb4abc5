package studio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Registry tracks live sessions. Sessions share one resource store so that
// handles can be served without knowing the owning session.
type Registry struct {
	sender    Sender
	builder   Builder
	resources *ResourceStore
	logger    zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(sender Sender, builder Builder, resources *ResourceStore, logger zerolog.Logger) *Registry {
	if resources == nil {
		resources = NewResourceStore()
	}
	return &Registry{
		sender:    sender,
		builder:   builder,
		resources: resources,
		logger:    logger.With().Str("component", "sessions").Logger(),
		sessions:  make(map[string]*Session),
	}
}

func (r *Registry) Resources() *ResourceStore { return r.resources }

// Create starts a session with default selections.
func (r *Registry) Create() *Session {
	sess := NewSession(SessionOptions{
		ID:        uuid.NewString(),
		Sender:    r.sender,
		Builder:   r.builder,
		Resources: r.resources,
		Logger:    r.logger,
	})
	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()
	r.logger.Debug().Str("session_id", sess.ID()).Msg("session created")
	return sess
}

func (r *Registry) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Delete closes and forgets the session.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		sess.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions untouched for longer than idle. Sessions with a
// request in flight are kept.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().UTC().Add(-idle)
	var stale []*Session

	r.mu.Lock()
	for id, sess := range r.sessions {
		if sess.idleSince(cutoff) {
			stale = append(stale, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}
	if len(stale) > 0 {
		r.logger.Info().Int("count", len(stale)).Msg("idle sessions swept")
	}
	return len(stale)
}

// RunJanitor sweeps on every tick until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(idle)
		}
	}
}
