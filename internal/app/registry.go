package app

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// ClientID is the browser client token a session is bound to.
type ClientID string

// Registry holds one Session per browser client.
type Registry struct {
	mu       sync.RWMutex
	sessions map[ClientID]*Session
	opts     Options
	clock    clock.Clock
	idleTTL  time.Duration
}

// NewRegistry returns an empty registry. New sessions are built from opts;
// a nil opts.Rand gives every session its own source.
// idleTTL of zero disables reaping.
func NewRegistry(opts Options, idleTTL time.Duration) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Registry{
		sessions: make(map[ClientID]*Session),
		opts:     opts,
		clock:    opts.Clock,
		idleTTL:  idleTTL,
	}
}

func (r *Registry) GetOrCreate(cid ClientID) *Session {
	r.mu.RLock()
	s, ok := r.sessions[cid]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[cid]; ok {
		return s
	}
	s = NewSession(string(cid), r.opts)
	r.sessions[cid] = s
	sessionsActive.Inc()
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("created new session")
	return s
}

func (r *Registry) Get(cid ClientID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[cid]
	return s, ok
}

// Remove closes and forgets the session of cid.
func (r *Registry) Remove(cid ClientID) bool {
	r.mu.Lock()
	s, ok := r.sessions[cid]
	delete(r.sessions, cid)
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	sessionsActive.Dec()
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("removed session")
	return true
}

// ReapIdle closes every session idle for longer than the registry TTL and
// returns how many were closed.
func (r *Registry) ReapIdle() int {
	if r.idleTTL <= 0 {
		return 0
	}
	now := r.clock.Now()

	r.mu.RLock()
	idle := make([]ClientID, 0)
	for cid, s := range r.sessions {
		if s.Idle(now, r.idleTTL) {
			idle = append(idle, cid)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, cid := range idle {
		if r.Remove(cid) {
			n++
		}
	}
	if n > 0 {
		sessionsReaped.Add(float64(n))
		log.Info().Str("module", "app.registry").Int("count", n).Msg("reaped idle sessions")
	}
	return n
}

// CloseAll closes every session. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[ClientID]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
		sessionsActive.Dec()
	}
	log.Info().Str("module", "app.registry").Int("count", len(all)).Msg("closed all sessions")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
