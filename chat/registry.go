package chat

import (
	"log/slog"
	"sync"
	"time"
)

// Registry lifecycle constants.
const (
	defaultIdleTimeout   = 30 * time.Minute
	cleanupCheckInterval = 1 * time.Minute
)

// Registry owns one Session per session token. Sessions are created lazily,
// live for the duration of a dashboard or bot session and are evicted after
// an idle timeout. Eviction only drops the in-memory state; persisted
// conversations remain loadable through SelectExistingConversation.
type Registry struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger
	timeout  time.Duration
	done     chan struct{}
}

// NewRegistry creates a registry with the given idle timeout
// (defaultIdleTimeout if zero) and starts the cleanup loop.
func NewRegistry(logger *slog.Logger, timeout time.Duration) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultIdleTimeout
	}
	r := &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
		timeout:  timeout,
		done:     make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// GetOrCreate returns the session for a token, creating a fresh one on first
// use.
func (r *Registry) GetOrCreate(token string, creatorID int32) *Session {
	r.mu.RLock()
	sess, ok := r.sessions[token]
	r.mu.RUnlock()
	if ok {
		sess.Touch()
		return sess
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[token]; ok {
		sess.Touch()
		return sess
	}
	sess = NewSession(token, creatorID)
	r.sessions[token] = sess
	r.logger.Info("chat session created", "session_token", token, "creator_id", creatorID)
	return sess
}

// Get retrieves an existing session.
func (r *Registry) Get(token string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[token]
	return sess, ok
}

// Terminate drops a session from the registry.
func (r *Registry) Terminate(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[token]; ok {
		delete(r.sessions, token)
		r.logger.Info("chat session terminated", "session_token", token)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// cleanupLoop periodically evicts idle sessions.
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(cleanupCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.done:
			return
		}
	}
}

// evictIdle removes sessions idle longer than the timeout.
func (r *Registry) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for token, sess := range r.sessions {
		idle := now.Sub(sess.LastActive())
		if idle > r.timeout {
			delete(r.sessions, token)
			r.logger.Info("chat session idle timeout, evicting",
				"session_token", token,
				"idle_duration", idle,
			)
		}
	}
}

// Shutdown stops the cleanup loop and drops all sessions.
func (r *Registry) Shutdown() {
	close(r.done)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*Session)
}
