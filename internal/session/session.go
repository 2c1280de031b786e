package session

import (
	"sync"
	"time"

	"chatamata-client/internal/models"
)

// Session is the authenticated identity plus the tokens the gateway issued
// for it.
type Session struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	User         models.Profile `json:"user"`
}

// Store holds the current session and notifies subscribers when it changes.
// It replaces the ambient auth singleton of the original client with an
// explicitly constructed object passed down the call graph.
type Store struct {
	mu        sync.RWMutex
	session   *Session
	listeners []func(*Session)
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the current session (nil on sign-out) and notifies listeners.
func (s *Store) Set(sess *Session) {
	s.mu.Lock()
	s.session = sess
	listeners := make([]func(*Session), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(sess)
	}
}

// Current returns the active session, or nil when signed out.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// AccessToken implements the gateway token source. Empty when signed out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.AccessToken
}

// UserID returns the authenticated identity id, or "" when signed out.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.User.ID
}

// OnChange registers a listener invoked on every session transition.
func (s *Store) OnChange(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
