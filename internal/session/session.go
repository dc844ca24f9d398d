// Package session holds the signed-in user and token.
//
// A Session is created once per process and passed to every component that
// needs the current user: the API client (bearer token), the repositories
// (default refresh scope) and the alarm dispatcher (owner filter). Set is the
// only way to change it; readers either call Current or Subscribe for a
// stream of the latest state.
package session

import (
	"context"
	"sync"
	"time"
)

// State is the signed-in identity. The zero State means signed out.
type State struct {
	UserID    string    `toml:"user_id"`
	Name      string    `toml:"name,omitempty"`
	Email     string    `toml:"email,omitempty"`
	Token     string    `toml:"token"`
	ExpiresAt time.Time `toml:"expires_at,omitempty"`
}

// SignedIn reports whether the state carries both a user and a token.
func (s State) SignedIn() bool {
	return s.UserID != "" && s.Token != ""
}

// Expired reports whether the token carries an expiry that has passed.
func (s State) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Equal reports whether s and o describe the same identity and token.
func (s State) Equal(o State) bool {
	return s.UserID == o.UserID && s.Name == o.Name && s.Email == o.Email &&
		s.Token == o.Token && s.ExpiresAt.Equal(o.ExpiresAt)
}

// Scope returns the user id as a refresh scope, or nil when signed out.
func (s State) Scope() *string {
	if s.UserID == "" {
		return nil
	}
	id := s.UserID
	return &id
}

// Session is the process-wide holder of State. It is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	state State
	subs  map[chan State]struct{}
}

// New creates a Session starting at initial.
func New(initial State) *Session {
	return &Session{
		state: initial,
		subs:  make(map[chan State]struct{}),
	}
}

// Current returns the current state.
func (s *Session) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the current bearer token. It makes a Session usable as an
// api.TokenSource.
func (s *Session) Token() string {
	return s.Current().Token
}

// UserID returns the current user id, or "" when signed out.
func (s *Session) UserID() string {
	return s.Current().UserID
}

// Set replaces the state and publishes it to subscribers.
func (s *Session) Set(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	for ch := range s.subs {
		offer(ch, state)
	}
}

// Clear signs out.
func (s *Session) Clear() {
	s.Set(State{})
}

// Subscribe returns a channel that first yields the current state and then
// every later state. A slow reader only sees the most recent state. The
// channel is closed when ctx is done.
func (s *Session) Subscribe(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.state
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// offer replaces any unread value in ch with state. Callers hold s.mu, and
// only publishers send, so the send after draining never blocks.
func offer(ch chan State, state State) {
	select {
	case <-ch:
	default:
	}
	ch <- state
}
