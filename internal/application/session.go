package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/IniZio/skygear-sdk-go/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// UserChangedFunc receives the new current user, or nil after logout or
// invalidation.
type UserChangedFunc func(user *domain.Record)

// Session holds the access token and current user.
//
// Listener notification never blocks the mutating call. Every change is
// delivered on its own goroutine, chained behind the previous one so
// listeners observe changes in order and in registration order.
type Session struct {
	mu          sync.Mutex
	accessToken string
	currentUser *domain.Record
	listeners   []*Subscription
	nextID      uint64
	lastPass    chan struct{}

	// persistMu orders writes to persistence with the state they snapshot.
	persistMu   sync.Mutex
	log         logging.Logger
	persistence *SessionPersistence
	endpoint    func() string
}

// Subscription is the handle returned by OnUserChanged.
type Subscription struct {
	id       uint64
	fn       UserChangedFunc
	session  *Session
	canceled atomic.Bool
}

func newSession(log logging.Logger, persistence *SessionPersistence, endpoint func() string) *Session {
	return &Session{
		log:         log.With("component", "session"),
		persistence: persistence,
		endpoint:    endpoint,
	}
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Session) CurrentUser() *domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUser
}

func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// SetAccessToken may run before the user profile is known.
func (s *Session) SetAccessToken(ctx context.Context, token string) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.accessToken = token
	state := s.stateLocked()
	s.mu.Unlock()

	s.persist(ctx, state)
}

func (s *Session) SetUser(ctx context.Context, user *domain.Record) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.currentUser = user
	state := s.stateLocked()
	s.notifyLocked(user)
	s.mu.Unlock()

	s.persist(ctx, state)
}

// Invalidate clears token and user together.
func (s *Session) Invalidate(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	hadUser := s.currentUser != nil
	s.accessToken = ""
	s.currentUser = nil
	if hadUser {
		s.notifyLocked(nil)
	}
	s.mu.Unlock()

	if s.persistence == nil {
		return
	}
	if err := s.persistence.Clear(ctx, s.endpoint()); err != nil {
		s.log.Warn(ctx, "clear persisted session", "err", err)
	}
}

func (s *Session) OnUserChanged(fn UserChangedFunc) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &Subscription{id: s.nextID, fn: fn, session: s}
	s.listeners = append(s.listeners, sub)
	return sub
}

// Cancel deregisters the listener. Calling it again, or after the listener
// fired, is a no-op.
func (sub *Subscription) Cancel() {
	if sub == nil || sub.canceled.Swap(true) {
		return
	}
	sub.session.removeListener(sub.id)
}

// WaitListeners blocks until every notification queued so far was delivered.
func (s *Session) WaitListeners(ctx context.Context) error {
	s.mu.Lock()
	last := s.lastPass
	s.mu.Unlock()

	if last == nil {
		return nil
	}
	select {
	case <-last:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TokenExpiry reads the exp claim of a JWT-shaped token without verifying
// it. Opaque tokens report false.
func (s *Session) TokenExpiry() (time.Time, bool) {
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// restore installs a persisted state without writing it back.
func (s *Session) restore(state domain.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = state.AccessToken
	s.currentUser = state.User
	if state.User != nil {
		s.notifyLocked(state.User)
	}
}

func (s *Session) stateLocked() domain.SessionState {
	return domain.SessionState{
		Endpoint:    s.endpoint(),
		AccessToken: s.accessToken,
		User:        s.currentUser,
	}
}

func (s *Session) removeListener(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]*Subscription, 0, len(s.listeners))
	for _, sub := range s.listeners {
		if sub.id != id {
			kept = append(kept, sub)
		}
	}
	s.listeners = kept
}

// notifyLocked snapshots the listener list, so registrations and
// cancellations made by a listener do not disturb the pass in progress.
func (s *Session) notifyLocked(user *domain.Record) {
	if len(s.listeners) == 0 {
		return
	}

	listeners := append([]*Subscription(nil), s.listeners...)
	previous := s.lastPass
	done := make(chan struct{})
	s.lastPass = done

	go func() {
		defer close(done)
		if previous != nil {
			<-previous
		}
		for _, sub := range listeners {
			if sub.canceled.Load() {
				continue
			}
			s.invoke(sub, user)
		}
	}()
}

func (s *Session) invoke(sub *Subscription, user *domain.Record) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(context.Background(), "user changed listener panicked", "listener", sub.id, "panic", fmt.Sprint(r))
		}
	}()
	sub.fn(user)
}

func (s *Session) persist(ctx context.Context, state domain.SessionState) {
	if s.persistence == nil {
		return
	}
	if err := s.persistence.Save(ctx, state); err != nil {
		s.log.Warn(ctx, "persist session", "err", err)
	}
}
