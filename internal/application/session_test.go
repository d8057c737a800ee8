package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/IniZio/skygear-sdk-go/internal/logging"
	"github.com/IniZio/skygear-sdk-go/internal/ports/mocks"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return newSession(logging.Discard(), nil, func() string { return testEndPoint })
}

type userLog struct {
	mu    sync.Mutex
	users []*domain.Record
}

func (l *userLog) add(user *domain.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users = append(l.users, user)
}

func (l *userLog) snapshot() []*domain.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*domain.Record(nil), l.users...)
}

func TestSessionNotifiesListenersOnUserChange(t *testing.T) {
	ctx := context.Background()
	s := newTestSession()

	var got userLog
	sub := s.OnUserChanged(got.add)
	defer sub.Cancel()

	user := domain.NewUser("user:id1")
	s.SetUser(ctx, user)
	require.NoError(t, s.WaitListeners(ctx))

	assert.Equal(t, []*domain.Record{user}, got.snapshot())
	assert.Same(t, user, s.CurrentUser())
}

func TestSessionCanceledListenerDoesNotFire(t *testing.T) {
	ctx := context.Background()
	s := newTestSession()

	var kept, canceled userLog
	keptSub := s.OnUserChanged(kept.add)
	defer keptSub.Cancel()
	canceledSub := s.OnUserChanged(canceled.add)
	canceledSub.Cancel()

	user := domain.NewUser("user:id1")
	s.SetUser(ctx, user)
	require.NoError(t, s.WaitListeners(ctx))

	assert.Equal(t, []*domain.Record{user}, kept.snapshot())
	assert.Empty(t, canceled.snapshot())
}

func TestSessionCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestSession()

	var got userLog
	sub := s.OnUserChanged(got.add)
	s.SetUser(ctx, domain.NewUser("user:id1"))
	require.NoError(t, s.WaitListeners(ctx))

	sub.Cancel()
	sub.Cancel()

	s.SetUser(ctx, domain.NewUser("user:id2"))
	require.NoError(t, s.WaitListeners(ctx))
	assert.Len(t, got.snapshot(), 1)

	var nilSub *Subscription
	assert.NotPanics(t, nilSub.Cancel)
}

func TestSessionListenerPanicDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	s := newTestSession()

	var got userLog
	s.OnUserChanged(func(*domain.Record) { panic("boom") })
	s.OnUserChanged(got.add)

	user := domain.NewUser("user:id1")
	assert.NotPanics(t, func() { s.SetUser(ctx, user) })
	require.NoError(t, s.WaitListeners(ctx))

	assert.Equal(t, []*domain.Record{user}, got.snapshot())
}

func TestSessionDeliversChangesInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestSession()

	var got userLog
	s.OnUserChanged(func(user *domain.Record) {
		time.Sleep(time.Millisecond)
		got.add(user)
	})

	users := []*domain.Record{domain.NewUser("a"), domain.NewUser("b"), domain.NewUser("c")}
	for _, user := range users {
		s.SetUser(ctx, user)
	}
	s.Invalidate(ctx)
	require.NoError(t, s.WaitListeners(ctx))

	assert.Equal(t, append(users, nil), got.snapshot())
}

func TestSessionSetUserDoesNotWaitForListeners(t *testing.T) {
	ctx := context.Background()
	s := newTestSession()

	release := make(chan struct{})
	s.OnUserChanged(func(*domain.Record) { <-release })

	done := make(chan struct{})
	go func() {
		s.SetUser(ctx, domain.NewUser("user:id1"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetUser blocked on a listener")
	}
	close(release)
	require.NoError(t, s.WaitListeners(ctx))
}

func TestSessionInvalidateClearsTokenAndUser(t *testing.T) {
	ctx := context.Background()
	s := newTestSession()
	s.SetAccessToken(ctx, "token-1")
	s.SetUser(ctx, domain.NewUser("user:id1"))

	s.Invalidate(ctx)

	assert.Equal(t, domain.SessionState{Endpoint: testEndPoint}, s.State())
}

func TestSessionInvalidateWaitsForInFlightSave(t *testing.T) {
	ctx := context.Background()
	profiles := mocks.NewMockSessionRepository(t)
	secrets := mocks.NewMockSecretStore(t)
	s := newSession(logging.Discard(), NewSessionPersistence(profiles, secrets, nil), func() string { return testEndPoint })

	var (
		mu     sync.Mutex
		events []string
	)
	record := func(event string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	}

	tokenRef := TokenSecretKey(testEndPoint)
	putStarted := make(chan struct{})
	releasePut := make(chan struct{})
	secrets.EXPECT().Put(mockAnyContext(), tokenRef, "token-1").Run(func(context.Context, string, string) {
		close(putStarted)
		<-releasePut
		record("put")
	}).Return(nil).Once()
	profiles.EXPECT().Save(mockAnyContext(), mockAnyContext()).Run(func(context.Context, domain.SessionProfile) {
		record("save")
	}).Return(nil).Once()
	secrets.EXPECT().Delete(mockAnyContext(), tokenRef).Run(func(context.Context, string) {
		record("delete")
	}).Return(nil).Once()
	profiles.EXPECT().Clear(mockAnyContext(), testEndPoint).Run(func(context.Context, string) {
		record("clear")
	}).Return(nil).Once()

	saved := make(chan struct{})
	go func() {
		defer close(saved)
		s.SetAccessToken(ctx, "token-1")
	}()
	<-putStarted

	invalidated := make(chan struct{})
	go func() {
		defer close(invalidated)
		s.Invalidate(ctx)
	}()

	select {
	case <-invalidated:
		t.Fatal("Invalidate cleared persistence while a save was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(releasePut)
	<-saved
	<-invalidated

	assert.Equal(t, []string{"put", "save", "delete", "clear"}, events)
	assert.Empty(t, s.AccessToken())
}

func TestSessionInvalidateWithoutUserDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	s := newTestSession()

	var got userLog
	s.OnUserChanged(got.add)
	s.SetAccessToken(ctx, "token-1")
	s.Invalidate(ctx)
	require.NoError(t, s.WaitListeners(ctx))

	assert.Empty(t, got.snapshot())
	assert.Empty(t, s.AccessToken())
}

func TestSessionTokenExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestSession()

	_, ok := s.TokenExpiry()
	assert.False(t, ok)

	s.SetAccessToken(ctx, "opaque-token")
	_, ok = s.TokenExpiry()
	assert.False(t, ok)

	expiresAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user:id1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	s.SetAccessToken(ctx, token)
	got, ok := s.TokenExpiry()
	require.True(t, ok)
	assert.True(t, expiresAt.Equal(got))
}
