package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockroom/internal/domain/models"
)

type fakeAuth struct {
	mu       sync.Mutex
	listener func(*models.Session)

	current      *models.Session
	getErr       error
	signInErr    error
	signOutErr   error
	signUpResult *models.Session
	// pushOnSignIn mimics collaborators that notify subscribers before the
	// sign-in call returns.
	pushOnSignIn bool
	// block, when set, holds SignIn until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeAuth) OnSessionChange(fn func(*models.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listener = nil
	}
}

func (f *fakeAuth) push(s *models.Session) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (f *fakeAuth) GetSession(context.Context) (*models.Session, error) {
	return f.current, f.getErr
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*models.Session, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	s := userSession("u-"+email, email)
	if f.pushOnSignIn {
		f.push(s)
	}
	return s, nil
}

func (f *fakeAuth) SignUp(context.Context, string, string) (*models.Session, error) {
	return f.signUpResult, nil
}

func (f *fakeAuth) SignOut(context.Context) error {
	return f.signOutErr
}

func userSession(id, email string) *models.Session {
	return &models.Session{
		User:        models.User{ID: id, Email: email},
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) listen(s State, _ *models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) seen() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestGateStartsLoading(t *testing.T) {
	gate := NewGate(&fakeAuth{}, nil)
	assert.Equal(t, StateLoading, gate.State())
	assert.False(t, gate.Authenticated())
	_, ok := gate.UserID()
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	t.Run("existing session", func(t *testing.T) {
		gate := NewGate(&fakeAuth{current: userSession("u1", "a@example.com")}, nil)
		require.NoError(t, gate.Resolve(context.Background()))
		assert.Equal(t, StateAuthenticated, gate.State())
		id, ok := gate.UserID()
		assert.True(t, ok)
		assert.Equal(t, "u1", id)
	})

	t.Run("no session", func(t *testing.T) {
		gate := NewGate(&fakeAuth{}, nil)
		require.NoError(t, gate.Resolve(context.Background()))
		assert.Equal(t, StateUnauthenticated, gate.State())
	})

	t.Run("failed check", func(t *testing.T) {
		gate := NewGate(&fakeAuth{getErr: errors.New("offline")}, nil)
		assert.Error(t, gate.Resolve(context.Background()))
		assert.Equal(t, StateUnauthenticated, gate.State())
	})
}

func TestSignInFailureKeepsUnauthenticated(t *testing.T) {
	gate := NewGate(&fakeAuth{signInErr: errors.New("bad password")}, nil)
	require.NoError(t, gate.Resolve(context.Background()))

	_, err := gate.SignIn(context.Background(), "a@example.com", "x")
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, StateUnauthenticated, gate.State())
}

func TestSignInWithSynchronousPush(t *testing.T) {
	auth := &fakeAuth{pushOnSignIn: true}
	gate := NewGate(auth, nil)
	rec := &recorder{}
	gate.OnChange(rec.listen)
	require.NoError(t, gate.Resolve(context.Background()))

	session, err := gate.SignIn(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u-a@example.com", session.User.ID)
	assert.Equal(t, StateAuthenticated, gate.State())
	assert.Equal(t, []State{StateUnauthenticated, StateAuthenticated}, rec.seen())
}

func TestPushSupersedesInFlightSignIn(t *testing.T) {
	auth := &fakeAuth{block: make(chan struct{}), entered: make(chan struct{})}
	gate := NewGate(auth, nil)
	require.NoError(t, gate.Resolve(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := gate.SignIn(context.Background(), "a@example.com", "pw")
		done <- err
	}()

	<-auth.entered
	auth.push(nil)
	close(auth.block)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, StateUnauthenticated, gate.State())
}

func TestPushedInvalidationSignsOut(t *testing.T) {
	auth := &fakeAuth{current: userSession("u1", "a@example.com")}
	gate := NewGate(auth, nil)
	rec := &recorder{}
	gate.OnChange(rec.listen)
	require.NoError(t, gate.Resolve(context.Background()))

	auth.push(userSession("u1", "a@example.com"))
	auth.push(nil)

	assert.Equal(t, StateUnauthenticated, gate.State())
	assert.Nil(t, gate.Session())
	assert.Equal(t, []State{StateAuthenticated, StateUnauthenticated}, rec.seen())
}

func TestPushedUserSwitchNotifies(t *testing.T) {
	auth := &fakeAuth{current: userSession("u1", "a@example.com")}
	gate := NewGate(auth, nil)
	rec := &recorder{}
	gate.OnChange(rec.listen)
	require.NoError(t, gate.Resolve(context.Background()))

	auth.push(userSession("u2", "b@example.com"))

	id, _ := gate.UserID()
	assert.Equal(t, "u2", id)
	assert.Equal(t, []State{StateAuthenticated, StateAuthenticated}, rec.seen())
}

func TestSignUpAwaitingConfirmation(t *testing.T) {
	gate := NewGate(&fakeAuth{}, nil)
	require.NoError(t, gate.Resolve(context.Background()))

	session, err := gate.SignUp(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Equal(t, StateUnauthenticated, gate.State())
}

func TestSignUpSignsIn(t *testing.T) {
	gate := NewGate(&fakeAuth{signUpResult: userSession("u9", "n@example.com")}, nil)
	require.NoError(t, gate.Resolve(context.Background()))

	session, err := gate.SignUp(context.Background(), "n@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, StateAuthenticated, gate.State())
}

func TestSignOutAlwaysUnauthenticates(t *testing.T) {
	auth := &fakeAuth{current: userSession("u1", "a@example.com"), signOutErr: errors.New("timeout")}
	gate := NewGate(auth, nil)
	require.NoError(t, gate.Resolve(context.Background()))

	assert.Error(t, gate.SignOut(context.Background()))
	assert.Equal(t, StateUnauthenticated, gate.State())
}

func TestCloseStopsFollowingPushes(t *testing.T) {
	auth := &fakeAuth{}
	gate := NewGate(auth, nil)
	gate.Close()

	auth.push(userSession("u1", "a@example.com"))
	assert.Equal(t, StateLoading, gate.State())
}
