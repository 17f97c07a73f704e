// Package session tracks whether the process holds a signed-in user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
)

// State is the gate's view of the current session.
type State string

const (
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

var (
	// ErrAuthFailed wraps collaborator failures of sign-in and sign-up.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrSuperseded is returned when a pushed session change landed while a
	// local transition was in flight. The pushed state wins.
	ErrSuperseded = errors.New("session changed during transition")
)

// Authenticator is the auth side of the hosted backend.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*models.Session, error)
	OnSessionChange(fn func(*models.Session)) func()
}

// Listener observes state transitions.
type Listener func(state State, session *models.Session)

// Gate is the process-wide session state machine. It starts in
// StateLoading and leaves it once Resolve returns or a session is pushed.
type Gate struct {
	auth   Authenticator
	logger *zap.Logger

	mu           sync.RWMutex
	state        State
	session      *models.Session
	epoch        uint64
	listeners    map[int]Listener
	nextListener int

	unsubscribe func()
}

// NewGate subscribes to the authenticator's pushed session changes.
func NewGate(auth Authenticator, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{
		auth:      auth,
		logger:    logger,
		state:     StateLoading,
		listeners: make(map[int]Listener),
	}
	g.unsubscribe = auth.OnSessionChange(g.adoptPushed)
	return g
}

// Close stops following pushed session changes.
func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Session returns the current session, nil unless authenticated.
func (g *Gate) Session() *models.Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session
}

// UserID returns the signed-in user's id.
func (g *Gate) UserID() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != StateAuthenticated || g.session == nil {
		return "", false
	}
	return g.session.User.ID, true
}

// Authenticated reports whether data operations are allowed.
func (g *Gate) Authenticated() bool {
	return g.State() == StateAuthenticated
}

// OnChange registers fn for state transitions and user switches. The returned
// func unregisters it.
func (g *Gate) OnChange(fn Listener) func() {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextListener
	g.nextListener++
	g.listeners[id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

// Resolve performs the initial session check. A failed check leaves the gate
// unauthenticated.
func (g *Gate) Resolve(ctx context.Context) error {
	epoch := g.currentEpoch()
	session, err := g.auth.GetSession(ctx)
	if err != nil {
		g.logger.Warn("initial session check failed", zap.Error(err))
		g.transition(epoch, nil)
		return fmt.Errorf("resolve session: %w", err)
	}
	g.transition(epoch, session)
	return nil
}

// SignIn authenticates with credentials. On failure the state is unchanged.
func (g *Gate) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	epoch := g.currentEpoch()
	session, err := g.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	if !g.transition(epoch, session) && !g.holds(session) {
		return nil, ErrSuperseded
	}
	return session, nil
}

// SignUp creates an account. A nil session with a nil error means the
// account awaits e-mail confirmation and the gate stays unauthenticated.
func (g *Gate) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	epoch := g.currentEpoch()
	session, err := g.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	if session == nil {
		return nil, nil
	}
	if !g.transition(epoch, session) && !g.holds(session) {
		return nil, ErrSuperseded
	}
	return session, nil
}

// SignOut ends the session. The gate is unauthenticated afterwards even when
// the remote revocation fails.
func (g *Gate) SignOut(ctx context.Context) error {
	epoch := g.currentEpoch()
	err := g.auth.SignOut(ctx)
	g.transition(epoch, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (g *Gate) currentEpoch() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.epoch
}

func (g *Gate) holds(session *models.Session) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state == StateAuthenticated && g.session != nil && session != nil &&
		g.session.User.ID == session.User.ID
}

// transition applies a locally initiated result unless a push arrived since
// epoch was read. It reports whether the result was applied.
func (g *Gate) transition(epoch uint64, session *models.Session) bool {
	g.mu.Lock()
	if g.epoch != epoch {
		g.mu.Unlock()
		g.logger.Debug("local session transition superseded by push")
		return false
	}
	g.epoch++
	notify := g.setLocked(session)
	g.mu.Unlock()

	notify()
	return true
}

// adoptPushed installs a session pushed by the authenticator unconditionally.
func (g *Gate) adoptPushed(session *models.Session) {
	g.mu.Lock()
	g.epoch++
	notify := g.setLocked(session)
	g.mu.Unlock()

	notify()
}

// setLocked updates state and returns the notification to run once the lock
// is released.
func (g *Gate) setLocked(session *models.Session) func() {
	next := StateUnauthenticated
	if session != nil && session.User.ID != "" {
		next = StateAuthenticated
	} else {
		session = nil
	}

	changed := next != g.state
	if !changed && next == StateAuthenticated && g.session.User.ID != session.User.ID {
		changed = true
	}
	g.state = next
	g.session = session
	if !changed {
		return func() {}
	}

	g.logger.Info("session state changed", zap.String("state", string(next)))
	listeners := make([]Listener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	return func() {
		for _, fn := range listeners {
			fn(next, session)
		}
	}
}
