package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	client "github.com/mamadbah2/stockroom/pkg/clients/supabase"
)

// SignIn exchanges credentials for a session and notifies listeners.
func (r *Repository) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	tokens, err := r.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	session, err := r.sessionFromTokens(tokens)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New("sign in returned no session")
	}

	r.adopt(session)
	return session, nil
}

// SignUp registers an account and seeds its default categories. The returned
// session is nil when the project requires e-mail confirmation.
func (r *Repository) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	tokens, err := r.client.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	session, err := r.sessionFromTokens(tokens)
	if err != nil {
		return nil, err
	}
	if session != nil {
		r.client.SetAccessToken(session.AccessToken)
	}

	if account := tokens.Account(); account != nil {
		r.seedDefaultCategories(ctx, account.ID)
	}

	if session != nil {
		r.adopt(session)
	}
	return session, nil
}

// SignOut revokes the session remotely and always drops it locally.
func (r *Repository) SignOut(ctx context.Context) error {
	err := r.client.SignOut(ctx)
	r.adopt(nil)
	return err
}

// GetSession returns the current session, refreshing it first when it has
// expired. No session yields nil without error.
func (r *Repository) GetSession(ctx context.Context) (*models.Session, error) {
	r.mu.Lock()
	current := r.session
	r.mu.Unlock()

	if current == nil {
		return nil, nil
	}
	if current.Valid(r.now()) {
		return current, nil
	}
	if current.RefreshToken == "" {
		r.adopt(nil)
		return nil, nil
	}
	return r.refresh(ctx, current.RefreshToken)
}

// OnSessionChange registers fn for pushed session changes. A nil session
// means the user is signed out.
func (r *Repository) OnSessionChange(fn func(*models.Session)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

func (r *Repository) seedDefaultCategories(ctx context.Context, userID string) {
	args := map[string]string{"target_user_id": userID}
	if err := r.client.RPC(ctx, seedFunction, args); err != nil {
		r.logger.Error("seeding default categories failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (r *Repository) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	// The outcome only applies while the session that started the refresh
	// is still current; a sign-out or a newer sign-in wins.
	stillCurrent := func(current *models.Session) bool {
		return current != nil && current.RefreshToken == refreshToken
	}

	tokens, err := r.client.RefreshSession(ctx, refreshToken)
	if err == nil {
		var session *models.Session
		session, err = r.sessionFromTokens(tokens)
		if err == nil && session == nil {
			err = errors.New("refresh returned no session")
		}
		if err == nil {
			if !r.adoptIf(stillCurrent, session) {
				r.logger.Debug("discarded refresh for a replaced session")
				return r.current(), nil
			}
			return session, nil
		}
	}

	if !r.adoptIf(stillCurrent, nil) {
		return r.current(), nil
	}
	return nil, err
}

func (r *Repository) current() *models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// adopt installs session unconditionally.
func (r *Repository) adopt(session *models.Session) {
	r.adoptIf(nil, session)
}

// adoptIf installs session when expect accepts the current one (nil accepts
// anything), reschedules the token refresh and notifies listeners outside
// the lock. It reports whether session was installed.
func (r *Repository) adoptIf(expect func(current *models.Session) bool, session *models.Session) bool {
	r.mu.Lock()
	if expect != nil && !expect(r.session) {
		r.mu.Unlock()
		return false
	}
	r.session = session
	if r.refreshTimer != nil {
		r.refreshTimer.Stop()
		r.refreshTimer = nil
	}
	if session != nil && session.RefreshToken != "" && !session.ExpiresAt.IsZero() {
		wait := max(session.ExpiresAt.Sub(r.now())-r.refreshLead, 0)
		refreshToken := session.RefreshToken
		r.refreshTimer = time.AfterFunc(wait, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if _, err := r.refresh(ctx, refreshToken); err != nil {
				r.logger.Warn("session refresh failed", zap.Error(err))
			}
		})
	}
	if session != nil {
		r.client.SetAccessToken(session.AccessToken)
	} else {
		r.client.SetAccessToken("")
	}
	listeners := make([]func(*models.Session), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(session)
	}
	return true
}

// sessionFromTokens converts a token response into a session. Expiry and
// subject fall back to the access token claims. A response without an access
// token yields nil.
func (r *Repository) sessionFromTokens(tokens *client.TokenResponse) (*models.Session, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return nil, nil
	}

	session := &models.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}
	if account := tokens.Account(); account != nil {
		session.User = models.User{ID: account.ID, Email: account.Email}
	}

	switch {
	case tokens.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(tokens.ExpiresAt, 0)
	case tokens.ExpiresIn > 0:
		session.ExpiresAt = r.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}

	if session.ExpiresAt.IsZero() || session.User.ID == "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(tokens.AccessToken, claims); err != nil {
			return nil, fmt.Errorf("parse access token: %w", err)
		}
		if session.ExpiresAt.IsZero() {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				session.ExpiresAt = exp.Time
			}
		}
		if session.User.ID == "" {
			if sub, err := claims.GetSubject(); err == nil {
				session.User.ID = sub
			}
			if email, ok := claims["email"].(string); ok {
				session.User.Email = email
			}
		}
	}

	return session, nil
}
