package supabase

import (
	"context"
)

// AuthUser is the user object returned by GoTrue.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenResponse is returned by password and refresh token grants. Sign-up
// returns the same shape when e-mail confirmation is disabled, otherwise only
// the user fields are populated.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	User         *AuthUser `json:"user"`

	// Set when sign-up answers with a bare user.
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Account returns the user carried by the response, if any.
func (t *TokenResponse) Account() *AuthUser {
	if t == nil {
		return nil
	}
	if t.User != nil && t.User.ID != "" {
		return t.User
	}
	if t.ID != "" {
		return &AuthUser{ID: t.ID, Email: t.Email}
	}
	return nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword exchanges e-mail and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*TokenResponse, error) {
	result := new(TokenResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(credentials{Email: email, Password: password}).
		SetResult(result).
		SetError(&APIError{}).
		Post(authPath + "/token")
	if err := check(resp, err, "sign in"); err != nil {
		return nil, err
	}
	return result, nil
}

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, email, password string) (*TokenResponse, error) {
	result := new(TokenResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(credentials{Email: email, Password: password}).
		SetResult(result).
		SetError(&APIError{}).
		Post(authPath + "/signup")
	if err := check(resp, err, "sign up"); err != nil {
		return nil, err
	}
	return result, nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	result := new(TokenResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(result).
		SetError(&APIError{}).
		Post(authPath + "/token")
	if err := check(resp, err, "refresh session"); err != nil {
		return nil, err
	}
	return result, nil
}

// SignOut revokes the current access token.
func (c *Client) SignOut(ctx context.Context) error {
	resp, err := c.request(ctx).Post(authPath + "/logout")
	return check(resp, err, "sign out")
}
