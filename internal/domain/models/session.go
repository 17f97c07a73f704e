package models

import "time"

// User is the authenticated account as reported by the auth collaborator.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session holds the credentials of a signed-in user.
type Session struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the session carries a user and has not expired.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.User.ID == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}
