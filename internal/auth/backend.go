// Package auth defines the identity provider contract used by the session
// manager and a local implementation backed by the device database.
package auth

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"puzzlepals/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNoSession          = errors.New("no session")
)

// Session is an authenticated identity and the credential pair proving it
type Session struct {
	Identity models.Identity
	Token    *oauth2.Token
}

// Backend is the narrow contract the session manager needs from an identity provider
type Backend interface {
	// SignIn exchanges an email and password for a new session
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignOut invalidates tok with the provider
	SignOut(ctx context.Context, tok *oauth2.Token) error

	// RestoreSession validates a persisted credential pair, refreshing it when
	// the access token expired. The returned session may carry a new token.
	RestoreSession(ctx context.Context, tok *oauth2.Token) (*Session, error)

	// CachedSession returns a session the provider itself retained, or ErrNoSession
	CachedSession(ctx context.Context) (*Session, error)

	SignUp(ctx context.Context, email, password string) (*Session, error)
	UpdatePassword(ctx context.Context, tok *oauth2.Token, oldPassword, newPassword string) error
	DeleteAccount(ctx context.Context, tok *oauth2.Token) error
}
