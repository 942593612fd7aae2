// Package service holds the foreground services the application shell talks
// to. Every service works on the local store synchronously and hands remote
// work to a SyncNotifier.
package service

import (
	"context"
	"errors"

	"puzzlepals/internal/models"
)

var (
	// ErrAuth wraps every rejection from the identity provider
	ErrAuth = errors.New("authentication failed")

	// ErrIncorrectPin is returned when a PIN-protected action gets the wrong PIN
	ErrIncorrectPin = errors.New("incorrect pin")

	// ErrNotSignedIn is returned by account operations while the default account is active
	ErrNotSignedIn = errors.New("no account signed in")
)

// SyncNotifier receives local changes that should be mirrored remotely.
// Implementations must not block the caller.
type SyncNotifier interface {
	OnConfigurationChanged(subject models.Subject)
	OnParentalControlChanged(subject models.Subject)
	OnLevelCompleted(subject models.Subject, level int)
	ScheduleRestore(id models.IdentityID)
	DeleteRemote(ctx context.Context, id models.IdentityID) error
}

// IdentityProvider exposes the active identity
type IdentityProvider interface {
	Active() models.Identity
}

// SubjectResolver exposes the subject whose data is currently read and written
type SubjectResolver interface {
	EffectiveSubject() models.Subject
}
