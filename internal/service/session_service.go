package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"puzzlepals/internal/auth"
	"puzzlepals/internal/credentials"
	"puzzlepals/internal/models"
	"puzzlepals/internal/notify"
	"puzzlepals/internal/repository"
	"puzzlepals/internal/validation"
)

// SessionService owns the single active identity of the process
type SessionService struct {
	backend auth.Backend
	creds   credentials.Store
	store   *repository.Store
	sync    SyncNotifier
	mailer  *notify.Mailer
	logger  *slog.Logger

	mu        sync.RWMutex
	active    models.Identity
	token     *oauth2.Token
	listeners []func(models.Identity)
}

// NewSessionService creates a session service with the default account active
func NewSessionService(backend auth.Backend, creds credentials.Store, store *repository.Store, notifier SyncNotifier, mailer *notify.Mailer, logger *slog.Logger) *SessionService {
	return &SessionService{
		backend: backend,
		creds:   creds,
		store:   store,
		sync:    notifier,
		mailer:  mailer,
		logger:  logger,
		active:  models.DefaultIdentity(),
	}
}

// Active returns the active identity
func (s *SessionService) Active() models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Subscribe registers fn to be called after every identity change
func (s *SessionService) Subscribe(fn func(models.Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// RestoreSession brings back the previous session: first from the persisted
// credential pair, then from the backend's own cache, and finally falls back
// to the default account. It never fails.
func (s *SessionService) RestoreSession(ctx context.Context) models.Identity {
	if err := s.store.EnsureDefaults(); err != nil {
		s.logger.Error("failed to ensure default rows", slog.String("error", err.Error()))
	}

	tok, err := credentials.LoadToken(s.creds)
	if err != nil {
		s.logger.Warn("failed to load persisted credentials", slog.String("error", err.Error()))
	}
	if tok != nil {
		session, err := s.backend.RestoreSession(ctx, tok)
		if err != nil {
			s.logger.Info("persisted credentials rejected", slog.String("error", err.Error()))
			if auth.IsAuthError(err) {
				if err := credentials.ClearToken(s.creds); err != nil {
					s.logger.Warn("failed to clear stale credentials", slog.String("error", err.Error()))
				}
			}
		} else if identity, ok := s.adopt(session, "credentials"); ok {
			return identity
		}
	}

	session, err := s.backend.CachedSession(ctx)
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			s.logger.Warn("failed to read cached session", slog.String("error", err.Error()))
		}
	} else if identity, ok := s.adopt(session, "provider cache"); ok {
		return identity
	}

	s.setActive(models.DefaultIdentity(), nil)
	return models.DefaultIdentity()
}

// Login signs in with the identity provider. On failure the active identity
// is left unchanged.
func (s *SessionService) Login(ctx context.Context, handle, secret string) (models.Identity, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return models.Identity{}, validation.ValidationError{Field: "email", Message: "email is required"}
	}
	if secret == "" {
		return models.Identity{}, validation.ValidationError{Field: "password", Message: "password is required"}
	}

	session, err := s.backend.SignIn(ctx, handle, secret)
	if err != nil {
		s.logger.Info("login rejected", slog.String("error", err.Error()))
		return models.Identity{}, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	identity, err := s.establish(session)
	if err != nil {
		return models.Identity{}, err
	}
	s.logger.Info("logged in", slog.String("identity", string(identity.ID)))
	return identity, nil
}

// SignUp registers a new guardian account and signs it in
func (s *SessionService) SignUp(ctx context.Context, email, password string) (models.Identity, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return models.Identity{}, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return models.Identity{}, err
	}

	session, err := s.backend.SignUp(ctx, email, password)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	identity, err := s.establish(session)
	if err != nil {
		return models.Identity{}, err
	}
	if err := s.mailer.SendWelcome(ctx, identity.Email); err != nil {
		s.logger.Warn("failed to send welcome notice", slog.String("error", err.Error()))
	}
	return identity, nil
}

// UpdatePassword changes the signed-in account's password
func (s *SessionService) UpdatePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}
	tok := s.currentToken()
	if tok == nil {
		return ErrNotSignedIn
	}
	if err := s.backend.UpdatePassword(ctx, tok, oldPassword, newPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return nil
}

// Logout returns to the default account. A failed remote sign-out is only
// logged; the local state always ends up signed out.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.backend.SignOut(ctx, s.currentToken()); err != nil {
		s.logger.Warn("remote sign-out failed", slog.String("error", err.Error()))
	}

	err := credentials.ClearToken(s.creds)
	s.setActive(models.DefaultIdentity(), nil)
	s.logger.Info("logged out")
	return err
}

// DeleteAccount removes the signed-in account's cloud data and provider
// account, resets its local rows to defaults and returns to the default account
func (s *SessionService) DeleteAccount(ctx context.Context) error {
	identity := s.Active()
	tok := s.currentToken()
	if identity.IsDefault() || tok == nil {
		return ErrNotSignedIn
	}

	if err := s.sync.DeleteRemote(ctx, identity.ID); err != nil {
		s.logger.Warn("failed to delete remote snapshot",
			slog.String("identity", string(identity.ID)),
			slog.String("error", err.Error()))
	}

	if err := s.backend.DeleteAccount(ctx, tok); err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}

	if err := s.store.ResetIdentity(identity.ID); err != nil {
		return err
	}

	if err := s.mailer.SendAccountDeleted(ctx, identity.Email); err != nil {
		s.logger.Warn("failed to send account deletion notice", slog.String("error", err.Error()))
	}

	err := credentials.ClearToken(s.creds)
	s.setActive(models.DefaultIdentity(), nil)
	s.logger.Info("account deleted", slog.String("identity", string(identity.ID)))
	return err
}

func (s *SessionService) adopt(session *auth.Session, source string) (models.Identity, bool) {
	identity, err := s.establish(session)
	if err != nil {
		s.logger.Warn("failed to adopt session", slog.String("source", source), slog.String("error", err.Error()))
		return models.Identity{}, false
	}
	s.logger.Info("session restored", slog.String("source", source), slog.String("identity", string(identity.ID)))
	return identity, true
}

// establish persists the session's credentials and identity, then makes it active
func (s *SessionService) establish(session *auth.Session) (models.Identity, error) {
	if session == nil || session.Token == nil {
		return models.Identity{}, fmt.Errorf("%w: %w", ErrAuth, auth.ErrNoSession)
	}
	if err := credentials.SaveToken(s.creds, session.Token); err != nil {
		return models.Identity{}, err
	}

	identity := session.Identity
	created, err := s.store.Identities.Upsert(identity)
	if err != nil {
		return models.Identity{}, err
	}

	// Scheduled before the identity becomes active so that pushes of edits
	// made after login wait for the restore
	if created {
		s.sync.ScheduleRestore(identity.ID)
	}
	s.setActive(identity, session.Token)
	return identity, nil
}

func (s *SessionService) setActive(identity models.Identity, tok *oauth2.Token) {
	s.mu.Lock()
	s.active = identity
	s.token = tok
	listeners := append([]func(models.Identity){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(identity)
	}
}

func (s *SessionService) currentToken() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
