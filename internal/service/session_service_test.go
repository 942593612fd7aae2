package service

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"puzzlepals/internal/auth"
	"puzzlepals/internal/credentials"
	"puzzlepals/internal/models"
	"puzzlepals/internal/testutil"
	"puzzlepals/internal/validation"
)

// failingSignOut is a backend whose sign-out always fails
type failingSignOut struct {
	auth.Backend
}

func (f failingSignOut) SignOut(ctx context.Context, tok *oauth2.Token) error {
	return errors.New("network unreachable")
}

func (s *ServiceSuite) TestFreshInstall() {
	identity := s.sessions.RestoreSession(s.ctx)
	s.Equal(models.DefaultIdentity(), identity)

	cfg, err := s.settings.Configuration()
	s.Require().NoError(err)
	s.Equal(models.DefaultColorIntensity, cfg.ColorIntensity)
	s.True(cfg.SoundEnabled)
	s.False(cfg.AutoNarrator)
	s.Equal(models.DefaultVolume, cfg.MusicVolume)

	_, err = s.backend.SignUp(s.ctx, "a@b.com", "secret123")
	s.Require().NoError(err)
	account, err := s.sessions.Login(s.ctx, "a@b.com", "secret123")
	s.Require().NoError(err)
	s.Equal(account, s.sessions.Active())
	s.False(account.IsDefault())
	s.False(s.parental.IsSectionLocked(account.Subject(), models.SectionStatistics))
}

func (s *ServiceSuite) TestSignUpSchedulesRestoreOnce() {
	identity := s.signUp("guardian@example.com")
	s.Equal([]models.IdentityID{identity.ID}, s.sync.restores)

	s.Require().NoError(s.sessions.Logout(s.ctx))
	_, err := s.sessions.Login(s.ctx, "guardian@example.com", "password123")
	s.Require().NoError(err)

	// The identity already has local data on this device
	s.Len(s.sync.restores, 1)
}

func (s *ServiceSuite) TestLoginPersistsCredentialsAndIdentity() {
	identity := s.signUp("guardian@example.com")

	tok, err := credentials.LoadToken(s.creds)
	s.Require().NoError(err)
	s.Require().NotNil(tok)
	s.NotEmpty(tok.AccessToken)
	s.NotEmpty(tok.RefreshToken)

	stored, err := s.store.Identities.Get(identity.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal("guardian@example.com", stored.Email)

	cfg, err := s.store.Configurations.Get(identity.Subject())
	s.Require().NoError(err)
	s.NotNil(cfg)
}

func (s *ServiceSuite) TestLoginFailureKeepsActiveIdentity() {
	identity := s.signUp("guardian@example.com")

	_, err := s.sessions.Login(s.ctx, "guardian@example.com", "wrong-password")
	s.ErrorIs(err, ErrAuth)
	s.ErrorIs(err, auth.ErrInvalidCredentials)
	s.Equal(identity, s.sessions.Active())
}

func (s *ServiceSuite) TestLoginValidation() {
	_, err := s.sessions.Login(s.ctx, "  ", "secret")
	s.True(validation.IsValidationError(err))

	_, err = s.sessions.Login(s.ctx, "a@b.com", "")
	s.True(validation.IsValidationError(err))
}

func (s *ServiceSuite) TestSignUpValidation() {
	_, err := s.sessions.SignUp(s.ctx, "not-an-email", "password123")
	s.True(validation.IsValidationError(err))

	_, err = s.sessions.SignUp(s.ctx, "a@b.com", "short")
	s.True(validation.IsValidationError(err))
	s.Equal(models.DefaultIdentity(), s.sessions.Active())
}

func (s *ServiceSuite) TestRestoreSessionFromPersistedCredentials() {
	identity := s.signUp("guardian@example.com")

	// A new process has a fresh backend without any cached session
	fresh := auth.NewLocalBackend(s.store.Accounts, auth.DefaultLocalConfig("test-secret"), s.clock, testutil.NopLogger())
	s.wire(fresh)

	restored := s.sessions.RestoreSession(s.ctx)
	s.Equal(identity.ID, restored.ID)
	s.Equal(identity.ID, s.sessions.Active().ID)
}

func (s *ServiceSuite) TestRestoreSessionFromProviderCache() {
	identity := s.signUp("guardian@example.com")
	s.Require().NoError(credentials.ClearToken(s.creds))
	s.wire(s.backend)

	restored := s.sessions.RestoreSession(s.ctx)
	s.Equal(identity.ID, restored.ID)

	tok, err := credentials.LoadToken(s.creds)
	s.Require().NoError(err)
	s.NotNil(tok)
}

func (s *ServiceSuite) TestRestoreSessionWithGarbageCredentials() {
	s.Require().NoError(credentials.SaveToken(s.creds, &oauth2.Token{AccessToken: "garbage", RefreshToken: "garbage"}))

	restored := s.sessions.RestoreSession(s.ctx)
	s.Equal(models.DefaultIdentity(), restored)

	tok, err := credentials.LoadToken(s.creds)
	s.Require().NoError(err)
	s.Nil(tok)
}

func (s *ServiceSuite) TestLogout() {
	s.signUp("guardian@example.com")
	profile := s.createProfile("Bea")
	s.Require().NoError(s.profiles.SelectProfile(profile.ID, profile.Name))

	s.Require().NoError(s.sessions.Logout(s.ctx))

	s.Equal(models.DefaultIdentity(), s.sessions.Active())
	s.False(s.profiles.Selection().Active())
	s.Equal(models.DefaultIdentity().Subject(), s.profiles.EffectiveSubject())

	tok, err := credentials.LoadToken(s.creds)
	s.Require().NoError(err)
	s.Nil(tok)

	_, err = s.backend.CachedSession(s.ctx)
	s.ErrorIs(err, auth.ErrNoSession)
}

func (s *ServiceSuite) TestLogoutSurvivesRemoteFailure() {
	s.wire(failingSignOut{Backend: s.backend})
	s.signUp("guardian@example.com")

	s.Require().NoError(s.sessions.Logout(s.ctx))
	s.Equal(models.DefaultIdentity(), s.sessions.Active())

	tok, err := credentials.LoadToken(s.creds)
	s.Require().NoError(err)
	s.Nil(tok)
}

func (s *ServiceSuite) TestDeleteAccount() {
	identity := s.signUp("guardian@example.com")
	_, err := s.settings.SaveConfiguration(models.ConfigurationUpdate{ColorIntensity: intPtr(5)})
	s.Require().NoError(err)
	s.createProfile("Bea")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))

	s.Require().NoError(s.sessions.DeleteAccount(s.ctx))

	s.Equal([]models.IdentityID{identity.ID}, s.sync.deleted)
	s.Equal(models.DefaultIdentity(), s.sessions.Active())

	cfg, err := s.store.Configurations.Get(identity.Subject())
	s.Require().NoError(err)
	s.Require().NotNil(cfg)
	s.Equal(models.DefaultColorIntensity, cfg.ColorIntensity)

	pc, err := s.store.ParentalControls.Get(identity.Subject())
	s.Require().NoError(err)
	s.Require().NotNil(pc)
	s.False(pc.IsConfigured())
	s.Empty(pc.PinHash)

	profiles, err := s.store.Profiles.ListByOwner(identity.ID)
	s.Require().NoError(err)
	s.Empty(profiles)

	_, err = s.sessions.Login(s.ctx, "guardian@example.com", "password123")
	s.ErrorIs(err, ErrAuth)
}

func (s *ServiceSuite) TestDeleteAccountContinuesWhenRemoteFails() {
	s.sync.deleteErr = errors.New("remote store offline")
	s.signUp("guardian@example.com")

	s.Require().NoError(s.sessions.DeleteAccount(s.ctx))
	s.Equal(models.DefaultIdentity(), s.sessions.Active())
}

func (s *ServiceSuite) TestDeleteAccountRequiresSession() {
	s.ErrorIs(s.sessions.DeleteAccount(s.ctx), ErrNotSignedIn)
	s.Empty(s.sync.deleted)
}

func (s *ServiceSuite) TestUpdatePassword() {
	s.signUp("guardian@example.com")

	err := s.sessions.UpdatePassword(s.ctx, "wrong-password", "newpassword1")
	s.ErrorIs(err, ErrAuth)

	s.Require().NoError(s.sessions.UpdatePassword(s.ctx, "password123", "newpassword1"))
	s.Require().NoError(s.sessions.Logout(s.ctx))

	_, err = s.sessions.Login(s.ctx, "guardian@example.com", "newpassword1")
	s.NoError(err)
}

func (s *ServiceSuite) TestUpdatePasswordRequiresSession() {
	s.ErrorIs(s.sessions.UpdatePassword(s.ctx, "password123", "newpassword1"), ErrNotSignedIn)
}

func (s *ServiceSuite) TestSubscribersSeeIdentityChanges() {
	var seen []models.IdentityID
	s.sessions.Subscribe(func(identity models.Identity) { seen = append(seen, identity.ID) })

	identity := s.signUp("guardian@example.com")
	s.Require().NoError(s.sessions.Logout(s.ctx))

	s.Equal([]models.IdentityID{identity.ID, models.DefaultIdentityID}, seen)
}
