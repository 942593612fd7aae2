package service

import (
	"time"

	"puzzlepals/internal/models"
	"puzzlepals/internal/remote"
	"puzzlepals/internal/remote/memory"
	"puzzlepals/internal/syncer"
	"puzzlepals/internal/testutil"
)

func (s *ServiceSuite) useOrchestrator(remoteStore *memory.Store) *syncer.Orchestrator {
	// One worker keeps jobs in scheduling order
	cfg := syncer.DefaultConfig()
	cfg.Workers = 1
	orchestrator := syncer.New(s.store, remote.NewClient(remoteStore, s.clock), cfg, testutil.NopLogger(), nil)
	orchestrator.Start(s.ctx)
	s.T().Cleanup(orchestrator.Stop)

	logger := testutil.NopLogger()
	s.sessions = NewSessionService(s.backend, s.creds, s.store, orchestrator, s.sessions.mailer, logger)
	s.profiles = NewProfileService(s.sessions, s.store, orchestrator, logger)
	s.sessions.Subscribe(s.profiles.OnIdentityChanged)
	s.settings = NewSettingsService(s.store, s.profiles, orchestrator, logger)
	return orchestrator
}

func (s *ServiceSuite) TestOfflineLoginNeverPushes() {
	remoteStore := memory.New()
	remoteStore.SetOffline(true)
	orchestrator := s.useOrchestrator(remoteStore)
	s.Require().False(orchestrator.Online())

	_, err := s.backend.SignUp(s.ctx, "a@b.com", "secret123")
	s.Require().NoError(err)
	identity, err := s.sessions.Login(s.ctx, "a@b.com", "secret123")
	s.Require().NoError(err)
	s.Equal(identity.ID, s.sessions.Active().ID)

	remoteStore.SetOffline(false)
	_, err = s.settings.SaveConfiguration(models.ConfigurationUpdate{ColorIntensity: intPtr(4)})
	s.Require().NoError(err)
	orchestrator.Stop()

	s.Zero(remoteStore.Upserts())
}

func (s *ServiceSuite) TestOnlineLoginBootstrapsAndPushes() {
	remoteStore := memory.New()
	orchestrator := s.useOrchestrator(remoteStore)
	s.Require().True(orchestrator.Online())

	identity, err := s.sessions.SignUp(s.ctx, "a@b.com", "secret123")
	s.Require().NoError(err)
	_, err = s.settings.SaveConfiguration(models.ConfigurationUpdate{ColorIntensity: intPtr(4)})
	s.Require().NoError(err)
	orchestrator.Stop()

	snap, err := remote.NewClient(remoteStore, s.clock).FetchSnapshot(s.ctx, identity.ID)
	s.Require().NoError(err)
	s.Equal(4, snap.Configuration.ColorIntensity)
}

func (s *ServiceSuite) TestLoginOnNewDeviceRestoresRemoteSettings() {
	remoteStore := memory.New()
	orchestrator := s.useOrchestrator(remoteStore)

	identity, err := s.sessions.SignUp(s.ctx, "a@b.com", "secret123")
	s.Require().NoError(err)
	s.Eventually(func() bool { return remoteStore.Upserts() == 1 }, 5*time.Second, 10*time.Millisecond)

	cfg := models.DefaultConfiguration()
	cfg.NarratorVolume = 80
	_, err = remote.NewClient(remoteStore, s.clock).PushSnapshot(s.ctx, models.RemoteSnapshot{
		IdentityID:    identity.ID,
		Configuration: models.SnapshotConfiguration(cfg),
	})
	s.Require().NoError(err)

	// Simulate a second device by forgetting the identity's local rows
	s.Require().NoError(s.sessions.Logout(s.ctx))
	_, err = s.store.DB().Exec("DELETE FROM identities WHERE id = ?", identity.ID)
	s.Require().NoError(err)
	_, err = s.store.DB().Exec("DELETE FROM configurations WHERE subject_id = ?", identity.ID)
	s.Require().NoError(err)

	_, err = s.sessions.Login(s.ctx, "a@b.com", "secret123")
	s.Require().NoError(err)

	s.Eventually(func() bool {
		cfg, err := s.store.Configurations.Get(identity.Subject())
		return err == nil && cfg != nil && cfg.NarratorVolume == 80
	}, 5*time.Second, 20*time.Millisecond)
	orchestrator.Stop()
}
