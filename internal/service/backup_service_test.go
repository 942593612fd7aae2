package service

import (
	"bytes"
	"encoding/json"
	"strings"

	"puzzlepals/internal/models"
	"puzzlepals/internal/repository"
	"puzzlepals/internal/testutil"
)

func (s *ServiceSuite) seedBackupData() (models.Identity, *models.Profile) {
	identity := s.signUp("guardian@example.com")
	_, err := s.settings.SaveConfiguration(models.ConfigurationUpdate{ColorIntensity: intPtr(5)})
	s.Require().NoError(err)
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	s.Require().NoError(s.parental.SetSectionLocked(identity.Subject(), models.SectionStatistics, true))

	profile := s.createProfile("Bea")
	s.Require().NoError(s.profiles.SelectProfile(profile.ID, profile.Name))
	_, err = s.stats.RecordLevelAttempt(3, false, true, 20)
	s.Require().NoError(err)
	_, err = s.stats.OnLevelCompleted(3, 25)
	s.Require().NoError(err)
	return identity, profile
}

func (s *ServiceSuite) TestBackupExport() {
	s.seedBackupData()

	var buf bytes.Buffer
	s.Require().NoError(NewBackupService(s.store, testutil.NopLogger()).Export(&buf))

	var backup BackupData
	s.Require().NoError(json.Unmarshal(buf.Bytes(), &backup))
	s.Equal(BackupVersion, backup.Version)
	s.Equal("sqlite3", backup.DatabaseType)
	s.Len(backup.Identities, 2)
	s.Len(backup.Accounts, 1)
	s.Len(backup.Profiles, 1)
	s.Len(backup.Statistics, 1)
	s.Len(backup.Statistics[0].Stats.Attempts, 2)
}

func (s *ServiceSuite) TestBackupRoundTrip() {
	identity, profile := s.seedBackupData()

	var buf bytes.Buffer
	s.Require().NoError(NewBackupService(s.store, testutil.NopLogger()).Export(&buf))

	target := repository.NewStore(testutil.NewDB(s.T()))
	summary, err := NewBackupService(target, testutil.NopLogger()).Import(&buf)
	s.Require().NoError(err)
	s.Equal(2, summary.Identities)
	s.Equal(1, summary.Accounts)
	s.Equal(1, summary.Profiles)
	s.Equal(1, summary.Statistics)

	cfg, err := target.Configurations.Get(identity.Subject())
	s.Require().NoError(err)
	s.Require().NotNil(cfg)
	s.Equal(5, cfg.ColorIntensity)
	s.True(cfg.UserModified)

	pc, err := target.ParentalControls.Get(identity.Subject())
	s.Require().NoError(err)
	s.Require().NotNil(pc)
	s.True(pc.IsConfigured())
	s.True(pc.Gates.Statistics)

	restored, err := target.Profiles.GetByID(profile.ID)
	s.Require().NoError(err)
	s.Require().NotNil(restored)
	s.Equal("Bea", restored.Name)

	stats, err := target.Statistics.Get(profile.Subject(), 3)
	s.Require().NoError(err)
	s.Require().NotNil(stats)
	s.True(stats.Completed)
	s.Equal(1, stats.FailCount)
	s.Len(stats.Attempts, 2)

	account, err := target.Accounts.GetByEmail("guardian@example.com")
	s.Require().NoError(err)
	s.Require().NotNil(account)
	s.Equal(identity.ID, account.ID)
}

func (s *ServiceSuite) TestBackupImportRejectsUnknownVersion() {
	_, err := NewBackupService(s.store, testutil.NopLogger()).Import(strings.NewReader(`{"version":"9.0"}`))
	s.ErrorContains(err, "unsupported backup version")
}

func (s *ServiceSuite) TestBackupImportRejectsGarbage() {
	_, err := NewBackupService(s.store, testutil.NopLogger()).Import(strings.NewReader("not json"))
	s.ErrorContains(err, "failed to decode backup")
}
