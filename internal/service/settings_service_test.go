package service

import (
	"puzzlepals/internal/models"
	"puzzlepals/internal/validation"
)

func (s *ServiceSuite) TestConfigurationIsIdempotent() {
	first, err := s.settings.Configuration()
	s.Require().NoError(err)
	second, err := s.settings.Configuration()
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *ServiceSuite) TestSaveConfigurationPartialUpdate() {
	a := s.signUp("guardian@example.com")

	_, err := s.settings.SaveConfiguration(models.ConfigurationUpdate{MusicVolume: intPtr(20)})
	s.Require().NoError(err)
	cfg, err := s.settings.SaveConfiguration(models.ConfigurationUpdate{VibrationEnabled: boolPtr(true)})
	s.Require().NoError(err)

	s.Equal(20, cfg.MusicVolume)
	s.True(cfg.VibrationEnabled)
	s.Equal(models.DefaultColorIntensity, cfg.ColorIntensity)
	s.True(cfg.UserModified)
	s.Equal([]models.Subject{a.Subject(), a.Subject()}, s.sync.configs)
}

func (s *ServiceSuite) TestSaveConfigurationClamps() {
	cfg, err := s.settings.SaveConfiguration(models.ConfigurationUpdate{
		ColorIntensity: intPtr(9),
		GeneralVolume:  intPtr(-4),
		NarratorVolume: intPtr(250),
	})
	s.Require().NoError(err)
	s.Equal(models.MaxColorIntensity, cfg.ColorIntensity)
	s.Equal(models.MinVolume, cfg.GeneralVolume)
	s.Equal(models.MaxVolume, cfg.NarratorVolume)
}

func (s *ServiceSuite) TestConfigurationFollowsSelectedProfile() {
	a := s.signUp("guardian@example.com")
	profile := s.createProfile("Bea")
	s.Require().NoError(s.profiles.SelectProfile(profile.ID, profile.Name))

	_, err := s.settings.SaveConfiguration(models.ConfigurationUpdate{ColorIntensity: intPtr(1)})
	s.Require().NoError(err)

	own, err := s.store.Configurations.GetOrCreate(a.Subject())
	s.Require().NoError(err)
	s.Equal(models.DefaultColorIntensity, own.ColorIntensity)

	s.profiles.Clear()
	cfg, err := s.settings.Configuration()
	s.Require().NoError(err)
	s.Equal(models.DefaultColorIntensity, cfg.ColorIntensity)
}

func (s *ServiceSuite) TestRecordLevelAttemptIsMonotonic() {
	stats, err := s.stats.RecordLevelAttempt(2, true, false, 30)
	s.Require().NoError(err)
	s.True(stats.Completed)

	stats, err = s.stats.RecordLevelAttempt(2, false, true, 45)
	s.Require().NoError(err)
	s.True(stats.Completed)
	s.Zero(stats.FailCount)
	s.Len(stats.Attempts, 2)
	s.Equal([]int{2, 2}, s.sync.levels)
}

func (s *ServiceSuite) TestFirstFailureCounts() {
	stats, err := s.stats.RecordLevelAttempt(1, false, false, 10)
	s.Require().NoError(err)
	s.False(stats.Completed)
	s.Equal(1, stats.FailCount)

	stats, err = s.stats.OnLevelCompleted(1, 12)
	s.Require().NoError(err)
	s.True(stats.Completed)
	s.Equal(1, stats.FailCount)
	s.Equal(22, stats.TotalTimeSpent())
}

func (s *ServiceSuite) TestRecordLevelAttemptValidation() {
	_, err := s.stats.RecordLevelAttempt(0, true, false, 10)
	s.True(validation.IsValidationError(err))
	s.Empty(s.sync.levels)
}

func (s *ServiceSuite) TestStatisticsFollowSelectedProfile() {
	s.signUp("guardian@example.com")
	profile := s.createProfile("Bea")
	s.Require().NoError(s.profiles.SelectProfile(profile.ID, profile.Name))

	_, err := s.stats.OnLevelCompleted(4, 60)
	s.Require().NoError(err)

	levels, err := s.stats.Levels()
	s.Require().NoError(err)
	s.Len(levels, 1)

	s.profiles.Clear()
	level, err := s.stats.Level(4)
	s.Require().NoError(err)
	s.Nil(level)
}
