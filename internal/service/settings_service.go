package service

import (
	"log/slog"

	"puzzlepals/internal/models"
	"puzzlepals/internal/repository"
)

// SettingsService reads and writes the effective subject's configuration
type SettingsService struct {
	store    *repository.Store
	subjects SubjectResolver
	sync     SyncNotifier
	logger   *slog.Logger
}

// NewSettingsService creates a settings service
func NewSettingsService(store *repository.Store, subjects SubjectResolver, notifier SyncNotifier, logger *slog.Logger) *SettingsService {
	return &SettingsService{store: store, subjects: subjects, sync: notifier, logger: logger}
}

// Configuration returns the effective subject's configuration, creating
// defaults on first use
func (s *SettingsService) Configuration() (*models.Configuration, error) {
	return s.store.Configurations.GetOrCreate(s.subjects.EffectiveSubject())
}

// SaveConfiguration applies update to the effective subject's configuration.
// Fields left nil keep their stored values.
func (s *SettingsService) SaveConfiguration(update models.ConfigurationUpdate) (*models.Configuration, error) {
	subject := s.subjects.EffectiveSubject()
	cfg, err := s.store.Configurations.Save(subject, update, true)
	if err != nil {
		s.logger.Error("failed to save configuration",
			slog.String("subject", subject.String()),
			slog.String("error", err.Error()))
		return nil, err
	}
	s.sync.OnConfigurationChanged(subject)
	return cfg, nil
}
