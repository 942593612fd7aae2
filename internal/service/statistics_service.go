package service

import (
	"log/slog"

	"puzzlepals/internal/models"
	"puzzlepals/internal/repository"
	"puzzlepals/internal/validation"
)

// StatisticsService records gameplay outcomes for the effective subject
type StatisticsService struct {
	store    *repository.Store
	subjects SubjectResolver
	sync     SyncNotifier
	logger   *slog.Logger
}

// NewStatisticsService creates a statistics service
func NewStatisticsService(store *repository.Store, subjects SubjectResolver, notifier SyncNotifier, logger *slog.Logger) *StatisticsService {
	return &StatisticsService{store: store, subjects: subjects, sync: notifier, logger: logger}
}

// RecordLevelAttempt appends an attempt for level and schedules a push
func (s *StatisticsService) RecordLevelAttempt(level int, completed, helpUsed bool, timeSpentSeconds int) (*models.LevelStats, error) {
	if level < 1 {
		return nil, validation.ValidationError{Field: "level", Message: "level must be positive"}
	}
	if timeSpentSeconds < 0 {
		timeSpentSeconds = 0
	}

	subject := s.subjects.EffectiveSubject()
	stats, err := s.store.Statistics.RecordLevelAttempt(subject, level, models.LevelAttempt{
		Completed:        completed,
		HelpUsed:         helpUsed,
		TimeSpentSeconds: timeSpentSeconds,
	})
	if err != nil {
		s.logger.Error("failed to record level attempt",
			slog.String("subject", subject.String()),
			slog.Int("level", level),
			slog.String("error", err.Error()))
		return nil, err
	}
	s.sync.OnLevelCompleted(subject, level)
	return stats, nil
}

// OnLevelCompleted is the gameplay hook for a finished level
func (s *StatisticsService) OnLevelCompleted(level, timeSpentSeconds int) (*models.LevelStats, error) {
	return s.RecordLevelAttempt(level, true, false, timeSpentSeconds)
}

// Level returns the effective subject's statistics for level, or nil
func (s *StatisticsService) Level(level int) (*models.LevelStats, error) {
	return s.store.Statistics.Get(s.subjects.EffectiveSubject(), level)
}

// Levels returns all of the effective subject's statistics
func (s *StatisticsService) Levels() ([]models.LevelStats, error) {
	return s.store.Statistics.List(s.subjects.EffectiveSubject())
}
