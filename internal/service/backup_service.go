package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"puzzlepals/internal/models"
	"puzzlepals/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete device store backup structure
type BackupData struct {
	Version          string                             `json:"version"`
	ExportedAt       time.Time                          `json:"exported_at"`
	DatabaseType     string                             `json:"database_type"`
	Identities       []models.Identity                  `json:"identities"`
	Accounts         []models.Account                   `json:"accounts"`
	Profiles         []models.Profile                   `json:"profiles"`
	Configurations   []repository.ConfigurationRecord   `json:"configurations"`
	ParentalControls []repository.ParentalControlRecord `json:"parental_controls"`
	Statistics       []repository.StatisticsRecord      `json:"statistics"`
}

// ImportSummary counts what an import wrote
type ImportSummary struct {
	Identities       int
	Accounts         int
	Profiles         int
	Configurations   int
	ParentalControls int
	Statistics       int
}

// BackupService handles device store export and import
type BackupService struct {
	store  *repository.Store
	logger *slog.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(store *repository.Store, logger *slog.Logger) *BackupService {
	return &BackupService{store: store, logger: logger}
}

// Snapshot collects every local table into a BackupData
func (s *BackupService) Snapshot() (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.store.DB().Dialect.Name(),
	}

	var err error
	if backup.Identities, err = s.store.Identities.List(); err != nil {
		return nil, fmt.Errorf("failed to export identities: %w", err)
	}
	if backup.Accounts, err = s.store.Accounts.All(); err != nil {
		return nil, fmt.Errorf("failed to export accounts: %w", err)
	}
	if backup.Profiles, err = s.store.Profiles.All(); err != nil {
		return nil, fmt.Errorf("failed to export profiles: %w", err)
	}
	if backup.Configurations, err = s.store.Configurations.All(); err != nil {
		return nil, fmt.Errorf("failed to export configurations: %w", err)
	}
	if backup.ParentalControls, err = s.store.ParentalControls.All(); err != nil {
		return nil, fmt.Errorf("failed to export parental controls: %w", err)
	}
	if backup.Statistics, err = s.store.Statistics.All(); err != nil {
		return nil, fmt.Errorf("failed to export statistics: %w", err)
	}
	return backup, nil
}

// Export writes a complete backup of the device store to w as JSON
func (s *BackupService) Export(w io.Writer) error {
	backup, err := s.Snapshot()
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("device store exported",
		slog.Int("identities", len(backup.Identities)),
		slog.Int("accounts", len(backup.Accounts)),
		slog.Int("profiles", len(backup.Profiles)),
		slog.Int("configurations", len(backup.Configurations)),
		slog.Int("parental_controls", len(backup.ParentalControls)),
		slog.Int("statistics", len(backup.Statistics)))
	return nil
}

// Import restores a backup read from r. Identities, accounts, profiles and
// statistics already present are kept; configuration and parental control
// rows are overwritten with the backup's values.
func (s *BackupService) Import(r io.Reader) (*ImportSummary, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	s.logger.Info("importing device store", slog.Time("exported_at", backup.ExportedAt))

	summary := &ImportSummary{}

	// Import in order of dependencies
	for _, identity := range backup.Identities {
		if _, err := s.store.Identities.Upsert(identity); err != nil {
			return summary, fmt.Errorf("failed to import identities: %w", err)
		}
		summary.Identities++
	}
	for _, account := range backup.Accounts {
		if err := s.store.Accounts.Put(account); err != nil {
			return summary, fmt.Errorf("failed to import accounts: %w", err)
		}
		summary.Accounts++
	}
	for _, profile := range backup.Profiles {
		if err := s.store.Profiles.Put(profile); err != nil {
			return summary, fmt.Errorf("failed to import profiles: %w", err)
		}
		summary.Profiles++
	}
	for _, rec := range backup.Configurations {
		if err := s.store.Configurations.Put(rec.Subject, rec.Configuration); err != nil {
			return summary, fmt.Errorf("failed to import configurations: %w", err)
		}
		summary.Configurations++
	}
	for _, rec := range backup.ParentalControls {
		if err := s.store.ParentalControls.Put(rec.Subject, rec.ParentalControl); err != nil {
			return summary, fmt.Errorf("failed to import parental controls: %w", err)
		}
		summary.ParentalControls++
	}
	for _, rec := range backup.Statistics {
		applied, err := s.store.Statistics.Restore(rec.Subject, rec.Stats)
		if err != nil {
			return summary, fmt.Errorf("failed to import statistics: %w", err)
		}
		if applied {
			summary.Statistics++
		}
	}

	s.logger.Info("device store import completed",
		slog.Int("identities", summary.Identities),
		slog.Int("profiles", summary.Profiles),
		slog.Int("statistics", summary.Statistics))
	return summary, nil
}
