package repository

import (
	"database/sql"
	"errors"

	"puzzlepals/internal/database"
	"puzzlepals/internal/models"
)

// ConfigurationRecord pairs a stored configuration with its subject
type ConfigurationRecord struct {
	Subject       models.Subject       `json:"subject"`
	Configuration models.Configuration `json:"configuration"`
}

// ConfigurationRepository handles database operations for configurations
type ConfigurationRepository struct {
	db *database.DB
}

// NewConfigurationRepository creates a new configuration repository
func NewConfigurationRepository(db *database.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

const configurationColumns = `color_intensity, auto_narrator, sound_enabled, general_volume, music_volume,
	effects_volume, narrator_volume, vibration_enabled, user_modified, updated_at`

// GetOrCreate returns the configuration for subject, inserting defaults first
// if the subject has none. Concurrent calls never create two rows.
func (r *ConfigurationRepository) GetOrCreate(subject models.Subject) (*models.Configuration, error) {
	if err := insertDefaultConfiguration(r.db, subject); err != nil {
		return nil, storageError("create configuration", err)
	}
	cfg, err := getConfiguration(r.db, subject)
	if err != nil {
		return nil, storageError("get configuration", err)
	}
	return cfg, nil
}

// Get returns the configuration for subject, or nil if it has none
func (r *ConfigurationRepository) Get(subject models.Subject) (*models.Configuration, error) {
	cfg, err := getConfiguration(r.db, subject)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get configuration", err)
	}
	return cfg, nil
}

// Save applies a partial update to subject's configuration. Fields left nil in
// update keep their stored value. userModified marks the row as edited on this device.
func (r *ConfigurationRepository) Save(subject models.Subject, update models.ConfigurationUpdate, userModified bool) (*models.Configuration, error) {
	var saved *models.Configuration
	err := r.db.WithinTx(func(tx *database.Tx) error {
		if err := insertDefaultConfiguration(tx, subject); err != nil {
			return err
		}
		cfg, err := getConfiguration(tx, subject)
		if err != nil {
			return err
		}
		update.Apply(cfg)
		cfg.UserModified = cfg.UserModified || userModified
		if err := putConfiguration(tx, subject, *cfg); err != nil {
			return err
		}
		saved, err = getConfiguration(tx, subject)
		return err
	})
	if err != nil {
		return nil, storageError("save configuration", err)
	}
	return saved, nil
}

// Restore overwrites subject's configuration with cfg unless the stored row has
// been modified by a user on this device. It reports whether the row was written.
func (r *ConfigurationRepository) Restore(subject models.Subject, cfg models.Configuration) (bool, error) {
	var applied bool
	err := r.db.WithinTx(func(tx *database.Tx) error {
		if err := insertDefaultConfiguration(tx, subject); err != nil {
			return err
		}
		current, err := getConfiguration(tx, subject)
		if err != nil {
			return err
		}
		if current.UserModified {
			return nil
		}
		cfg.UserModified = false
		cfg.Clamp()
		applied = true
		return putConfiguration(tx, subject, cfg)
	})
	if err != nil {
		return false, storageError("restore configuration", err)
	}
	return applied, nil
}

// Put writes every field of cfg, including the user-modified flag
func (r *ConfigurationRepository) Put(subject models.Subject, cfg models.Configuration) error {
	cfg.Clamp()
	err := r.db.WithinTx(func(tx *database.Tx) error {
		return putConfiguration(tx, subject, cfg)
	})
	if err != nil {
		return storageError("put configuration", err)
	}
	return nil
}

// All returns every stored configuration
func (r *ConfigurationRepository) All() ([]ConfigurationRecord, error) {
	rows, err := r.db.Query("SELECT subject_id, profile_id, " + configurationColumns + " FROM configurations ORDER BY subject_id, profile_id")
	if err != nil {
		return nil, storageError("query configurations", err)
	}
	defer rows.Close()

	var records []ConfigurationRecord
	for rows.Next() {
		var rec ConfigurationRecord
		c := &rec.Configuration
		if err := rows.Scan(
			&rec.Subject.IdentityID,
			&rec.Subject.ProfileID,
			&c.ColorIntensity,
			&c.AutoNarrator,
			&c.SoundEnabled,
			&c.GeneralVolume,
			&c.MusicVolume,
			&c.EffectsVolume,
			&c.NarratorVolume,
			&c.VibrationEnabled,
			&c.UserModified,
			&c.UpdatedAt,
		); err != nil {
			return nil, storageError("scan configuration", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("query configurations", err)
	}
	return records, nil
}

func getConfiguration(q database.DBTX, subject models.Subject) (*models.Configuration, error) {
	query := "SELECT " + configurationColumns + " FROM configurations WHERE subject_id = ? AND profile_id = ?"
	return scanConfiguration(q.QueryRow(query, subject.IdentityID, subject.ProfileID))
}

func scanConfiguration(row scanner) (*models.Configuration, error) {
	c := &models.Configuration{}
	err := row.Scan(
		&c.ColorIntensity,
		&c.AutoNarrator,
		&c.SoundEnabled,
		&c.GeneralVolume,
		&c.MusicVolume,
		&c.EffectsVolume,
		&c.NarratorVolume,
		&c.VibrationEnabled,
		&c.UserModified,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func insertDefaultConfiguration(q database.DBTX, subject models.Subject) error {
	d := models.DefaultConfiguration()
	query := q.GetDialect().InsertIgnoreQuery("configurations",
		"subject_id", "profile_id", "color_intensity", "auto_narrator", "sound_enabled",
		"general_volume", "music_volume", "effects_volume", "narrator_volume", "vibration_enabled")
	_, err := q.Exec(query,
		subject.IdentityID, subject.ProfileID, d.ColorIntensity, d.AutoNarrator, d.SoundEnabled,
		d.GeneralVolume, d.MusicVolume, d.EffectsVolume, d.NarratorVolume, d.VibrationEnabled)
	return err
}

// putConfiguration overwrites the row for subject, creating it if needed
func putConfiguration(q database.DBTX, subject models.Subject, c models.Configuration) error {
	if err := insertDefaultConfiguration(q, subject); err != nil {
		return err
	}
	query := `
		UPDATE configurations
		SET color_intensity = ?, auto_narrator = ?, sound_enabled = ?, general_volume = ?,
			music_volume = ?, effects_volume = ?, narrator_volume = ?, vibration_enabled = ?,
			user_modified = ?, updated_at = CURRENT_TIMESTAMP
		WHERE subject_id = ? AND profile_id = ?
	`
	_, err := q.Exec(query,
		c.ColorIntensity, c.AutoNarrator, c.SoundEnabled, c.GeneralVolume,
		c.MusicVolume, c.EffectsVolume, c.NarratorVolume, c.VibrationEnabled,
		c.UserModified, subject.IdentityID, subject.ProfileID)
	return err
}

func deleteConfiguration(q database.DBTX, subject models.Subject) error {
	_, err := q.Exec("DELETE FROM configurations WHERE subject_id = ? AND profile_id = ?", subject.IdentityID, subject.ProfileID)
	return err
}
