package repository

import (
	"database/sql"
	"errors"
	"time"

	"puzzlepals/internal/database"
	"puzzlepals/internal/models"
)

// StatisticsRecord pairs level statistics with their subject
type StatisticsRecord struct {
	Subject models.Subject    `json:"subject"`
	Stats   models.LevelStats `json:"stats"`
}

// StatisticsRepository handles database operations for level statistics
type StatisticsRepository struct {
	db *database.DB
}

// NewStatisticsRepository creates a new statistics repository
func NewStatisticsRepository(db *database.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// RecordLevelAttempt appends an attempt to subject's statistics for level,
// creating them if needed. Completed never regresses once set; a failed
// attempt only counts toward FailCount while the level is not yet completed,
// including the very first attempt on a level.
func (r *StatisticsRepository) RecordLevelAttempt(subject models.Subject, level int, attempt models.LevelAttempt) (*models.LevelStats, error) {
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = time.Now()
	}
	attempt.Timestamp = attempt.Timestamp.UTC()

	var stats *models.LevelStats
	err := r.db.WithinTx(func(tx *database.Tx) error {
		query := tx.GetDialect().InsertIgnoreQuery("level_stats", "subject_id", "profile_id", "level")
		if _, err := tx.Exec(query, subject.IdentityID, subject.ProfileID, level); err != nil {
			return err
		}

		var statsID int64
		var completed bool
		var failCount int
		query = "SELECT id, completed, fail_count FROM level_stats WHERE subject_id = ? AND profile_id = ? AND level = ?"
		if err := tx.QueryRow(query, subject.IdentityID, subject.ProfileID, level).Scan(&statsID, &completed, &failCount); err != nil {
			return err
		}

		if !completed {
			if attempt.Completed {
				completed = true
			} else {
				failCount++
			}
		}

		if _, err := tx.Exec("UPDATE level_stats SET completed = ?, fail_count = ? WHERE id = ?", completed, failCount, statsID); err != nil {
			return err
		}
		if err := insertAttempt(tx, statsID, attempt); err != nil {
			return err
		}

		attempts, err := listAttempts(tx, statsID)
		if err != nil {
			return err
		}
		stats = &models.LevelStats{Level: level, Completed: completed, FailCount: failCount, Attempts: attempts}
		return nil
	})
	if err != nil {
		return nil, storageError("record level attempt", err)
	}
	return stats, nil
}

// Get returns subject's statistics for level, or nil if none were recorded
func (r *StatisticsRepository) Get(subject models.Subject, level int) (*models.LevelStats, error) {
	stats := &models.LevelStats{Level: level}
	var statsID int64
	query := "SELECT id, completed, fail_count FROM level_stats WHERE subject_id = ? AND profile_id = ? AND level = ?"
	err := r.db.QueryRow(query, subject.IdentityID, subject.ProfileID, level).Scan(&statsID, &stats.Completed, &stats.FailCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get level stats", err)
	}

	stats.Attempts, err = listAttempts(r.db, statsID)
	if err != nil {
		return nil, storageError("list level attempts", err)
	}
	return stats, nil
}

// List returns all of subject's statistics ordered by level
func (r *StatisticsRepository) List(subject models.Subject) ([]models.LevelStats, error) {
	records, err := r.list("WHERE subject_id = ? AND profile_id = ?", subject.IdentityID, subject.ProfileID)
	if err != nil {
		return nil, err
	}
	stats := make([]models.LevelStats, 0, len(records))
	for _, rec := range records {
		stats = append(stats, rec.Stats)
	}
	return stats, nil
}

// All returns every stored statistics row
func (r *StatisticsRepository) All() ([]StatisticsRecord, error) {
	return r.list("")
}

// Restore inserts stats for subject when the level has no local statistics yet.
// It reports whether anything was written.
func (r *StatisticsRepository) Restore(subject models.Subject, stats models.LevelStats) (bool, error) {
	var applied bool
	err := r.db.WithinTx(func(tx *database.Tx) error {
		query := tx.GetDialect().InsertIgnoreQuery("level_stats", "subject_id", "profile_id", "level", "completed", "fail_count")
		result, err := tx.Exec(query, subject.IdentityID, subject.ProfileID, stats.Level, stats.Completed, stats.FailCount)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil || n == 0 {
			return err
		}

		var statsID int64
		query = "SELECT id FROM level_stats WHERE subject_id = ? AND profile_id = ? AND level = ?"
		if err := tx.QueryRow(query, subject.IdentityID, subject.ProfileID, stats.Level).Scan(&statsID); err != nil {
			return err
		}
		for _, a := range stats.Attempts {
			a.Timestamp = a.Timestamp.UTC()
			if err := insertAttempt(tx, statsID, a); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, storageError("restore level stats", err)
	}
	return applied, nil
}

func (r *StatisticsRepository) list(where string, args ...interface{}) ([]StatisticsRecord, error) {
	query := "SELECT id, subject_id, profile_id, level, completed, fail_count FROM level_stats " + where + " ORDER BY subject_id, profile_id, level"
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, storageError("query level stats", err)
	}

	var ids []int64
	var records []StatisticsRecord
	for rows.Next() {
		var id int64
		var rec StatisticsRecord
		if err := rows.Scan(&id, &rec.Subject.IdentityID, &rec.Subject.ProfileID, &rec.Stats.Level, &rec.Stats.Completed, &rec.Stats.FailCount); err != nil {
			rows.Close()
			return nil, storageError("scan level stats", err)
		}
		ids = append(ids, id)
		records = append(records, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storageError("query level stats", err)
	}

	for i, id := range ids {
		attempts, err := listAttempts(r.db, id)
		if err != nil {
			return nil, storageError("list level attempts", err)
		}
		records[i].Stats.Attempts = attempts
	}
	return records, nil
}

func insertAttempt(q database.DBTX, statsID int64, a models.LevelAttempt) error {
	query := `
		INSERT INTO level_attempts (stats_id, completed, help_used, time_spent_seconds, attempted_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := q.Exec(query, statsID, a.Completed, a.HelpUsed, a.TimeSpentSeconds, a.Timestamp)
	return err
}

func listAttempts(q database.DBTX, statsID int64) ([]models.LevelAttempt, error) {
	query := `
		SELECT completed, help_used, time_spent_seconds, attempted_at
		FROM level_attempts
		WHERE stats_id = ?
		ORDER BY id ASC
	`
	rows, err := q.Query(query, statsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []models.LevelAttempt{}
	for rows.Next() {
		var a models.LevelAttempt
		if err := rows.Scan(&a.Completed, &a.HelpUsed, &a.TimeSpentSeconds, &a.Timestamp); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func deleteStatistics(q database.DBTX, subject models.Subject) error {
	query := `
		DELETE FROM level_attempts
		WHERE stats_id IN (SELECT id FROM level_stats WHERE subject_id = ? AND profile_id = ?)
	`
	if _, err := q.Exec(query, subject.IdentityID, subject.ProfileID); err != nil {
		return err
	}
	_, err := q.Exec("DELETE FROM level_stats WHERE subject_id = ? AND profile_id = ?", subject.IdentityID, subject.ProfileID)
	return err
}
