package repository

import (
	"database/sql"
	"errors"

	"puzzlepals/internal/database"
	"puzzlepals/internal/models"
)

// ParentalControlRecord pairs a stored parental control with its subject
type ParentalControlRecord struct {
	Subject         models.Subject         `json:"subject"`
	ParentalControl models.ParentalControl `json:"parental_control"`
}

// ParentalControlRepository handles database operations for parental controls
type ParentalControlRepository struct {
	db *database.DB
}

// NewParentalControlRepository creates a new parental control repository
func NewParentalControlRepository(db *database.DB) *ParentalControlRepository {
	return &ParentalControlRepository{db: db}
}

const parentalControlColumns = `activated, pin_hash, gate_sound, gate_accessibility, gate_statistics,
	gate_about, gate_profile, user_modified, updated_at`

// GetOrCreate returns the parental control for subject, inserting an
// unconfigured row first if the subject has none
func (r *ParentalControlRepository) GetOrCreate(subject models.Subject) (*models.ParentalControl, error) {
	if err := insertDefaultParentalControl(r.db, subject); err != nil {
		return nil, storageError("create parental control", err)
	}
	pc, err := getParentalControl(r.db, subject)
	if err != nil {
		return nil, storageError("get parental control", err)
	}
	return pc, nil
}

// Get returns the parental control for subject without creating it, or nil if it has none
func (r *ParentalControlRepository) Get(subject models.Subject) (*models.ParentalControl, error) {
	pc, err := getParentalControl(r.db, subject)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get parental control", err)
	}
	return pc, nil
}

// Save applies a partial update. The stored PIN hash is only replaced when
// update carries a non-empty hash.
func (r *ParentalControlRepository) Save(subject models.Subject, update models.ParentalControlUpdate, userModified bool) (*models.ParentalControl, error) {
	var saved *models.ParentalControl
	err := r.db.WithinTx(func(tx *database.Tx) error {
		if err := insertDefaultParentalControl(tx, subject); err != nil {
			return err
		}
		pc, err := getParentalControl(tx, subject)
		if err != nil {
			return err
		}
		update.Apply(pc)
		pc.UserModified = pc.UserModified || userModified
		if err := putParentalControl(tx, subject, *pc); err != nil {
			return err
		}
		saved, err = getParentalControl(tx, subject)
		return err
	})
	if err != nil {
		return nil, storageError("save parental control", err)
	}
	return saved, nil
}

// Restore overwrites subject's parental control with pc unless a user has
// modified the stored row on this device. It reports whether the row was written.
func (r *ParentalControlRepository) Restore(subject models.Subject, pc models.ParentalControl) (bool, error) {
	var applied bool
	err := r.db.WithinTx(func(tx *database.Tx) error {
		if err := insertDefaultParentalControl(tx, subject); err != nil {
			return err
		}
		current, err := getParentalControl(tx, subject)
		if err != nil {
			return err
		}
		if current.UserModified {
			return nil
		}
		if pc.PinHash == "" {
			pc.PinHash = current.PinHash
		}
		pc.UserModified = false
		applied = true
		return putParentalControl(tx, subject, pc)
	})
	if err != nil {
		return false, storageError("restore parental control", err)
	}
	return applied, nil
}

// Put writes every field of pc, including an empty PIN hash
func (r *ParentalControlRepository) Put(subject models.Subject, pc models.ParentalControl) error {
	err := r.db.WithinTx(func(tx *database.Tx) error {
		return putParentalControl(tx, subject, pc)
	})
	if err != nil {
		return storageError("put parental control", err)
	}
	return nil
}

// All returns every stored parental control
func (r *ParentalControlRepository) All() ([]ParentalControlRecord, error) {
	rows, err := r.db.Query("SELECT subject_id, profile_id, " + parentalControlColumns + " FROM parental_controls ORDER BY subject_id, profile_id")
	if err != nil {
		return nil, storageError("query parental controls", err)
	}
	defer rows.Close()

	var records []ParentalControlRecord
	for rows.Next() {
		var rec ParentalControlRecord
		p := &rec.ParentalControl
		if err := rows.Scan(
			&rec.Subject.IdentityID,
			&rec.Subject.ProfileID,
			&p.Activated,
			&p.PinHash,
			&p.Gates.Sound,
			&p.Gates.Accessibility,
			&p.Gates.Statistics,
			&p.Gates.About,
			&p.Gates.Profile,
			&p.UserModified,
			&p.UpdatedAt,
		); err != nil {
			return nil, storageError("scan parental control", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("query parental controls", err)
	}
	return records, nil
}

func getParentalControl(q database.DBTX, subject models.Subject) (*models.ParentalControl, error) {
	query := "SELECT " + parentalControlColumns + " FROM parental_controls WHERE subject_id = ? AND profile_id = ?"
	p := &models.ParentalControl{}
	err := q.QueryRow(query, subject.IdentityID, subject.ProfileID).Scan(
		&p.Activated,
		&p.PinHash,
		&p.Gates.Sound,
		&p.Gates.Accessibility,
		&p.Gates.Statistics,
		&p.Gates.About,
		&p.Gates.Profile,
		&p.UserModified,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func insertDefaultParentalControl(q database.DBTX, subject models.Subject) error {
	query := q.GetDialect().InsertIgnoreQuery("parental_controls", "subject_id", "profile_id")
	_, err := q.Exec(query, subject.IdentityID, subject.ProfileID)
	return err
}

func putParentalControl(q database.DBTX, subject models.Subject, p models.ParentalControl) error {
	if err := insertDefaultParentalControl(q, subject); err != nil {
		return err
	}
	query := `
		UPDATE parental_controls
		SET activated = ?, pin_hash = ?, gate_sound = ?, gate_accessibility = ?, gate_statistics = ?,
			gate_about = ?, gate_profile = ?, user_modified = ?, updated_at = CURRENT_TIMESTAMP
		WHERE subject_id = ? AND profile_id = ?
	`
	_, err := q.Exec(query,
		p.Activated, p.PinHash, p.Gates.Sound, p.Gates.Accessibility, p.Gates.Statistics,
		p.Gates.About, p.Gates.Profile, p.UserModified, subject.IdentityID, subject.ProfileID)
	return err
}

func deleteParentalControl(q database.DBTX, subject models.Subject) error {
	_, err := q.Exec("DELETE FROM parental_controls WHERE subject_id = ? AND profile_id = ?", subject.IdentityID, subject.ProfileID)
	return err
}
