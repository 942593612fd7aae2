package repository

import (
	"database/sql"
	"errors"

	"puzzlepals/internal/database"
	"puzzlepals/internal/models"
)

// ProfileRepository handles database operations for child profiles
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Profiles whose owner identity is gone are treated as missing
const profileSelect = `
	SELECT p.id, p.owner_id, p.name, p.gender, p.created_at
	FROM profiles p
	JOIN identities i ON i.id = p.owner_id
`

// Create inserts a new profile for owner
func (r *ProfileRepository) Create(owner models.IdentityID, name, gender string) (*models.Profile, error) {
	var profile *models.Profile
	err := r.db.WithinTx(func(tx *database.Tx) error {
		id, err := tx.ExecReturningID("INSERT INTO profiles (owner_id, name, gender) VALUES (?, ?, ?)", owner, name, gender)
		if err != nil {
			return err
		}
		profile, err = scanProfile(tx.QueryRow(profileSelect+" WHERE p.id = ?", id))
		return err
	})
	if err != nil {
		return nil, storageError("create profile", err)
	}
	return profile, nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(id int64) (*models.Profile, error) {
	profile, err := scanProfile(r.db.QueryRow(profileSelect+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get profile", err)
	}
	return profile, nil
}

// ListByOwner retrieves all profiles of owner, oldest first
func (r *ProfileRepository) ListByOwner(owner models.IdentityID) ([]models.Profile, error) {
	return r.list(" WHERE p.owner_id = ? ORDER BY p.id ASC", owner)
}

// All retrieves every reachable profile
func (r *ProfileRepository) All() ([]models.Profile, error) {
	return r.list(" ORDER BY p.id ASC")
}

// LastByOwner retrieves the most recently created profile of owner
func (r *ProfileRepository) LastByOwner(owner models.IdentityID) (*models.Profile, error) {
	profile, err := scanProfile(r.db.QueryRow(profileSelect+" WHERE p.owner_id = ? ORDER BY p.id DESC LIMIT 1", owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get last profile", err)
	}
	return profile, nil
}

// Delete removes a profile together with its configuration, parental control
// and statistics in one transaction
func (r *ProfileRepository) Delete(id int64) error {
	err := r.db.WithinTx(func(tx *database.Tx) error {
		return deleteProfileRows(tx, id)
	})
	if err != nil {
		return storageError("delete profile", err)
	}
	return nil
}

// Put inserts a profile with a fixed ID, keeping an existing row untouched
func (r *ProfileRepository) Put(p models.Profile) error {
	err := r.db.WithinTx(func(tx *database.Tx) error {
		query := tx.GetDialect().InsertIgnoreQuery("profiles", "id", "owner_id", "name", "gender")
		_, err := tx.Exec(query, p.ID, p.OwnerID, p.Name, p.Gender)
		return err
	})
	if err != nil {
		return storageError("put profile", err)
	}
	return nil
}

func (r *ProfileRepository) list(clause string, args ...interface{}) ([]models.Profile, error) {
	rows, err := r.db.Query(profileSelect+clause, args...)
	if err != nil {
		return nil, storageError("query profiles", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, storageError("scan profile", err)
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("query profiles", err)
	}
	return profiles, nil
}

func scanProfile(row scanner) (*models.Profile, error) {
	p := &models.Profile{}
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Gender, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func deleteProfileRows(q database.DBTX, id int64) error {
	var owner models.IdentityID
	err := q.QueryRow("SELECT owner_id FROM profiles WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	subject := models.Subject{IdentityID: owner, ProfileID: id}
	if err := deleteConfiguration(q, subject); err != nil {
		return err
	}
	if err := deleteParentalControl(q, subject); err != nil {
		return err
	}
	if err := deleteStatistics(q, subject); err != nil {
		return err
	}
	_, err = q.Exec("DELETE FROM profiles WHERE id = ?", id)
	return err
}
