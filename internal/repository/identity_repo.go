package repository

import (
	"database/sql"
	"errors"

	"puzzlepals/internal/database"
	"puzzlepals/internal/models"
)

// IdentityRepository handles database operations for identities
type IdentityRepository struct {
	db *database.DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *database.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Upsert stores identity and reports whether it was new to this device.
// A new identity also gets its default configuration and parental control rows.
func (r *IdentityRepository) Upsert(identity models.Identity) (bool, error) {
	var created bool
	err := r.db.WithinTx(func(tx *database.Tx) error {
		query := tx.GetDialect().InsertIgnoreQuery("identities", "id", "kind", "email", "is_guardian")
		result, err := tx.Exec(query, identity.ID, identity.Kind, identity.Email, identity.IsGuardian)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		created = n > 0

		if !created {
			query = `
				UPDATE identities
				SET kind = ?, email = ?, is_guardian = ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`
			if _, err := tx.Exec(query, identity.Kind, identity.Email, identity.IsGuardian, identity.ID); err != nil {
				return err
			}
		}

		subject := identity.Subject()
		if err := insertDefaultConfiguration(tx, subject); err != nil {
			return err
		}
		return insertDefaultParentalControl(tx, subject)
	})
	if err != nil {
		return false, storageError("upsert identity", err)
	}
	return created, nil
}

// Get retrieves an identity by ID
func (r *IdentityRepository) Get(id models.IdentityID) (*models.Identity, error) {
	query := "SELECT id, kind, email, is_guardian FROM identities WHERE id = ?"
	identity, err := scanIdentity(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get identity", err)
	}
	return identity, nil
}

// List returns every identity known to this device
func (r *IdentityRepository) List() ([]models.Identity, error) {
	rows, err := r.db.Query("SELECT id, kind, email, is_guardian FROM identities ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, storageError("query identities", err)
	}
	defer rows.Close()

	var identities []models.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, storageError("scan identity", err)
		}
		identities = append(identities, *identity)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("query identities", err)
	}
	return identities, nil
}

func scanIdentity(row scanner) (*models.Identity, error) {
	identity := &models.Identity{}
	if err := row.Scan(&identity.ID, &identity.Kind, &identity.Email, &identity.IsGuardian); err != nil {
		return nil, err
	}
	return identity, nil
}

func insertDefaultIdentity(q database.DBTX) error {
	def := models.DefaultIdentity()
	query := q.GetDialect().InsertIgnoreQuery("identities", "id", "kind", "email", "is_guardian")
	_, err := q.Exec(query, def.ID, def.Kind, def.Email, def.IsGuardian)
	return err
}
