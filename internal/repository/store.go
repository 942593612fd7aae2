package repository

import (
	"errors"
	"fmt"

	"puzzlepals/internal/database"
	"puzzlepals/internal/models"
)

// ErrStorage marks every failure reported by the local store
var ErrStorage = errors.New("storage error")

func storageError(action string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", action, ErrStorage, err)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// Store groups the typed repositories that share one local database
type Store struct {
	db *database.DB

	Identities       *IdentityRepository
	Profiles         *ProfileRepository
	Configurations   *ConfigurationRepository
	ParentalControls *ParentalControlRepository
	Statistics       *StatisticsRepository
	Accounts         *AccountRepository
}

// NewStore creates the repositories for db
func NewStore(db *database.DB) *Store {
	return &Store{
		db:               db,
		Identities:       NewIdentityRepository(db),
		Profiles:         NewProfileRepository(db),
		Configurations:   NewConfigurationRepository(db),
		ParentalControls: NewParentalControlRepository(db),
		Statistics:       NewStatisticsRepository(db),
		Accounts:         NewAccountRepository(db),
	}
}

// DB returns the underlying database
func (s *Store) DB() *database.DB {
	return s.db
}

// EnsureDefaults re-creates the default identity and its configuration and
// parental control rows if any of them is missing
func (s *Store) EnsureDefaults() error {
	err := s.db.WithinTx(func(tx *database.Tx) error {
		if err := insertDefaultIdentity(tx); err != nil {
			return err
		}
		def := models.DefaultIdentity().Subject()
		if err := insertDefaultConfiguration(tx, def); err != nil {
			return err
		}
		return insertDefaultParentalControl(tx, def)
	})
	if err != nil {
		return storageError("ensure default rows", err)
	}
	return nil
}

// ResetIdentity returns an identity's local data to the state of a freshly
// created identity: its profiles and statistics are removed and its own
// configuration and parental control rows are rewritten with defaults.
func (s *Store) ResetIdentity(id models.IdentityID) error {
	err := s.db.WithinTx(func(tx *database.Tx) error {
		rows, err := tx.Query("SELECT id FROM profiles WHERE owner_id = ?", id)
		if err != nil {
			return err
		}
		var profileIDs []int64
		for rows.Next() {
			var pid int64
			if err := rows.Scan(&pid); err != nil {
				rows.Close()
				return err
			}
			profileIDs = append(profileIDs, pid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, pid := range profileIDs {
			if err := deleteProfileRows(tx, pid); err != nil {
				return err
			}
		}

		subject := models.Subject{IdentityID: id}
		if err := deleteStatistics(tx, subject); err != nil {
			return err
		}
		if err := putConfiguration(tx, subject, models.DefaultConfiguration()); err != nil {
			return err
		}
		return putParentalControl(tx, subject, models.ParentalControl{})
	})
	if err != nil {
		return storageError("reset identity", err)
	}
	return nil
}
