package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"puzzlepals/internal/database"
	"puzzlepals/internal/models"
)

// AccountRepository handles database operations for guardian accounts and
// revoked refresh tokens
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with a random ID
func (r *AccountRepository) Create(email, passwordHash string) (*models.Account, error) {
	account := &models.Account{
		ID:           models.IdentityID(uuid.NewString()),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	query := `
		INSERT INTO accounts (id, email, password_hash)
		VALUES (?, ?, ?)
	`
	if _, err := r.db.Exec(query, account.ID, account.Email, account.PasswordHash); err != nil {
		return nil, storageError("create account", err)
	}

	return account, nil
}

// GetByEmail retrieves an account by email address
func (r *AccountRepository) GetByEmail(email string) (*models.Account, error) {
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM accounts
		WHERE email = ?
	`
	return r.get(query, email)
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(id models.IdentityID) (*models.Account, error) {
	query := `
		SELECT id, email, password_hash, created_at, updated_at
		FROM accounts
		WHERE id = ?
	`
	return r.get(query, id)
}

func (r *AccountRepository) get(query string, arg interface{}) (*models.Account, error) {
	account := &models.Account{}
	err := r.db.QueryRow(query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get account", err)
	}

	return account, nil
}

// All returns every account ordered by email
func (r *AccountRepository) All() ([]models.Account, error) {
	rows, err := r.db.Query("SELECT id, email, password_hash, created_at, updated_at FROM accounts ORDER BY email")
	if err != nil {
		return nil, storageError("query accounts", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, storageError("scan account", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate accounts", err)
	}
	return accounts, nil
}

// Put inserts an account with its existing ID, keeping an existing row untouched
func (r *AccountRepository) Put(a models.Account) error {
	query := r.db.GetDialect().InsertIgnoreQuery("accounts", "id", "email", "password_hash", "created_at", "updated_at")
	if _, err := r.db.Exec(query, a.ID, a.Email, a.PasswordHash, a.CreatedAt.UTC(), a.UpdatedAt.UTC()); err != nil {
		return storageError("put account", err)
	}
	return nil
}

// UpdatePassword replaces an account's password hash
func (r *AccountRepository) UpdatePassword(id models.IdentityID, passwordHash string) error {
	query := "UPDATE accounts SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, passwordHash, id); err != nil {
		return storageError("update password", err)
	}
	return nil
}

// Delete removes an account and its revoked tokens
func (r *AccountRepository) Delete(id models.IdentityID) error {
	err := r.db.WithinTx(func(tx *database.Tx) error {
		if _, err := tx.Exec("DELETE FROM revoked_tokens WHERE account_id = ?", id); err != nil {
			return err
		}
		_, err := tx.Exec("DELETE FROM accounts WHERE id = ?", id)
		return err
	})
	if err != nil {
		return storageError("delete account", err)
	}
	return nil
}

// RevokeToken records a token ID that must no longer be accepted
func (r *AccountRepository) RevokeToken(token models.RevokedToken) error {
	query := r.db.Dialect.InsertIgnoreQuery("revoked_tokens", "token_id", "account_id", "expires_at")
	if _, err := r.db.Exec(query, token.TokenID, token.AccountID, token.ExpiresAt.UTC()); err != nil {
		return storageError("revoke token", err)
	}
	return nil
}

// IsTokenRevoked reports whether tokenID was revoked
func (r *AccountRepository) IsTokenRevoked(tokenID string) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM revoked_tokens WHERE token_id = ?", tokenID).Scan(&count); err != nil {
		return false, storageError("check revoked token", err)
	}
	return count > 0, nil
}

// DeleteExpiredRevocations removes revocations whose tokens expired on their own
func (r *AccountRepository) DeleteExpiredRevocations() (int64, error) {
	result, err := r.db.Exec("DELETE FROM revoked_tokens WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, storageError("delete expired revocations", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storageError("delete expired revocations", err)
	}
	return n, nil
}
