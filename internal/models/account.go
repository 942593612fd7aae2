package models

import "time"

// Account represents a guardian account known to the local auth backend
type Account struct {
	ID           IdentityID `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Identity returns the session identity for this account
func (a *Account) Identity() Identity {
	return Identity{ID: a.ID, Kind: KindAccount, Email: a.Email, IsGuardian: true}
}

// RevokedToken records a refresh token id invalidated by sign-out
type RevokedToken struct {
	TokenID   string
	AccountID IdentityID
	ExpiresAt time.Time
}
