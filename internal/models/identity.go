package models

// IdentityID identifies an account or the default account
type IdentityID string

// DefaultIdentityID is the reserved identity used when no account session exists.
// Its rows always exist in the local store and are never deleted.
const DefaultIdentityID IdentityID = "1"

// IsDefaultIdentity reports whether id is the reserved default identity
func IsDefaultIdentity(id IdentityID) bool {
	return id == DefaultIdentityID
}

// IdentityKind distinguishes authenticated accounts from the default account
type IdentityKind string

const (
	KindAccount        IdentityKind = "account"
	KindDefaultAccount IdentityKind = "default"
)

// Identity represents the actor performing an action
type Identity struct {
	ID         IdentityID   `json:"id"`
	Kind       IdentityKind `json:"kind"`
	Email      string       `json:"email"`
	IsGuardian bool         `json:"is_guardian"`
}

// DefaultIdentity returns the credential-less sentinel identity
func DefaultIdentity() Identity {
	return Identity{ID: DefaultIdentityID, Kind: KindDefaultAccount}
}

// IsDefault reports whether this is the default account
func (i Identity) IsDefault() bool {
	return IsDefaultIdentity(i.ID)
}

// Subject returns the identity-scoped subject for this identity
func (i Identity) Subject() Subject {
	return Subject{IdentityID: i.ID}
}
