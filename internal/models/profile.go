package models

import (
	"fmt"
	"time"
)

// Profile represents a child profile owned by a guardian account
type Profile struct {
	ID        int64      `json:"id"`
	OwnerID   IdentityID `json:"owner_id"`
	Name      string     `json:"name"`
	Gender    string     `json:"gender"`
	CreatedAt time.Time  `json:"created_at"`
}

// Subject returns the profile-scoped subject for this profile
func (p Profile) Subject() Subject {
	return Subject{IdentityID: p.OwnerID, ProfileID: p.ID}
}

// Subject is the effective identity-or-profile whose data is read and written.
// ProfileID == 0 means the subject is not profile-scoped.
type Subject struct {
	IdentityID IdentityID `json:"identity_id"`
	ProfileID  int64      `json:"profile_id"`
}

// IsProfile reports whether the subject is a child profile
func (s Subject) IsProfile() bool {
	return s.ProfileID > 0
}

// Owner returns the identity-scoped subject that owns s
func (s Subject) Owner() Subject {
	return Subject{IdentityID: s.IdentityID}
}

// FallbackChain returns the lookup order used for parental controls:
// profile, owning account, then the default account.
func (s Subject) FallbackChain() []Subject {
	chain := []Subject{s}
	if s.IsProfile() {
		chain = append(chain, s.Owner())
	}
	def := Subject{IdentityID: DefaultIdentityID}
	if chain[len(chain)-1] != def {
		chain = append(chain, def)
	}
	return chain
}

func (s Subject) String() string {
	if s.IsProfile() {
		return fmt.Sprintf("%s/profile/%d", s.IdentityID, s.ProfileID)
	}
	return string(s.IdentityID)
}
