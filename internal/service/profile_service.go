package service

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"puzzlepals/internal/models"
	"puzzlepals/internal/repository"
	"puzzlepals/internal/validation"
)

// ProfileSelection is the resolver state. A zero ProfileID means no profile
// is active.
type ProfileSelection struct {
	ProfileID int64
	Name      string
	OwnerID   models.IdentityID
}

// Active reports whether a profile is selected
func (p ProfileSelection) Active() bool {
	return p.ProfileID > 0
}

// ProfileService tracks the active child profile for this device session and
// validates it against the active identity on every read
type ProfileService struct {
	identities IdentityProvider
	store      *repository.Store
	sync       SyncNotifier
	logger     *slog.Logger

	mu        sync.Mutex
	selection ProfileSelection
}

// NewProfileService creates a profile service with no profile selected
func NewProfileService(identities IdentityProvider, store *repository.Store, notifier SyncNotifier, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		identities: identities,
		store:      store,
		sync:       notifier,
		logger:     logger,
	}
}

// SelectProfile makes profile id active for the current identity
func (s *ProfileService) SelectProfile(id int64, name string) error {
	if id <= 0 {
		return validation.ValidationError{Field: "profile_id", Message: "profile id must be positive"}
	}
	owner := s.identities.Active().ID

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = ProfileSelection{ProfileID: id, Name: name, OwnerID: owner}
	return nil
}

// Clear drops the profile selection
func (s *ProfileService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = ProfileSelection{}
}

// Selection returns the current selection without validating it
func (s *ProfileService) Selection() ProfileSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// OnIdentityChanged clears a selection made under another identity
func (s *ProfileService) OnIdentityChanged(identity models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.Active() && s.selection.OwnerID != identity.ID {
		s.logger.Info("identity changed, clearing profile selection",
			slog.Int64("profile_id", s.selection.ProfileID),
			slog.String("identity", string(identity.ID)))
		s.selection = ProfileSelection{}
	}
}

// EffectiveSubject returns the selected profile when it still exists and
// belongs to the active identity, and the identity itself otherwise. A stale
// selection is cleared.
func (s *ProfileService) EffectiveSubject() models.Subject {
	identity := s.identities.Active()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selection.Active() {
		return identity.Subject()
	}

	if s.selection.OwnerID != identity.ID {
		s.invalidate("selected under another identity", identity)
		return identity.Subject()
	}

	profile, err := s.store.Profiles.GetByID(s.selection.ProfileID)
	if err != nil {
		s.logger.Error("failed to validate selected profile",
			slog.Int64("profile_id", s.selection.ProfileID),
			slog.String("error", err.Error()))
		return identity.Subject()
	}
	if profile == nil {
		s.invalidate("profile no longer exists", identity)
		return identity.Subject()
	}
	if profile.OwnerID != identity.ID {
		s.invalidate("profile owned by another identity", identity)
		return identity.Subject()
	}
	return profile.Subject()
}

// invalidate clears the selection; s.mu must be held
func (s *ProfileService) invalidate(reason string, identity models.Identity) {
	s.logger.Warn("clearing stale profile selection",
		slog.String("reason", reason),
		slog.Int64("profile_id", s.selection.ProfileID),
		slog.String("identity", string(identity.ID)))
	s.selection = ProfileSelection{}
}

// CreateProfile adds a child profile to the active guardian account. It is a
// logged no-op for the default account. A blank name gets a generated one.
func (s *ProfileService) CreateProfile(name, gender string) (*models.Profile, error) {
	identity := s.identities.Active()
	if identity.IsDefault() {
		s.logger.Info("profile creation ignored: no guardian signed in")
		return nil, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		generated, err := GenerateProfileName()
		if err != nil {
			return nil, fmt.Errorf("failed to generate profile name: %w", err)
		}
		name = generated
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	profile, err := s.store.Profiles.Create(identity.ID, name, strings.TrimSpace(gender))
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile created",
		slog.Int64("profile_id", profile.ID),
		slog.String("identity", string(identity.ID)))
	s.sync.OnConfigurationChanged(identity.Subject())
	return profile, nil
}

// DeleteLastProfile removes the most recently created profile of the active
// identity and returns it, or nil when there is none
func (s *ProfileService) DeleteLastProfile() (*models.Profile, error) {
	identity := s.identities.Active()
	if identity.IsDefault() {
		return nil, nil
	}

	last, err := s.store.Profiles.LastByOwner(identity.ID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}
	if err := s.store.Profiles.Delete(last.ID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.selection.ProfileID == last.ID {
		s.selection = ProfileSelection{}
	}
	s.mu.Unlock()

	s.logger.Info("profile deleted", slog.Int64("profile_id", last.ID))
	s.sync.OnConfigurationChanged(identity.Subject())
	return last, nil
}

// Profiles lists the active identity's profiles
func (s *ProfileService) Profiles() ([]models.Profile, error) {
	identity := s.identities.Active()
	if identity.IsDefault() {
		return nil, nil
	}
	return s.store.Profiles.ListByOwner(identity.ID)
}
