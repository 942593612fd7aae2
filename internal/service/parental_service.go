package service

import (
	"context"
	"log/slog"

	"puzzlepals/internal/models"
	"puzzlepals/internal/notify"
	"puzzlepals/internal/repository"
	"puzzlepals/internal/security"
	"puzzlepals/internal/validation"
)

// ParentalService gates settings sections behind the guardian PIN. Lookups
// walk from the subject to its owning account and then the default account,
// and the first configured control wins.
type ParentalService struct {
	store      *repository.Store
	identities IdentityProvider
	subjects   SubjectResolver
	limiter    *security.AttemptLimiter
	sync       SyncNotifier
	mailer     *notify.Mailer
	logger     *slog.Logger
}

// NewParentalService creates a parental control service
func NewParentalService(store *repository.Store, identities IdentityProvider, subjects SubjectResolver, limiter *security.AttemptLimiter, notifier SyncNotifier, mailer *notify.Mailer, logger *slog.Logger) *ParentalService {
	return &ParentalService{
		store:      store,
		identities: identities,
		subjects:   subjects,
		limiter:    limiter,
		sync:       notifier,
		mailer:     mailer,
		logger:     logger,
	}
}

// resolve returns the nearest configured control in subject's fallback chain
// and the subject that owns it, or nil when none is configured
func (s *ParentalService) resolve(subject models.Subject) (*models.ParentalControl, models.Subject, error) {
	for _, candidate := range subject.FallbackChain() {
		pc, err := s.store.ParentalControls.Get(candidate)
		if err != nil {
			return nil, models.Subject{}, err
		}
		if pc != nil && pc.IsConfigured() {
			return pc, candidate, nil
		}
	}
	return nil, models.Subject{}, nil
}

// Control returns the effective subject's own parental control row
func (s *ParentalService) Control() (*models.ParentalControl, error) {
	return s.store.ParentalControls.GetOrCreate(s.subjects.EffectiveSubject())
}

// IsSectionLocked reports whether section is locked for subject. Without a
// configured control nothing is locked; a storage error counts as unlocked.
func (s *ParentalService) IsSectionLocked(subject models.Subject, section models.Section) bool {
	pc, _, err := s.resolve(subject)
	if err != nil {
		s.logger.Error("failed to resolve parental control, treating section as unlocked",
			slog.String("subject", subject.String()),
			slog.String("section", string(section)),
			slog.String("error", err.Error()))
		return false
	}
	if pc == nil {
		return false
	}
	return pc.Gates.Locked(section)
}

// SetPin stores a new PIN for the effective subject and activates its
// control. Gate flags are kept.
func (s *ParentalService) SetPin(rawPin, confirmPin string) error {
	pin, err := validation.ValidatePin(rawPin, confirmPin)
	if err != nil {
		return err
	}
	hash, err := security.HashPin(pin)
	if err != nil {
		return err
	}

	subject := s.subjects.EffectiveSubject()
	activated := true
	if _, err := s.store.ParentalControls.Save(subject, models.ParentalControlUpdate{Activated: &activated, PinHash: hash}, true); err != nil {
		return err
	}
	s.limiter.Reset(subject.String())
	s.logger.Info("parental pin set", slog.String("subject", subject.String()))
	s.sync.OnParentalControlChanged(subject)

	identity := s.identities.Active()
	if err := s.mailer.SendPinChanged(context.Background(), identity.Email); err != nil {
		s.logger.Warn("failed to send pin change notice", slog.String("error", err.Error()))
	}
	return nil
}

// VerifyPin checks candidate against the nearest configured control for
// subject. Without a configured control access is granted. Errors never grant
// access, and after too many wrong PINs security.ErrTooManyAttempts is
// returned without consulting the hash. Failures count against the control
// that holds the PIN, whichever subject asked.
func (s *ParentalService) VerifyPin(subject models.Subject, candidate string) (bool, error) {
	pc, owner, err := s.resolve(subject)
	if err != nil {
		s.logger.Error("failed to resolve parental control for pin check",
			slog.String("subject", subject.String()),
			slog.String("error", err.Error()))
		return false, err
	}
	if pc == nil {
		return true, nil
	}

	key := owner.String()
	if err := s.limiter.Allow(key); err != nil {
		return false, err
	}

	ok, err := security.CheckPin(validation.NormalizePin(candidate), pc.PinHash)
	if err != nil {
		s.logger.Error("stored pin hash unusable", slog.String("subject", key), slog.String("error", err.Error()))
		return false, err
	}
	if !ok {
		s.limiter.Fail(key)
		return false, nil
	}
	s.limiter.Reset(key)
	return true, nil
}

// Deactivate turns off the control currently locking subject after checking
// pin. The PIN hash and gate flags are kept so the control can be activated
// again without a new PIN.
func (s *ParentalService) Deactivate(subject models.Subject, pin string) error {
	ok, err := s.VerifyPin(subject, pin)
	if err != nil {
		return err
	}
	if !ok {
		return ErrIncorrectPin
	}

	_, owner, err := s.resolve(subject)
	if err != nil {
		return err
	}
	target := subject
	if owner != (models.Subject{}) {
		target = owner
	}

	activated := false
	if _, err := s.store.ParentalControls.Save(target, models.ParentalControlUpdate{Activated: &activated}, true); err != nil {
		return err
	}
	s.logger.Info("parental control deactivated", slog.String("subject", target.String()))
	s.sync.OnParentalControlChanged(target)
	return nil
}

// Activate turns subject's control back on using its stored PIN
func (s *ParentalService) Activate(subject models.Subject) error {
	pc, err := s.store.ParentalControls.GetOrCreate(subject)
	if err != nil {
		return err
	}
	if pc.PinHash == "" {
		return validation.ValidationError{Field: "pin", Message: "set a pin before activating the lock"}
	}

	activated := true
	if _, err := s.store.ParentalControls.Save(subject, models.ParentalControlUpdate{Activated: &activated}, true); err != nil {
		return err
	}
	s.sync.OnParentalControlChanged(subject)
	return nil
}

// SetSectionLocked sets the gate flag for one section of subject's control
func (s *ParentalService) SetSectionLocked(subject models.Subject, section models.Section, locked bool) error {
	pc, err := s.store.ParentalControls.GetOrCreate(subject)
	if err != nil {
		return err
	}

	gates := pc.Gates.With(section, locked)
	if _, err := s.store.ParentalControls.Save(subject, models.ParentalControlUpdate{Gates: &gates}, true); err != nil {
		return err
	}
	s.sync.OnParentalControlChanged(subject)
	return nil
}
