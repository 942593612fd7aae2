package service

import (
	"time"

	"puzzlepals/internal/models"
	"puzzlepals/internal/security"
	"puzzlepals/internal/validation"
)

func (s *ServiceSuite) TestNoLockWithoutPin() {
	identity := s.signUp("guardian@example.com")

	for _, section := range models.Sections {
		s.False(s.parental.IsSectionLocked(identity.Subject(), section))
	}

	ok, err := s.parental.VerifyPin(identity.Subject(), "0000")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestPinLocksSection() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	s.Require().NoError(s.parental.SetSectionLocked(a.Subject(), models.SectionStatistics, true))

	s.True(s.parental.IsSectionLocked(a.Subject(), models.SectionStatistics))
	s.False(s.parental.IsSectionLocked(a.Subject(), models.SectionSound))

	ok, err := s.parental.VerifyPin(a.Subject(), "1234")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.parental.VerifyPin(a.Subject(), "0000")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestSetPinNotifiesSync() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	s.Equal([]models.Subject{a.Subject()}, s.sync.parentals)
}

func (s *ServiceSuite) TestSetPinValidation() {
	s.signUp("guardian@example.com")

	tests := []struct {
		name    string
		pin     string
		confirm string
	}{
		{"empty", "", ""},
		{"too short", "123", "123"},
		{"too long", "12345", "12345"},
		{"letters", "12a4", "12a4"},
		{"mismatch", "1234", "1235"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			err := s.parental.SetPin(tt.pin, tt.confirm)
			s.True(validation.IsValidationError(err))
		})
	}

	pc, err := s.parental.Control()
	s.Require().NoError(err)
	s.Empty(pc.PinHash)
	s.False(pc.Activated)
}

func (s *ServiceSuite) TestSetPinStripsWhitespace() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin(" 12 34 ", "1234"))

	ok, err := s.parental.VerifyPin(a.Subject(), "1 2 3 4")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestFailedSetPinKeepsPriorPin() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	before, err := s.parental.Control()
	s.Require().NoError(err)

	err = s.parental.SetPin("5678", "5679")
	s.True(validation.IsValidationError(err))

	after, err := s.parental.Control()
	s.Require().NoError(err)
	s.Equal(before.PinHash, after.PinHash)

	ok, err := s.parental.VerifyPin(a.Subject(), "1234")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestSetPinKeepsGates() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetSectionLocked(a.Subject(), models.SectionAbout, true))
	s.Require().NoError(s.parental.SetPin("1234", "1234"))

	s.True(s.parental.IsSectionLocked(a.Subject(), models.SectionAbout))
}

func (s *ServiceSuite) TestProfileFallsBackToOwner() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	s.Require().NoError(s.parental.SetSectionLocked(a.Subject(), models.SectionSound, true))

	profile := s.createProfile("Bea")
	s.True(s.parental.IsSectionLocked(profile.Subject(), models.SectionSound))

	ok, err := s.parental.VerifyPin(profile.Subject(), "1234")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestConfiguredProfileShadowsOwner() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	s.Require().NoError(s.parental.SetSectionLocked(a.Subject(), models.SectionSound, true))

	profile := s.createProfile("Bea")
	s.Require().NoError(s.profiles.SelectProfile(profile.ID, profile.Name))
	s.Require().NoError(s.parental.SetPin("9999", "9999"))

	// The profile's own control has no gates, and nothing is merged from the owner
	s.False(s.parental.IsSectionLocked(profile.Subject(), models.SectionSound))

	ok, err := s.parental.VerifyPin(profile.Subject(), "1234")
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.parental.VerifyPin(profile.Subject(), "9999")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestFallsBackToDefaultAccount() {
	s.Require().NoError(s.parental.SetPin("4321", "4321"))
	s.Require().NoError(s.parental.SetSectionLocked(models.DefaultIdentity().Subject(), models.SectionProfile, true))

	a := s.signUp("guardian@example.com")
	s.True(s.parental.IsSectionLocked(a.Subject(), models.SectionProfile))

	ok, err := s.parental.VerifyPin(a.Subject(), "4321")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestActivatedWithoutPinDoesNotLock() {
	a := s.signUp("guardian@example.com")
	gates := models.SectionGates{Statistics: true}
	_, err := s.store.ParentalControls.Save(a.Subject(), models.ParentalControlUpdate{Activated: boolPtr(true), Gates: &gates}, true)
	s.Require().NoError(err)

	s.False(s.parental.IsSectionLocked(a.Subject(), models.SectionStatistics))

	ok, err := s.parental.VerifyPin(a.Subject(), "0000")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestDeactivateKeepsPinAndGates() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	s.Require().NoError(s.parental.SetSectionLocked(a.Subject(), models.SectionStatistics, true))

	s.ErrorIs(s.parental.Deactivate(a.Subject(), "0000"), ErrIncorrectPin)
	s.True(s.parental.IsSectionLocked(a.Subject(), models.SectionStatistics))

	s.Require().NoError(s.parental.Deactivate(a.Subject(), "1234"))
	s.False(s.parental.IsSectionLocked(a.Subject(), models.SectionStatistics))

	pc, err := s.parental.Control()
	s.Require().NoError(err)
	s.False(pc.Activated)
	s.NotEmpty(pc.PinHash)
	s.True(pc.Gates.Statistics)

	s.Require().NoError(s.parental.Activate(a.Subject()))
	s.True(s.parental.IsSectionLocked(a.Subject(), models.SectionStatistics))

	ok, err := s.parental.VerifyPin(a.Subject(), "1234")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestDeactivateFromProfileTurnsOffOwnerControl() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	s.Require().NoError(s.parental.SetSectionLocked(a.Subject(), models.SectionSound, true))
	profile := s.createProfile("Bea")

	s.Require().NoError(s.parental.Deactivate(profile.Subject(), "1234"))
	s.False(s.parental.IsSectionLocked(profile.Subject(), models.SectionSound))
	s.False(s.parental.IsSectionLocked(a.Subject(), models.SectionSound))
}

func (s *ServiceSuite) TestActivateRequiresPin() {
	a := s.signUp("guardian@example.com")
	err := s.parental.Activate(a.Subject())
	s.True(validation.IsValidationError(err))
}

func (s *ServiceSuite) TestVerifyPinLockout() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))

	for i := 0; i < 5; i++ {
		ok, err := s.parental.VerifyPin(a.Subject(), "0000")
		s.Require().NoError(err)
		s.False(ok)
	}

	ok, err := s.parental.VerifyPin(a.Subject(), "1234")
	s.ErrorIs(err, security.ErrTooManyAttempts)
	s.False(ok)

	s.clock.Advance(time.Minute + time.Second)
	ok, err = s.parental.VerifyPin(a.Subject(), "1234")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *ServiceSuite) TestLockoutIsSharedAcrossSubjects() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	bea := s.createProfile("Bea")
	leo := s.createProfile("Leo")

	// Guesses from the account and both profiles all hit the owner's PIN
	for _, subject := range []models.Subject{a.Subject(), bea.Subject(), leo.Subject(), bea.Subject(), leo.Subject()} {
		ok, err := s.parental.VerifyPin(subject, "0000")
		s.Require().NoError(err)
		s.False(ok)
	}

	for _, subject := range []models.Subject{a.Subject(), bea.Subject(), leo.Subject()} {
		ok, err := s.parental.VerifyPin(subject, "1234")
		s.ErrorIs(err, security.ErrTooManyAttempts)
		s.False(ok)
	}
}

func (s *ServiceSuite) TestVerifyPinWithCorruptHashNeverGrants() {
	a := s.signUp("guardian@example.com")
	err := s.store.ParentalControls.Put(a.Subject(), models.ParentalControl{
		Activated: true,
		PinHash:   "not-a-bcrypt-hash",
		Gates:     models.SectionGates{Statistics: true},
	})
	s.Require().NoError(err)

	ok, err := s.parental.VerifyPin(a.Subject(), "1234")
	s.Error(err)
	s.False(ok)
	s.True(s.parental.IsSectionLocked(a.Subject(), models.SectionStatistics))
}

func (s *ServiceSuite) TestStorageFailureDegradesToUnlocked() {
	a := s.signUp("guardian@example.com")
	s.Require().NoError(s.parental.SetPin("1234", "1234"))
	s.Require().NoError(s.parental.SetSectionLocked(a.Subject(), models.SectionStatistics, true))

	_, err := s.store.DB().Exec("DROP TABLE parental_controls")
	s.Require().NoError(err)

	s.False(s.parental.IsSectionLocked(a.Subject(), models.SectionStatistics))

	ok, err := s.parental.VerifyPin(a.Subject(), "1234")
	s.Error(err)
	s.False(ok)
}
