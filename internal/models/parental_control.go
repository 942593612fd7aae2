package models

import (
	"fmt"
	"time"
)

// Section names a settings area that can be locked behind the guardian PIN
type Section string

const (
	SectionSound         Section = "sound"
	SectionAccessibility Section = "accessibility"
	SectionStatistics    Section = "statistics"
	SectionAbout         Section = "about"
	SectionProfile       Section = "profile"
)

// Sections lists every lockable section
var Sections = []Section{SectionSound, SectionAccessibility, SectionStatistics, SectionAbout, SectionProfile}

// ParseSection converts a section name into a Section
func ParseSection(name string) (Section, error) {
	for _, s := range Sections {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", name)
}

// SectionGates holds the per-section lock flags
type SectionGates struct {
	Sound         bool `json:"sound"`
	Accessibility bool `json:"accessibility"`
	Statistics    bool `json:"statistics"`
	About         bool `json:"about"`
	Profile       bool `json:"profile"`
}

// Locked returns the gate flag for section
func (g SectionGates) Locked(section Section) bool {
	switch section {
	case SectionSound:
		return g.Sound
	case SectionAccessibility:
		return g.Accessibility
	case SectionStatistics:
		return g.Statistics
	case SectionAbout:
		return g.About
	case SectionProfile:
		return g.Profile
	}
	return false
}

// With returns a copy of g with the flag for section set to locked
func (g SectionGates) With(section Section, locked bool) SectionGates {
	switch section {
	case SectionSound:
		g.Sound = locked
	case SectionAccessibility:
		g.Accessibility = locked
	case SectionStatistics:
		g.Statistics = locked
	case SectionAbout:
		g.About = locked
	case SectionProfile:
		g.Profile = locked
	}
	return g
}

// ParentalControl holds the guardian PIN and lock flags for a subject
type ParentalControl struct {
	Activated    bool         `json:"activated"`
	PinHash      string       `json:"pin_hash"` // empty = unset
	Gates        SectionGates `json:"gates"`
	UserModified bool         `json:"user_modified"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsConfigured reports whether the control is active and has a PIN.
// An activated control without a PIN does not lock anything.
func (p ParentalControl) IsConfigured() bool {
	return p.Activated && p.PinHash != ""
}

// ParentalControlUpdate is a partial update. PinHash is only written when non-empty.
type ParentalControlUpdate struct {
	Activated *bool
	PinHash   string
	Gates     *SectionGates
}

// Apply copies the set fields of u onto p
func (u ParentalControlUpdate) Apply(p *ParentalControl) {
	if u.Activated != nil {
		p.Activated = *u.Activated
	}
	if u.PinHash != "" {
		p.PinHash = u.PinHash
	}
	if u.Gates != nil {
		p.Gates = *u.Gates
	}
}
