package models

import "time"

// SnapshotSchemaVersion is bumped whenever the remote document shape changes
const SnapshotSchemaVersion = 1

// RemoteSnapshot is the denormalized per-identity document mirrored to the remote store.
// It is never a source of truth.
type RemoteSnapshot struct {
	SchemaVersion   int                   `json:"schema_version"`
	IdentityID      IdentityID            `json:"identity_id"`
	Email           string                `json:"email,omitempty"`
	Configuration   ConfigurationSnapshot `json:"configuration"`
	ParentalControl ParentalSnapshot      `json:"parental_control"`
	Profiles        []ProfileSnapshot     `json:"profiles,omitempty"`
	Statistics      []LevelStats          `json:"statistics,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	LastLogin       time.Time             `json:"last_login"`
	LastUpdate      time.Time             `json:"last_update"`
}

// ConfigurationSnapshot is the wire form of a Configuration
type ConfigurationSnapshot struct {
	ColorIntensity   int  `json:"color_intensity"`
	AutoNarrator     bool `json:"auto_narrator"`
	SoundEnabled     bool `json:"sound_enabled"`
	GeneralVolume    int  `json:"general_volume"`
	MusicVolume      int  `json:"music_volume"`
	EffectsVolume    int  `json:"effects_volume"`
	NarratorVolume   int  `json:"narrator_volume"`
	VibrationEnabled bool `json:"vibration_enabled"`
}

// ParentalSnapshot is the wire form of a ParentalControl
type ParentalSnapshot struct {
	Activated bool         `json:"activated"`
	PinHash   string       `json:"pin_hash,omitempty"`
	Gates     SectionGates `json:"gates"`
}

// ProfileSnapshot carries a child profile and its settings by name,
// since profile ids are assigned per device.
type ProfileSnapshot struct {
	Name            string                `json:"name"`
	Gender          string                `json:"gender"`
	Configuration   ConfigurationSnapshot `json:"configuration"`
	ParentalControl ParentalSnapshot      `json:"parental_control"`
	Statistics      []LevelStats          `json:"statistics,omitempty"`
}

// SnapshotConfiguration converts a Configuration to its wire form
func SnapshotConfiguration(c Configuration) ConfigurationSnapshot {
	return ConfigurationSnapshot{
		ColorIntensity:   c.ColorIntensity,
		AutoNarrator:     c.AutoNarrator,
		SoundEnabled:     c.SoundEnabled,
		GeneralVolume:    c.GeneralVolume,
		MusicVolume:      c.MusicVolume,
		EffectsVolume:    c.EffectsVolume,
		NarratorVolume:   c.NarratorVolume,
		VibrationEnabled: c.VibrationEnabled,
	}
}

// Configuration converts the wire form back, clamping out-of-range values
func (s ConfigurationSnapshot) Configuration() Configuration {
	c := Configuration{
		ColorIntensity:   s.ColorIntensity,
		AutoNarrator:     s.AutoNarrator,
		SoundEnabled:     s.SoundEnabled,
		GeneralVolume:    s.GeneralVolume,
		MusicVolume:      s.MusicVolume,
		EffectsVolume:    s.EffectsVolume,
		NarratorVolume:   s.NarratorVolume,
		VibrationEnabled: s.VibrationEnabled,
	}
	c.Clamp()
	return c
}

// SnapshotParental converts a ParentalControl to its wire form
func SnapshotParental(p ParentalControl) ParentalSnapshot {
	return ParentalSnapshot{Activated: p.Activated, PinHash: p.PinHash, Gates: p.Gates}
}

// ParentalControl converts the wire form back
func (s ParentalSnapshot) ParentalControl() ParentalControl {
	return ParentalControl{Activated: s.Activated, PinHash: s.PinHash, Gates: s.Gates}
}
