package models

import "time"

const (
	MinColorIntensity     = 1
	MaxColorIntensity     = 5
	DefaultColorIntensity = 3

	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 50
)

// Configuration holds the per-subject game settings
type Configuration struct {
	ColorIntensity   int  `json:"color_intensity"`
	AutoNarrator     bool `json:"auto_narrator"`
	SoundEnabled     bool `json:"sound_enabled"`
	GeneralVolume    int  `json:"general_volume"`
	MusicVolume      int  `json:"music_volume"`
	EffectsVolume    int  `json:"effects_volume"`
	NarratorVolume   int  `json:"narrator_volume"`
	VibrationEnabled bool `json:"vibration_enabled"`

	// UserModified is set once a user edits the row on this device
	UserModified bool      `json:"user_modified"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultConfiguration returns the settings created for a subject that has none
func DefaultConfiguration() Configuration {
	return Configuration{
		ColorIntensity:   DefaultColorIntensity,
		AutoNarrator:     false,
		SoundEnabled:     true,
		GeneralVolume:    DefaultVolume,
		MusicVolume:      DefaultVolume,
		EffectsVolume:    DefaultVolume,
		NarratorVolume:   DefaultVolume,
		VibrationEnabled: false,
	}
}

// Clamp forces every ranged field into its declared range
func (c *Configuration) Clamp() {
	c.ColorIntensity = clamp(c.ColorIntensity, MinColorIntensity, MaxColorIntensity)
	c.GeneralVolume = clamp(c.GeneralVolume, MinVolume, MaxVolume)
	c.MusicVolume = clamp(c.MusicVolume, MinVolume, MaxVolume)
	c.EffectsVolume = clamp(c.EffectsVolume, MinVolume, MaxVolume)
	c.NarratorVolume = clamp(c.NarratorVolume, MinVolume, MaxVolume)
}

// ConfigurationUpdate is a partial update; nil fields keep their stored value
type ConfigurationUpdate struct {
	ColorIntensity   *int
	AutoNarrator     *bool
	SoundEnabled     *bool
	GeneralVolume    *int
	MusicVolume      *int
	EffectsVolume    *int
	NarratorVolume   *int
	VibrationEnabled *bool
}

// Apply copies the set fields of u onto c and clamps the result
func (u ConfigurationUpdate) Apply(c *Configuration) {
	if u.ColorIntensity != nil {
		c.ColorIntensity = *u.ColorIntensity
	}
	if u.AutoNarrator != nil {
		c.AutoNarrator = *u.AutoNarrator
	}
	if u.SoundEnabled != nil {
		c.SoundEnabled = *u.SoundEnabled
	}
	if u.GeneralVolume != nil {
		c.GeneralVolume = *u.GeneralVolume
	}
	if u.MusicVolume != nil {
		c.MusicVolume = *u.MusicVolume
	}
	if u.EffectsVolume != nil {
		c.EffectsVolume = *u.EffectsVolume
	}
	if u.NarratorVolume != nil {
		c.NarratorVolume = *u.NarratorVolume
	}
	if u.VibrationEnabled != nil {
		c.VibrationEnabled = *u.VibrationEnabled
	}
	c.Clamp()
}

// FullUpdate returns an update that overwrites every field with the values of c
func FullUpdate(c Configuration) ConfigurationUpdate {
	return ConfigurationUpdate{
		ColorIntensity:   &c.ColorIntensity,
		AutoNarrator:     &c.AutoNarrator,
		SoundEnabled:     &c.SoundEnabled,
		GeneralVolume:    &c.GeneralVolume,
		MusicVolume:      &c.MusicVolume,
		EffectsVolume:    &c.EffectsVolume,
		NarratorVolume:   &c.NarratorVolume,
		VibrationEnabled: &c.VibrationEnabled,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
