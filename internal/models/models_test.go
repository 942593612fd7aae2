package models

import "testing"

func TestIsDefaultIdentity(t *testing.T) {
	if !IsDefaultIdentity(DefaultIdentityID) {
		t.Error("DefaultIdentityID should be the default identity")
	}
	if IsDefaultIdentity("acc-123") {
		t.Error("account id should not be the default identity")
	}
	if !DefaultIdentity().IsDefault() {
		t.Error("DefaultIdentity().IsDefault() = false")
	}
}

func TestFallbackChain(t *testing.T) {
	tests := []struct {
		name    string
		subject Subject
		want    []Subject
	}{
		{
			name:    "profile falls back to owner then default",
			subject: Subject{IdentityID: "acc", ProfileID: 7},
			want: []Subject{
				{IdentityID: "acc", ProfileID: 7},
				{IdentityID: "acc"},
				{IdentityID: DefaultIdentityID},
			},
		},
		{
			name:    "account falls back to default",
			subject: Subject{IdentityID: "acc"},
			want:    []Subject{{IdentityID: "acc"}, {IdentityID: DefaultIdentityID}},
		},
		{
			name:    "default has no fallback",
			subject: Subject{IdentityID: DefaultIdentityID},
			want:    []Subject{{IdentityID: DefaultIdentityID}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.subject.FallbackChain()
			if len(got) != len(tt.want) {
				t.Fatalf("FallbackChain() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FallbackChain()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestConfigurationClamp(t *testing.T) {
	tests := []struct {
		name  string
		input Configuration
		want  Configuration
	}{
		{
			name:  "in range unchanged",
			input: DefaultConfiguration(),
			want:  DefaultConfiguration(),
		},
		{
			name:  "color intensity too high",
			input: Configuration{ColorIntensity: 9, GeneralVolume: 50},
			want:  Configuration{ColorIntensity: 5, GeneralVolume: 50},
		},
		{
			name:  "negative values",
			input: Configuration{ColorIntensity: -2, MusicVolume: -10, EffectsVolume: 250, NarratorVolume: 101},
			want:  Configuration{ColorIntensity: 1, MusicVolume: 0, EffectsVolume: 100, NarratorVolume: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.input
			got.Clamp()
			if got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfigurationUpdateKeepsUnsetFields(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.MusicVolume = 10

	intensity := 4
	ConfigurationUpdate{ColorIntensity: &intensity}.Apply(&cfg)

	if cfg.ColorIntensity != 4 {
		t.Errorf("ColorIntensity = %d, want 4", cfg.ColorIntensity)
	}
	if cfg.MusicVolume != 10 {
		t.Errorf("MusicVolume = %d, want 10 (unchanged)", cfg.MusicVolume)
	}
	if !cfg.SoundEnabled {
		t.Error("SoundEnabled should keep its default")
	}
}

func TestParentalControlIsConfigured(t *testing.T) {
	tests := []struct {
		name    string
		control ParentalControl
		want    bool
	}{
		{"inactive without pin", ParentalControl{}, false},
		{"active without pin", ParentalControl{Activated: true}, false},
		{"inactive with pin", ParentalControl{PinHash: "hash"}, false},
		{"active with pin", ParentalControl{Activated: true, PinHash: "hash"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.control.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParentalControlUpdatePreservesPin(t *testing.T) {
	pc := ParentalControl{Activated: true, PinHash: "stored"}
	off := false
	ParentalControlUpdate{Activated: &off}.Apply(&pc)

	if pc.PinHash != "stored" {
		t.Errorf("PinHash = %q, want stored", pc.PinHash)
	}
	if pc.Activated {
		t.Error("Activated should be false")
	}
}

func TestSectionGates(t *testing.T) {
	gates := SectionGates{}.With(SectionStatistics, true)
	for _, s := range Sections {
		want := s == SectionStatistics
		if got := gates.Locked(s); got != want {
			t.Errorf("Locked(%s) = %v, want %v", s, got, want)
		}
	}

	if _, err := ParseSection("music"); err == nil {
		t.Error("ParseSection(music) expected error")
	}
	if s, err := ParseSection("about"); err != nil || s != SectionAbout {
		t.Errorf("ParseSection(about) = %v, %v", s, err)
	}
}
