package notify

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Sound is a selectable notification tone.
type Sound struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Sounds lists the selectable notification tones.
var Sounds = []Sound{
	{ID: "chime", Name: "Modern Chime"},
	{ID: "pulsar", Name: "Digital Pulsar"},
	{ID: "nature", Name: "Nature Echo"},
	{ID: "staccato", Name: "Fast Staccato"},
	{ID: "gentle", Name: "Gentle Rise"},
}

// SnoozeOptions lists the selectable snooze durations.
var SnoozeOptions = []string{"5 mins", "10 mins", "15 mins", "30 mins", "1 hour"}

// Prefs are the user's reminder preferences. They are session state, not
// part of the persisted collections.
type Prefs struct {
	PushEnabled    bool   `json:"pushEnabled"`
	CriticalAlerts bool   `json:"criticalAlerts"`
	Sound          string `json:"sound"`
	Snooze         string `json:"snooze"`
}

// DefaultPrefs returns the preferences a fresh session starts with.
func DefaultPrefs() Prefs {
	return Prefs{
		PushEnabled:    true,
		CriticalAlerts: true,
		Sound:          "chime",
		Snooze:         "10 mins",
	}
}

// Validate checks the sound and snooze values against the vocabularies.
func (p Prefs) Validate() error {
	soundIDs := make([]interface{}, len(Sounds))
	for i, s := range Sounds {
		soundIDs[i] = s.ID
	}
	snoozes := make([]interface{}, len(SnoozeOptions))
	for i, s := range SnoozeOptions {
		snoozes[i] = s
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Sound, validation.Required, validation.In(soundIDs...)),
		validation.Field(&p.Snooze, validation.Required, validation.In(snoozes...)),
	)
}

// SoundName resolves a sound id to its display name, falling back to the id.
func SoundName(id string) string {
	for _, s := range Sounds {
		if s.ID == id {
			return s.Name
		}
	}
	return id
}

// Prefs returns the current reminder preferences.
func (c *Center) Prefs() Prefs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefs
}

// SetPrefs validates and applies new preferences. Selecting a different
// sound raises a confirmation toast, as the settings screen does.
func (c *Center) SetPrefs(p Prefs) error {
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	soundChanged := p.Sound != c.prefs.Sound
	c.prefs = p
	c.mu.Unlock()

	if soundChanged {
		c.Toast("Sound Selected", "Tone changed to "+SoundName(p.Sound))
	}
	return nil
}
