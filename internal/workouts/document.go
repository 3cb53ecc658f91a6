package workouts

type Settings struct {
	// WeightKg is nil until the user configures a body weight.
	WeightKg *float64 `json:"weightKg"`
	MET      METTable `json:"MET"`
}

func DefaultSettings() Settings {
	return Settings{
		WeightKg: nil,
		MET:      DefaultMET(),
	}
}

// Weight returns the configured body weight, if any.
func (s Settings) Weight() (float64, bool) {
	if s.WeightKg == nil || !validPositive(*s.WeightKg) {
		return 0, false
	}
	return *s.WeightKg, true
}

func (s Settings) Clone() Settings {
	c := s
	c.WeightKg = cloneFloat(s.WeightKg)
	return c
}

// Document is the single persisted value: every session plus the settings.
type Document struct {
	Sessions []Session `json:"sessions"`
	Settings Settings  `json:"settings"`
}

// NewDocument returns the state of a first run: no sessions, no weight, default MET values.
func NewDocument() Document {
	return Document{
		Sessions: []Session{},
		Settings: DefaultSettings(),
	}
}

// IndexOf returns the position of the session with the given id, or -1.
func (d Document) IndexOf(id string) int {
	for i := range d.Sessions {
		if d.Sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (d Document) Clone() Document {
	c := Document{
		Sessions: make([]Session, 0, len(d.Sessions)),
		Settings: d.Settings.Clone(),
	}
	for _, s := range d.Sessions {
		c.Sessions = append(c.Sessions, s.Clone())
	}
	return c
}
