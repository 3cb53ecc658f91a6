package workouts

// METTable holds one MET coefficient per activity kind. It is always fully populated.
type METTable struct {
	Tennis   float64 `json:"tennis"`
	Strength float64 `json:"strength"`
	Pilates  float64 `json:"pilates"`
	Yoga     float64 `json:"yoga"`
	Other    float64 `json:"other"`
}

func DefaultMET() METTable {
	return METTable{
		Tennis:   8,
		Strength: 5.5,
		Pilates:  3.2,
		Yoga:     3.0,
		Other:    3.0,
	}
}

// Get returns the coefficient for a known activity kind.
func (m METTable) Get(t ActivityType) (float64, bool) {
	switch t {
	case ActivityTennis:
		return m.Tennis, true
	case ActivityStrength:
		return m.Strength, true
	case ActivityPilates:
		return m.Pilates, true
	case ActivityYoga:
		return m.Yoga, true
	case ActivityOther:
		return m.Other, true
	default:
		return 0, false
	}
}

func (m *METTable) set(t ActivityType, value float64) {
	switch t {
	case ActivityTennis:
		m.Tennis = value
	case ActivityStrength:
		m.Strength = value
	case ActivityPilates:
		m.Pilates = value
	case ActivityYoga:
		m.Yoga = value
	case ActivityOther:
		m.Other = value
	}
}

// NewMETTable builds a table from the given coefficients, falling back to the
// default for every kind that is missing or not a positive number.
func NewMETTable(values map[ActivityType]float64) METTable {
	table := DefaultMET()
	for _, t := range activityTypes {
		if v, ok := values[t]; ok && validPositive(v) {
			table.set(t, v)
		}
	}
	return table
}

// sanitizeMET rebuilds a table key by key from an untyped JSON object.
// Unknown keys are never looked at.
func sanitizeMET(raw map[string]any) METTable {
	table := DefaultMET()
	for _, t := range activityTypes {
		if v, ok := toNumber(raw[string(t)]); ok && v > 0 {
			table.set(t, v)
		}
	}
	return table
}
