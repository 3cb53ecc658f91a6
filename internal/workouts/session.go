package workouts

// Session is one logged workout, persisted in insertion order.
type Session struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	CustomLabel string       `json:"customLabel,omitempty"`
	Date        string       `json:"date"` // YYYY-MM-DD, local calendar day
	DurationMin float64      `json:"durationMin"`
	Intensity   int          `json:"intensity"`
	Notes       string       `json:"notes"`

	CaloriesManual *float64 `json:"caloriesManual,omitempty"`
	WeightAtLog    *float64 `json:"weightAtLog,omitempty"`
	MetAtLog       *float64 `json:"metAtLog,omitempty"`
	CaloriesFixed  *int     `json:"caloriesFixed,omitempty"`
}

// CalorieSource tells which of the stored calorie fields is authoritative for a session.
type CalorieSource uint8

const (
	// SourceLegacy marks records logged before snapshots existed;
	// their calories are recomputed from the current settings.
	SourceLegacy CalorieSource = iota
	SourceManual
	SourceFixed
)

func (s CalorieSource) String() string {
	switch s {
	case SourceManual:
		return "manual"
	case SourceFixed:
		return "fixed"
	default:
		return "legacy"
	}
}

type CalorieEntry struct {
	Source CalorieSource
	// Value is meaningless for SourceLegacy.
	Value float64
}

// Calories classifies the session's calorie fields. A manual override always wins.
func (s Session) Calories() CalorieEntry {
	if s.CaloriesManual != nil && validNumber(*s.CaloriesManual) {
		return CalorieEntry{Source: SourceManual, Value: *s.CaloriesManual}
	}
	if s.CaloriesFixed != nil {
		return CalorieEntry{Source: SourceFixed, Value: float64(*s.CaloriesFixed)}
	}
	return CalorieEntry{Source: SourceLegacy}
}

// SetManualCalories stores a user override and drops any fixed snapshot.
func (s *Session) SetManualCalories(value float64) {
	s.CaloriesManual = &value
	s.CaloriesFixed = nil
}

// SetFixedCalories stores a computed snapshot and drops any manual override.
func (s *Session) SetFixedCalories(value int) {
	s.CaloriesFixed = &value
	s.CaloriesManual = nil
}

func (s *Session) ClearManualCalories() {
	s.CaloriesManual = nil
}

func (s *Session) ClearFixedCalories() {
	s.CaloriesFixed = nil
}

// DisplayLabel is the activity label, followed by the custom label for "other" sessions.
func (s Session) DisplayLabel() string {
	if s.CustomLabel != "" {
		return s.Type.Label() + " - " + s.CustomLabel
	}
	return s.Type.Label()
}

// Clone returns a deep copy, so pointer fields are not shared between documents.
func (s Session) Clone() Session {
	c := s
	c.CaloriesManual = cloneFloat(s.CaloriesManual)
	c.WeightAtLog = cloneFloat(s.WeightAtLog)
	c.MetAtLog = cloneFloat(s.MetAtLog)
	if s.CaloriesFixed != nil {
		v := *s.CaloriesFixed
		c.CaloriesFixed = &v
	}
	return c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// SessionInput carries the user supplied fields of a new session.
type SessionInput struct {
	ID             string       `json:"id,omitempty"`
	Type           ActivityType `json:"type"`
	CustomLabel    string       `json:"customLabel,omitempty"`
	Date           string       `json:"date"`
	DurationMin    float64      `json:"durationMin"`
	Intensity      int          `json:"intensity"`
	Notes          string       `json:"notes"`
	CaloriesManual *float64     `json:"caloriesManual,omitempty"`
}

// Session converts the input into a record without any calorie snapshot.
func (in SessionInput) Session() Session {
	s := Session{
		ID:          in.ID,
		Type:        in.Type,
		Date:        in.Date,
		DurationMin: in.DurationMin,
		Intensity:   in.Intensity,
		Notes:       in.Notes,
	}
	if in.Type == ActivityOther {
		s.CustomLabel = in.CustomLabel
	}
	if in.CaloriesManual != nil && validNumber(*in.CaloriesManual) {
		s.SetManualCalories(*in.CaloriesManual)
	}
	return s
}

// UnmarshalJSON decodes leniently, coercing fields the same way stored sessions are.
func (in *SessionInput) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}
	s := sanitizeSession(obj)
	*in = SessionInput{
		ID:             s.ID,
		Type:           s.Type,
		CustomLabel:    s.CustomLabel,
		Date:           s.Date,
		DurationMin:    s.DurationMin,
		Intensity:      s.Intensity,
		Notes:          s.Notes,
		CaloriesManual: s.CaloriesManual,
	}
	return nil
}
