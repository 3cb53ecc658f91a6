package workouts

import "math"

// ManualCaloriesPatch updates the manual override of a session.
// A patch with Clear set removes the override.
type ManualCaloriesPatch struct {
	Clear bool
	Value float64
}

func SetManual(value float64) *ManualCaloriesPatch {
	return &ManualCaloriesPatch{Value: value}
}

func ClearManual() *ManualCaloriesPatch {
	return &ManualCaloriesPatch{Clear: true}
}

// SessionPatch is a shallow overwrite of a stored session. Nil fields are left untouched.
// The session id is never patched.
type SessionPatch struct {
	Type           *ActivityType
	CustomLabel    *string
	Date           *string
	DurationMin    *float64
	Intensity      *int
	Notes          *string
	CaloriesManual *ManualCaloriesPatch
}

// Apply merges the patch onto the session. Calorie snapshots are not recomputed here.
func (p SessionPatch) Apply(s *Session) {
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.CustomLabel != nil {
		s.CustomLabel = *p.CustomLabel
	}
	if s.Type != ActivityOther {
		s.CustomLabel = ""
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.DurationMin != nil {
		s.DurationMin = *p.DurationMin
	}
	if p.Intensity != nil {
		s.Intensity = *p.Intensity
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if p.CaloriesManual != nil {
		if p.CaloriesManual.Clear {
			s.ClearManualCalories()
		} else {
			s.SetManualCalories(p.CaloriesManual.Value)
		}
	}
}

// UnmarshalJSON distinguishes absent fields from present ones. A caloriesManual
// of null, "" or anything non numeric clears the override.
func (p *SessionPatch) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}

	*p = SessionPatch{}
	if v, ok := obj["type"]; ok {
		t := ActivityType(toString(v))
		p.Type = &t
	}
	if v, ok := obj["customLabel"]; ok {
		label := toString(v)
		p.CustomLabel = &label
	}
	if v, ok := obj["date"]; ok {
		date := toString(v)
		p.Date = &date
	}
	if v, ok := obj["durationMin"]; ok {
		d, _ := toNumber(v)
		p.DurationMin = &d
	}
	if v, ok := obj["intensity"]; ok {
		n, _ := toNumber(v)
		i := int(math.Round(n))
		p.Intensity = &i
	}
	if v, ok := obj["notes"]; ok {
		notes := toString(v)
		p.Notes = &notes
	}
	if v, ok := obj["caloriesManual"]; ok {
		if manual, ok := toNumber(v); ok {
			p.CaloriesManual = SetManual(manual)
		} else {
			p.CaloriesManual = ClearManual()
		}
	}
	return nil
}

// SettingsPatch updates settings. A present weight that is not a positive
// number resets the weight to "not configured"; a present MET table replaces
// the whole table, with defaults re-applied as its base.
type SettingsPatch struct {
	HasWeight bool
	WeightKg  *float64
	MET       *METTable
}

func (p *SettingsPatch) SetWeight(weightKg float64) {
	p.HasWeight = true
	if validPositive(weightKg) {
		p.WeightKg = &weightKg
	} else {
		p.WeightKg = nil
	}
}

func (p *SettingsPatch) ResetWeight() {
	p.HasWeight = true
	p.WeightKg = nil
}

func (p *SettingsPatch) SetMET(values map[ActivityType]float64) {
	table := NewMETTable(values)
	p.MET = &table
}

// ApplyTo merges the patch onto the given settings.
func (p SettingsPatch) ApplyTo(s *Settings) {
	if p.HasWeight {
		s.WeightKg = cloneFloat(p.WeightKg)
	}
	if p.MET != nil {
		s.MET = *p.MET
	}
}

func (p *SettingsPatch) UnmarshalJSON(data []byte) error {
	obj, err := decodeObject(data)
	if err != nil {
		return err
	}

	*p = SettingsPatch{}
	if v, ok := obj["weightKg"]; ok {
		if w, ok := toNumber(v); ok {
			p.SetWeight(w)
		} else {
			p.ResetWeight()
		}
	}
	if v, ok := obj["MET"]; ok && v != nil {
		metObj, _ := v.(map[string]any)
		table := sanitizeMET(metObj)
		p.MET = &table
	}
	return nil
}
