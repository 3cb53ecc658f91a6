package workouts

type ActivityType string

const (
	ActivityTennis   ActivityType = "tennis"
	ActivityStrength ActivityType = "strength"
	ActivityPilates  ActivityType = "pilates"
	ActivityYoga     ActivityType = "yoga"
	ActivityOther    ActivityType = "other"
)

// activityTypes holds the closed set of kinds in display order.
var activityTypes = []ActivityType{
	ActivityTennis,
	ActivityStrength,
	ActivityPilates,
	ActivityYoga,
	ActivityOther,
}

var activityLabels = map[ActivityType]string{
	ActivityTennis:   "Tennis",
	ActivityStrength: "Strength",
	ActivityPilates:  "Pilates",
	ActivityYoga:     "Yoga",
	ActivityOther:    "Other",
}

// AllActivityTypes returns the five known activity kinds in their canonical order.
func AllActivityTypes() []ActivityType {
	return append([]ActivityType(nil), activityTypes...)
}

func (t ActivityType) IsKnown() bool {
	_, ok := activityLabels[t]
	return ok
}

// Label returns the human readable name, or the raw value for unknown kinds.
func (t ActivityType) Label() string {
	if label, ok := activityLabels[t]; ok {
		return label
	}
	return string(t)
}
