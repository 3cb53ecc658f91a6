package calories

import (
	"math"

	"github.com/hilayankonsky/movemix/internal/workouts"
)

// FallbackMET is used for activity kinds the MET table does not know.
const FallbackMET = 3.0

// Estimate returns round(met * weightKg * durationMin / 60), rounding halves up.
// A weight that is not a positive number yields 0.
func Estimate(met, weightKg, durationMin float64) int {
	if math.IsNaN(weightKg) || weightKg <= 0 {
		return 0
	}
	return round(met * weightKg * durationMin / 60)
}

// round matches the half-up rounding the stored figures were produced with.
func round(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	// floor(v+0.5) would round 0.49999999999999994 up; compare the fraction instead
	r := math.Floor(v)
	if v-r >= 0.5 {
		r++
	}
	return int(r)
}

// MetFor looks the activity kind up in the settings. Unknown kinds get the
// fallback when one is given, FallbackMET otherwise.
func MetFor(t workouts.ActivityType, settings workouts.Settings, fallback *float64) float64 {
	if met, ok := settings.MET.Get(t); ok {
		return met
	}
	if fallback != nil && *fallback > 0 {
		return *fallback
	}
	return FallbackMET
}

// Resolve picks the calorie figure of a session: a manual override wins,
// then the snapshot fixed at log time, then a recomputation from the current
// settings for records that carry neither.
func Resolve(s workouts.Session, settings workouts.Settings) int {
	entry := s.Calories()
	switch entry.Source {
	case workouts.SourceManual:
		return round(entry.Value)
	case workouts.SourceFixed:
		return int(entry.Value)
	case workouts.SourceLegacy:
		w, ok := settings.Weight()
		if !ok {
			return 0
		}
		return Estimate(MetFor(s.Type, settings, s.MetAtLog), w, s.DurationMin)
	default:
		return 0
	}
}

// SnapshotNew records the log-time weight and MET on a session that is about to be added.
// The fixed figure is stored only when there is no manual override and a weight is set.
func SnapshotNew(s *workouts.Session, settings workouts.Settings) {
	met := MetFor(s.Type, settings, nil)
	s.MetAtLog = &met

	w, ok := settings.Weight()
	if ok {
		s.WeightAtLog = &w
	} else {
		s.WeightAtLog = nil
	}

	if s.Calories().Source == workouts.SourceManual {
		s.ClearFixedCalories()
		return
	}
	if !ok {
		s.ClearFixedCalories()
		return
	}
	s.SetFixedCalories(Estimate(met, w, s.DurationMin))
}

// SnapshotUpdate re-derives the fixed figure after a patch was merged onto a session.
// The log-time weight is kept when present and backfilled from settings otherwise,
// so editing an old record does not follow later weight changes.
func SnapshotUpdate(s *workouts.Session, settings workouts.Settings) {
	if s.Calories().Source == workouts.SourceManual {
		s.ClearFixedCalories()
		return
	}

	if s.WeightAtLog == nil {
		if w, ok := settings.Weight(); ok {
			s.WeightAtLog = &w
		}
	}

	met := MetFor(s.Type, settings, s.MetAtLog)
	s.MetAtLog = &met

	if s.WeightAtLog == nil || *s.WeightAtLog <= 0 {
		s.ClearFixedCalories()
		return
	}
	s.SetFixedCalories(Estimate(met, *s.WeightAtLog, s.DurationMin))
}

// Total sums the resolved calories of the given sessions.
func Total(sessions []workouts.Session, settings workouts.Settings) int {
	var sum int
	for _, s := range sessions {
		sum += Resolve(s, settings)
	}
	return sum
}
