package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/hilayankonsky/movemix/internal/period"
	"github.com/hilayankonsky/movemix/internal/workouts"
)

const (
	MinDurationMin = 1
	MinWeightKg    = 30
	MaxWeightKg    = 200
)

var ErrValidation = errors.New("validation failed")

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func validateType(t workouts.ActivityType) error {
	if !t.IsKnown() {
		return validationErr("unknown activity type %q", t)
	}
	return nil
}

func validateDate(date string, loc *time.Location) error {
	// round trip so rolled-over days (2024-02-31) and unpadded ones are refused
	t, err := time.ParseInLocation(period.DateLayout, date, loc)
	if err != nil || t.Format(period.DateLayout) != date {
		return validationErr("date must be YYYY-MM-DD, got %q", date)
	}
	return nil
}

func validateDuration(minutes float64) error {
	if !(minutes >= MinDurationMin) {
		return validationErr("duration must be at least %d minute", MinDurationMin)
	}
	return nil
}

func validateManual(kcal float64) error {
	if !(kcal >= 0) {
		return validationErr("manual calories must not be negative")
	}
	return nil
}

func ValidateSessionInput(in workouts.SessionInput, loc *time.Location) error {
	if err := validateType(in.Type); err != nil {
		return err
	}
	if err := validateDate(in.Date, loc); err != nil {
		return err
	}
	if err := validateDuration(in.DurationMin); err != nil {
		return err
	}
	if in.CaloriesManual != nil {
		return validateManual(*in.CaloriesManual)
	}
	return nil
}

func ValidateSessionPatch(patch workouts.SessionPatch, loc *time.Location) error {
	if patch.Type != nil {
		if err := validateType(*patch.Type); err != nil {
			return err
		}
	}
	if patch.Date != nil {
		if err := validateDate(*patch.Date, loc); err != nil {
			return err
		}
	}
	if patch.DurationMin != nil {
		if err := validateDuration(*patch.DurationMin); err != nil {
			return err
		}
	}
	if patch.CaloriesManual != nil && !patch.CaloriesManual.Clear {
		return validateManual(patch.CaloriesManual.Value)
	}
	return nil
}

// ValidateSettingsPatch accepts a null weight, which resets it to "not configured".
func ValidateSettingsPatch(patch workouts.SettingsPatch) error {
	if patch.HasWeight && patch.WeightKg != nil {
		w := *patch.WeightKg
		if w < MinWeightKg || w > MaxWeightKg {
			return validationErr("weight must be between %d and %d kg", MinWeightKg, MaxWeightKg)
		}
	}
	return nil
}
