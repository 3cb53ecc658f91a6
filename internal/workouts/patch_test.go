package workouts_test

import (
	"encoding/json"
	"testing"

	"github.com/hilayankonsky/movemix/internal/workouts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_CalorieSettersKeepInvariant(t *testing.T) {
	s := workouts.Session{ID: "x", Type: workouts.ActivityYoga}
	assert.Equal(t, workouts.SourceLegacy, s.Calories().Source)

	s.SetFixedCalories(150)
	assert.Equal(t, workouts.SourceFixed, s.Calories().Source)

	s.SetManualCalories(300)
	assert.Nil(t, s.CaloriesFixed)
	assert.Equal(t, workouts.SourceManual, s.Calories().Source)

	s.SetFixedCalories(120)
	assert.Nil(t, s.CaloriesManual)
	assert.Equal(t, 120.0, s.Calories().Value)
}

func TestSession_CloneDoesNotSharePointers(t *testing.T) {
	s := workouts.Session{ID: "x"}
	s.SetManualCalories(100)
	c := s.Clone()
	*c.CaloriesManual = 5
	assert.Equal(t, 100.0, *s.CaloriesManual)
}

func TestSessionPatch_UnmarshalJSON(t *testing.T) {
	var p workouts.SessionPatch
	require.NoError(t, json.Unmarshal([]byte(`{"id": "ignored", "durationMin": 30, "caloriesManual": 300}`), &p))
	require.NotNil(t, p.DurationMin)
	assert.Equal(t, 30.0, *p.DurationMin)
	require.NotNil(t, p.CaloriesManual)
	assert.False(t, p.CaloriesManual.Clear)
	assert.Equal(t, 300.0, p.CaloriesManual.Value)
	assert.Nil(t, p.Type)
	assert.Nil(t, p.Notes)

	for _, clear := range []string{`null`, `""`, `"abc"`} {
		p = workouts.SessionPatch{}
		require.NoError(t, json.Unmarshal([]byte(`{"caloriesManual": `+clear+`}`), &p))
		require.NotNil(t, p.CaloriesManual, clear)
		assert.True(t, p.CaloriesManual.Clear, clear)
	}
}

func TestSessionPatch_Apply(t *testing.T) {
	s := workouts.Session{
		ID:          "s1",
		Type:        workouts.ActivityOther,
		CustomLabel: "climbing",
		Date:        "2024-03-01",
		DurationMin: 30,
		Notes:       "old",
	}
	s.SetManualCalories(200)

	yoga := workouts.ActivityYoga
	notes := "new"
	workouts.SessionPatch{
		Type:           &yoga,
		Notes:          &notes,
		CaloriesManual: workouts.ClearManual(),
	}.Apply(&s)

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, workouts.ActivityYoga, s.Type)
	assert.Empty(t, s.CustomLabel, "custom label only lives on other sessions")
	assert.Equal(t, "new", s.Notes)
	assert.Equal(t, 30.0, s.DurationMin)
	assert.Nil(t, s.CaloriesManual)
}

func TestSettingsPatch_UnmarshalJSON(t *testing.T) {
	var p workouts.SettingsPatch
	require.NoError(t, json.Unmarshal([]byte(`{"weightKg": "72", "MET": {"yoga": 2.5, "tennis": 0}}`), &p))

	settings := workouts.DefaultSettings()
	settings.MET.Strength = 9
	p.ApplyTo(&settings)

	w, ok := settings.Weight()
	require.True(t, ok)
	assert.Equal(t, 72.0, w)
	// defaults are the base, not the previous table
	assert.Equal(t, workouts.METTable{Tennis: 8, Strength: 5.5, Pilates: 3.2, Yoga: 2.5, Other: 3}, settings.MET)

	p = workouts.SettingsPatch{}
	require.NoError(t, json.Unmarshal([]byte(`{"weightKg": -3}`), &p))
	p.ApplyTo(&settings)
	assert.Nil(t, settings.WeightKg)
	assert.Equal(t, 2.5, settings.MET.Yoga, "absent MET leaves the table untouched")
}

func TestActivityType(t *testing.T) {
	assert.Len(t, workouts.AllActivityTypes(), 5)
	assert.True(t, workouts.ActivityPilates.IsKnown())
	assert.False(t, workouts.ActivityType("boxing").IsKnown())
	assert.Equal(t, "boxing", workouts.ActivityType("boxing").Label())
	assert.Equal(t, "Other - climbing", workouts.Session{Type: workouts.ActivityOther, CustomLabel: "climbing"}.DisplayLabel())
}
