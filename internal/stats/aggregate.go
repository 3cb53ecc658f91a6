package stats

import (
	"sort"
	"time"

	"github.com/hilayankonsky/movemix/internal/calories"
	"github.com/hilayankonsky/movemix/internal/period"
	"github.com/hilayankonsky/movemix/internal/workouts"
)

// KPIs are the workout and minute totals of one range.
// Calories are summed separately by CaloriesForRange over the same filter.
type KPIs struct {
	Workouts int          `json:"workouts"`
	Minutes  float64      `json:"minutes"`
	Range    period.Range `json:"range"`
}

// TypeMinutes maps each known activity kind to its total minutes.
type TypeMinutes map[workouts.ActivityType]float64

// WeekTotals is one bucket of the weekly rollup.
type WeekTotals struct {
	Minutes  float64 `json:"minutes"`
	Calories int     `json:"calories"`
}

// ChartData is what the chart widget draws: parallel label and value slices.
type ChartData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// inRange reports whether the session's day, taken at local noon, falls in r.
// Sessions with an unparsable date are never in range.
func inRange(s workouts.Session, r period.Range, loc *time.Location) bool {
	noon, ok := period.LocalNoon(s.Date, loc)
	if !ok {
		return false
	}
	return r.Contains(noon)
}

func SessionsInRange(sessions []workouts.Session, r period.Range, loc *time.Location) []workouts.Session {
	var result []workouts.Session
	for _, s := range sessions {
		if inRange(s, r, loc) {
			result = append(result, s)
		}
	}
	return result
}

func KPIsForRange(sessions []workouts.Session, r period.Range, loc *time.Location) KPIs {
	kpis := KPIs{Range: r}
	for _, s := range SessionsInRange(sessions, r, loc) {
		kpis.Workouts++
		kpis.Minutes += s.DurationMin
	}
	return kpis
}

func CaloriesForRange(sessions []workouts.Session, settings workouts.Settings, r period.Range, loc *time.Location) int {
	return calories.Total(SessionsInRange(sessions, r, loc), settings)
}

func newTypeMinutes() TypeMinutes {
	m := make(TypeMinutes, len(workouts.AllActivityTypes()))
	for _, t := range workouts.AllActivityTypes() {
		m[t] = 0
	}
	return m
}

// add never creates a key for an unknown activity kind.
func (m TypeMinutes) add(s workouts.Session) {
	if _, ok := m[s.Type]; ok {
		m[s.Type] += s.DurationMin
	}
}

func MinutesByType(sessions []workouts.Session, r period.Range, loc *time.Location) TypeMinutes {
	m := newTypeMinutes()
	for _, s := range SessionsInRange(sessions, r, loc) {
		m.add(s)
	}
	return m
}

func MinutesByTypeAllHistory(sessions []workouts.Session) TypeMinutes {
	m := newTypeMinutes()
	for _, s := range sessions {
		m.add(s)
	}
	return m
}

// Chart lists the minutes in canonical activity order.
func (m TypeMinutes) Chart() ChartData {
	chart := ChartData{
		Labels: make([]string, 0, len(m)),
		Values: make([]float64, 0, len(m)),
	}
	for _, t := range workouts.AllActivityTypes() {
		chart.Labels = append(chart.Labels, t.Label())
		chart.Values = append(chart.Values, m[t])
	}
	return chart
}

// WeeklyRollup groups the whole history by week bucket key.
func WeeklyRollup(sessions []workouts.Session, settings workouts.Settings, loc *time.Location) map[string]WeekTotals {
	weeks := make(map[string]WeekTotals)
	for _, s := range sessions {
		key, ok := period.WeekBucketKey(s.Date, loc)
		if !ok {
			continue
		}
		totals := weeks[key]
		totals.Minutes += s.DurationMin
		totals.Calories += calories.Resolve(s, settings)
		weeks[key] = totals
	}
	return weeks
}

// WeeklyMinutesChart orders the rollup chronologically by key.
func WeeklyMinutesChart(weeks map[string]WeekTotals) ChartData {
	keys := make([]string, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	chart := ChartData{
		Labels: keys,
		Values: make([]float64, 0, len(keys)),
	}
	for _, k := range keys {
		chart.Values = append(chart.Values, weeks[k].Minutes)
	}
	return chart
}
