package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hilayankonsky/movemix/internal/calories"
	"github.com/hilayankonsky/movemix/internal/period"
	"github.com/hilayankonsky/movemix/internal/telemetry/tracing"
	"github.com/hilayankonsky/movemix/internal/workouts"

	"go.opentelemetry.io/otel/attribute"
)

var ErrInvalidFilter = errors.New("invalid history filter")

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=stats_test

type documentReader interface {
	Read(ctx context.Context) (workouts.Document, error)
}

// Engine answers the dashboard queries. Each call reads one fresh document.
type Engine struct {
	docs documentReader
	now  period.Clock
	loc  *time.Location
}

func NewEngine(docs documentReader, now period.Clock, loc *time.Location) *Engine {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		docs: docs,
		now:  now,
		loc:  loc,
	}
}

func (e *Engine) clock() time.Time {
	return e.now().In(e.loc)
}

// Summary is one KPI card. Range is nil for the all-history period.
type Summary struct {
	Period   period.Period `json:"period"`
	Workouts int           `json:"workouts"`
	Minutes  float64       `json:"minutes"`
	Calories int           `json:"calories"`
	Range    *period.Range `json:"range,omitempty"`
}

func (e *Engine) KPIs(ctx context.Context, p period.Period) (_ Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "engine.kpis")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("period", string(p)))

	doc, err := e.docs.Read(ctx)
	if err != nil {
		return Summary{}, err
	}

	r, bounded := p.Range(e.clock())
	if !bounded {
		summary := Summary{Period: p}
		for _, s := range doc.Sessions {
			summary.Workouts++
			summary.Minutes += s.DurationMin
		}
		summary.Calories = calories.Total(doc.Sessions, doc.Settings)
		return summary, nil
	}

	kpis := KPIsForRange(doc.Sessions, r, e.loc)
	return Summary{
		Period:   p,
		Workouts: kpis.Workouts,
		Minutes:  kpis.Minutes,
		Calories: CaloriesForRange(doc.Sessions, doc.Settings, r, e.loc),
		Range:    &kpis.Range,
	}, nil
}

// TypeDistribution is the minutes per activity kind chart for the period.
func (e *Engine) TypeDistribution(ctx context.Context, p period.Period) (_ ChartData, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "engine.typeDistribution")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("period", string(p)))

	doc, err := e.docs.Read(ctx)
	if err != nil {
		return ChartData{}, err
	}

	r, bounded := p.Range(e.clock())
	if !bounded {
		return MinutesByTypeAllHistory(doc.Sessions).Chart(), nil
	}
	return MinutesByType(doc.Sessions, r, e.loc).Chart(), nil
}

type WeeklyReport struct {
	Weeks map[string]WeekTotals `json:"weeks"`
	Chart ChartData             `json:"chart"`
}

func (e *Engine) Weekly(ctx context.Context) (_ WeeklyReport, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "engine.weekly")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	doc, err := e.docs.Read(ctx)
	if err != nil {
		return WeeklyReport{}, err
	}

	weeks := WeeklyRollup(doc.Sessions, doc.Settings, e.loc)
	return WeeklyReport{
		Weeks: weeks,
		Chart: WeeklyMinutesChart(weeks),
	}, nil
}

// HistoryFilter narrows the session history. Empty fields do not filter.
// From and To are inclusive YYYY-MM-DD days.
type HistoryFilter struct {
	Query string
	From  string
	To    string
}

type HistoryRow struct {
	workouts.Session
	Label            string `json:"label"`
	ResolvedCalories int    `json:"resolvedCalories"`
}

func (e *Engine) History(ctx context.Context, filter HistoryFilter) (_ []HistoryRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "engine.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var from, to time.Time
	if filter.From != "" {
		start, ok := period.LocalNoon(filter.From, e.loc)
		if !ok {
			return nil, fmt.Errorf("%w: from date %q", ErrInvalidFilter, filter.From)
		}
		from = dayStart(start)
	}
	if filter.To != "" {
		end, ok := period.LocalNoon(filter.To, e.loc)
		if !ok {
			return nil, fmt.Errorf("%w: to date %q", ErrInvalidFilter, filter.To)
		}
		to = dayEnd(end)
	}

	doc, err := e.docs.Read(ctx)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	rows := make([]HistoryRow, 0, len(doc.Sessions))
	for _, s := range doc.Sessions {
		if !matchesQuery(s, query) {
			continue
		}
		if !from.IsZero() || !to.IsZero() {
			noon, ok := period.LocalNoon(s.Date, e.loc)
			if !ok {
				continue
			}
			if !from.IsZero() && noon.Before(from) {
				continue
			}
			if !to.IsZero() && noon.After(to) {
				continue
			}
		}
		rows = append(rows, HistoryRow{
			Session:          s,
			Label:            s.DisplayLabel(),
			ResolvedCalories: calories.Resolve(s, doc.Settings),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date > rows[j].Date
	})

	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

func matchesQuery(s workouts.Session, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s.Notes), query) ||
		strings.Contains(strings.ToLower(string(s.Type)), query) ||
		strings.Contains(strings.ToLower(s.Type.Label()), query)
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Onboarding reports whether the welcome hint should show:
// nothing logged yet, or no body weight configured.
func (e *Engine) Onboarding(ctx context.Context) (bool, error) {
	doc, err := e.docs.Read(ctx)
	if err != nil {
		return false, err
	}
	_, hasWeight := doc.Settings.Weight()
	return len(doc.Sessions) == 0 || !hasWeight, nil
}
