package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var ErrUnknownPeriod = errors.New("unknown period")

// Clock returns the current time. Tests replace it with a fixed instant.
type Clock func() time.Time

// Range is a closed interval: both ends are inclusive.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// WeekRange returns the calendar week containing now: Sunday 00:00:00.000
// through Saturday 23:59:59.999, in now's location.
func WeekRange(now time.Time) Range {
	y, m, d := now.Date()
	loc := now.Location()
	start := time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc)
	sy, sm, sd := start.Date()
	end := time.Date(sy, sm, sd+6, 23, 59, 59, int(999*time.Millisecond), loc)
	return Range{Start: start, End: end}
}

// MonthRange returns the calendar month containing now. The end is day 0 of
// the following month, which time.Date normalizes to the last day of this one.
func MonthRange(now time.Time) Range {
	y, m, _ := now.Date()
	loc := now.Location()
	return Range{
		Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
		End:   time.Date(y, m+1, 0, 23, 59, 59, int(999*time.Millisecond), loc),
	}
}

func CurrentWeekRange(clock Clock) Range {
	return WeekRange(clock())
}

func CurrentMonthRange(clock Clock) Range {
	return MonthRange(clock())
}

// Today returns now's local calendar date as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// LocalNoon interprets a YYYY-MM-DD string as 12:00 on that calendar day in loc.
// Using noon keeps a day inside its range whatever DST does to midnight.
// Out of range month or day values roll over the way time.Date normalizes them.
func LocalNoon(date string, loc *time.Location) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(date), "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(nums[0], time.Month(nums[1]), nums[2], 12, 0, 0, 0, loc), true
}

// WeekBucketKey groups a date into an approximate week of its year, as YYYY-Www.
// The week number is ceil((dayOfYear0 + weekdayOfJan1 + 1) / 7): weeks start on
// Sunday and the partial first week is week 1. This is not ISO-8601 numbering;
// late December can land in week 53 or 54.
func WeekBucketKey(date string, loc *time.Location) (string, bool) {
	t, ok := LocalNoon(date, loc)
	if !ok {
		return "", false
	}
	jan1 := time.Date(t.Year(), time.January, 1, 12, 0, 0, 0, t.Location())
	days := t.YearDay() - 1 + int(jan1.Weekday())
	week := (days + 7) / 7
	return fmt.Sprintf("%d-W%02d", t.Year(), week), true
}

// Period names the aggregation windows the dashboard offers.
type Period string

const (
	Week  Period = "week"
	Month Period = "month"
	All   Period = "all"
)

// ParsePeriod accepts week, month or all. An empty value means week.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case "", Week:
		return Week, nil
	case Month:
		return Month, nil
	case All:
		return All, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// Range returns the window of the period around now. All has no window.
func (p Period) Range(now time.Time) (Range, bool) {
	switch p {
	case Week:
		return WeekRange(now), true
	case Month:
		return MonthRange(now), true
	default:
		return Range{}, false
	}
}
