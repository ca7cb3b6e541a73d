// Package period turns query-string dates into UTC query bounds for a business timezone.
package period

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// Range is a half-open [From, To) interval in UTC.
type Range struct {
	From time.Time
	To   time.Time
}

// ParseDay parses YYYY-MM-DD as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	return d, nil
}

// Days covers the inclusive day span from..to. Empty bounds are open.
func Days(fromStr, toStr string, loc *time.Location) (from, to *time.Time, err error) {
	if fromStr != "" {
		d, err := ParseDay(fromStr, loc)
		if err != nil {
			return nil, nil, err
		}
		u := d.UTC()
		from = &u
	}
	if toStr != "" {
		d, err := ParseDay(toStr, loc)
		if err != nil {
			return nil, nil, err
		}
		u := d.AddDate(0, 0, 1).UTC()
		to = &u
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fmt.Errorf("from must not be after to")
	}
	return from, to, nil
}

// Span is the closed day range [first, last] as a Range.
func Span(first, last time.Time, loc *time.Location) Range {
	f := StartOfDay(first, loc)
	l := StartOfDay(last, loc).AddDate(0, 0, 1)
	return Range{From: f.UTC(), To: l.UTC()}
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Month returns the range of a calendar month in loc.
func Month(year, month int, loc *time.Location) (Range, error) {
	if year < 2000 || year > 9999 {
		return Range{}, fmt.Errorf("year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return Range{}, fmt.Errorf("month %d out of range", month)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Range{From: first.UTC(), To: first.AddDate(0, 1, 0).UTC()}, nil
}

// ISOWeek returns Monday 00:00 to the next Monday of ISO week (year, week) in loc.
func ISOWeek(year, week int, loc *time.Location) (Range, error) {
	if year < 2000 || year > 9999 {
		return Range{}, fmt.Errorf("year %d out of range", year)
	}
	// Jan 4th is always in week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(week-1)*7)

	if y, w := monday.ISOWeek(); week < 1 || y != year || w != week {
		return Range{}, fmt.Errorf("week %d does not exist in %d", week, year)
	}
	return Range{From: monday.UTC(), To: monday.AddDate(0, 0, 7).UTC()}, nil
}

// DayKey formats t as a day in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// EachDay lists the day keys of r in loc.
func EachDay(r Range, loc *time.Location) []string {
	var keys []string
	for d := StartOfDay(r.From, loc); d.Before(r.To); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(DayLayout))
	}
	return keys
}
