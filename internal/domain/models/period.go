package models

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// Period is a calendar month, rendered as YYYY-MM.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a YYYY-MM key.
func ParsePeriod(raw string) (Period, error) {
	if len(raw) != len(periodLayout) {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	t, err := time.Parse(periodLayout, raw)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	p := Period{Year: t.Year(), Month: t.Month()}
	if !p.Valid() {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	return p, nil
}

// PeriodOf returns the month containing t, as observed in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// String returns the YYYY-MM key.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Valid reports whether the period names a real month.
func (p Period) Valid() bool {
	return p.Year > 0 && p.Year <= 9999 && p.Month >= time.January && p.Month <= time.December
}

// Start is the first instant of the month in loc.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

// End is the first instant of the following month in loc.
func (p Period) End(loc *time.Location) time.Time {
	return p.Start(loc).AddDate(0, 1, 0)
}

// Previous returns the month before p.
func (p Period) Previous() Period {
	return PeriodOf(time.Date(p.Year, p.Month-1, 1, 0, 0, 0, 0, time.UTC))
}

// MonthsUntil counts whole calendar months from p to other. It is negative when
// other precedes p.
func (p Period) MonthsUntil(other Period) int {
	return (other.Year*12 + int(other.Month) - 1) - (p.Year*12 + int(p.Month) - 1)
}
