// Package calendar works with timezone-naive calendar dates. A date is a
// time.Time at midnight UTC; the check-out date of a stay is never a night.
package calendar

import (
	"fmt"
	"time"

	"github.com/atollstay/service-reservation/internal/platform/domain"
)

// DateLayout is the wire format for dates.
const DateLayout = "2006-01-02"

// MaxStayNights bounds a single stay.
const MaxStayNights = 365

const secondsPerDay = 24 * 60 * 60

// ParseDate parses YYYY-MM-DD into a normalised date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, domain.NewValidationError(fmt.Sprintf("invalid date %q: must be YYYY-MM-DD", s))
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return Normalize(t).Format(DateLayout)
}

// Normalize drops the clock and location, keeping the calendar date as seen
// in t's own location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StayedNights returns every date from checkIn up to but excluding checkOut.
func StayedNights(checkIn, checkOut time.Time) ([]time.Time, error) {
	start, end := Normalize(checkIn), Normalize(checkOut)
	if !end.After(start) {
		return nil, domain.NewInvalidRangeError()
	}

	nights := make([]time.Time, 0, NightCount(start, end))
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights, nil
}

// NightCount is the calendar-day difference between checkIn and checkOut.
// It may be zero or negative for invalid ranges.
func NightCount(checkIn, checkOut time.Time) int {
	start, end := Normalize(checkIn), Normalize(checkOut)
	return int((end.Unix() - start.Unix()) / secondsPerDay)
}

// ValidateStay returns the night count of a bookable stay: at least one
// night and no more than MaxStayNights.
func ValidateStay(checkIn, checkOut time.Time) (int, error) {
	nights := NightCount(checkIn, checkOut)
	if nights < 1 {
		return 0, domain.NewInvalidRangeError()
	}
	if nights > MaxStayNights {
		return 0, domain.NewValidationError(fmt.Sprintf("stay must be at most %d nights", MaxStayNights))
	}
	return nights, nil
}

// FormatDates renders each date as YYYY-MM-DD.
func FormatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out
}

// Contains reports whether d lies in [start, end], both ends inclusive.
func Contains(start, end, d time.Time) bool {
	d = Normalize(d)
	return !d.Before(Normalize(start)) && !d.After(Normalize(end))
}
