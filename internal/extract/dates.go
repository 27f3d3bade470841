package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadDate is returned when a listing date string matches none of the
// known forms. Callers treat the item as outside the date window.
var ErrBadDate = errors.New("unrecognized date format")

// NormalizeDate resolves a listing's relative or partial date string against
// a reference time. The board omits the year for recent posts, so a partial
// date that would land in the future is rolled back one year.
//
// Recognized forms:
//
//	"14:02"        today at that time
//	"N분 전"        N minutes before now
//	"N시간 전"      N hours before now
//	"03.21"        month and day, current year unless that is in the future
//	"24.03.21"     two-digit year, month, day
//	"2024.03.21"   full year, month, day
//
// Trailing dots, as the board renders them, are tolerated on all dotted
// forms.
func NormalizeDate(raw string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrBadDate)
	}

	if t, ok := parseRelative(s, now); ok {
		return t, nil
	}
	if t, ok := parseClock(s, now); ok {
		return t, nil
	}
	return parseDotted(s, now)
}

// parseRelative handles the "minutes/hours ago" forms.
func parseRelative(s string, now time.Time) (time.Time, bool) {
	compact := strings.ReplaceAll(s, " ", "")
	for suffix, unit := range map[string]time.Duration{
		"분전":  time.Minute,
		"시간전": time.Hour,
	} {
		if !strings.HasSuffix(compact, suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(compact, suffix))
		if err != nil || n < 0 {
			return time.Time{}, false
		}
		return now.Add(-time.Duration(n) * unit), true
	}
	return time.Time{}, false
}

// parseClock handles the "HH:MM" form, meaning today at that time.
func parseClock(s string, now time.Time) (time.Time, bool) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, false
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, false
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()), true
}

// parseDotted handles "MM.DD", "YY.MM.DD" and "YYYY.MM.DD".
func parseDotted(s string, now time.Time) (time.Time, error) {
	parts := strings.Split(strings.TrimSuffix(s, "."), ".")

	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
		}
		nums = append(nums, n)
	}

	switch len(nums) {
	case 2:
		t := time.Date(now.Year(), time.Month(nums[0]), nums[1], 0, 0, 0, 0, now.Location())
		if t.After(now) {
			t = t.AddDate(-1, 0, 0)
		}
		return t, nil
	case 3:
		year := nums[0]
		if year < 100 {
			year += 2000
		}
		return time.Date(year, time.Month(nums[1]), nums[2], 0, 0, 0, 0, now.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
}

// WithinWindow reports whether a normalized timestamp falls inside the
// lookback window ending at now.
func WithinWindow(t, now time.Time, lookbackDays int) bool {
	if lookbackDays <= 0 {
		return true
	}
	cutoff := now.AddDate(0, 0, -lookbackDays)
	return !t.Before(cutoff) && !t.After(now.AddDate(0, 0, 1))
}
