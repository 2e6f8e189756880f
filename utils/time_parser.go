package utils

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"modlog-bot/model"
)

// ErrInvalidDuration is returned for anything that is not <integer><unit>.
var ErrInvalidDuration = errors.New("invalid duration")

const (
	week = 7 * 24 * time.Hour
	day  = 24 * time.Hour
)

var durationPattern = regexp.MustCompile(`(?i)^(\d+)([mhdw])$`)

var durationUnits = map[string]time.Duration{
	"m": time.Minute,
	"h": time.Hour,
	"d": day,
	"w": week,
}

// ParseDuration parses tokens such as "30m", "1h", "2d" or "1W".
// "perm"/"permanent" are not durations; callers handle that sentinel.
func ParseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q (use e.g. 30m, 1h, 2d, 1w)", ErrInvalidDuration, s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	unit := durationUnits[strings.ToLower(m[2])]
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: %q is too long", ErrInvalidDuration, s)
	}
	return time.Duration(n) * unit, nil
}

// FormatDuration renders d in the largest unit that divides it exactly,
// checking weeks, days, hours then minutes. A non-positive d means "no
// duration" and renders as model.NotApplicable.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return model.NotApplicable
	}
	total := int64(d / time.Second)
	switch {
	case total%int64(week/time.Second) == 0:
		return fmt.Sprintf("%d Week(s)", total/int64(week/time.Second))
	case total%int64(day/time.Second) == 0:
		return fmt.Sprintf("%d Day(s)", total/int64(day/time.Second))
	case total%3600 == 0:
		return fmt.Sprintf("%d Hour(s)", total/3600)
	case total%60 == 0:
		return fmt.Sprintf("%d Minute(s)", total/60)
	}
	return d.String()
}
