// Package deadline converts a wall-clock alarm time into absolute arm and
// forfeiture instants.
package deadline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeFormat is returned for alarm times that are not "HH:MM".
var ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")

// Compute resolves an "HH:MM" alarm time against now. If the time of day has
// already passed today, the alarm rolls forward exactly one day. The forfeit
// instant is armAt plus the grace period.
//
// Only the local wall clock is consulted; no timezone conversion is performed.
// This is a documented limitation of the protocol, not an oversight.
func Compute(alarmTime string, grace time.Duration, now time.Time) (armAt, forfeitAt time.Time, err error) {
	hour, minute, err := parseTimeOfDay(alarmTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	armAt = time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !armAt.After(now) {
		// Alarm already passed today (it's 08:00 and they set 07:00);
		// schedule for tomorrow, never further.
		armAt = armAt.AddDate(0, 0, 1)
	}

	return armAt, armAt.Add(grace), nil
}

func parseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	return hour, minute, nil
}
