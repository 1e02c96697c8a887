// Package schedule evaluates technician time-window availability.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is how far from a slot the current time may fall while the
// technician still counts as reachable.
const DefaultTolerance = 30 * time.Minute

var slotPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ValidSlot reports whether slot is a well-formed HH:MM availability entry.
func ValidSlot(slot string) bool {
	return slotPattern.MatchString(slot)
}

// ValidateSlots checks a full availability set, returning the first offender.
func ValidateSlots(slots []string) error {
	for _, slot := range slots {
		if !ValidSlot(slot) {
			return fmt.Errorf("invalid availability slot %q, expected HH:MM", slot)
		}
	}
	return nil
}

// AvailableAt reports whether any slot lies within tolerance (inclusive) of
// now. Comparison happens in minutes since midnight; no wraparound across
// midnight is modeled, so 23:50 does not cover 00:05.
func AvailableAt(slots []string, now time.Time, tolerance time.Duration) bool {
	nowMinutes := now.Hour()*60 + now.Minute()
	limit := int(tolerance / time.Minute)

	for _, slot := range slots {
		slotMinutes, ok := slotToMinutes(slot)
		if !ok {
			continue
		}
		diff := slotMinutes - nowMinutes
		if diff < 0 {
			diff = -diff
		}
		if diff <= limit {
			return true
		}
	}
	return false
}

func slotToMinutes(slot string) (int, bool) {
	parts := strings.SplitN(slot, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
