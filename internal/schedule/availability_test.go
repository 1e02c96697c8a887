package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestAvailableAtToleranceBoundaries(t *testing.T) {
	slots := []string{"09:00"}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"lower bound inclusive", at(8, 30), true},
		{"upper bound inclusive", at(9, 30), true},
		{"exact slot", at(9, 0), true},
		{"one minute before window", at(8, 29), false},
		{"one minute after window", at(9, 31), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AvailableAt(slots, tc.now, DefaultTolerance))
		})
	}
}

func TestAvailableAtAnySlotMatches(t *testing.T) {
	slots := []string{"08:00", "14:00", "17:00"}

	assert.True(t, AvailableAt(slots, at(14, 25), DefaultTolerance))
	assert.False(t, AvailableAt(slots, at(11, 0), DefaultTolerance))
}

func TestAvailableAtNoMidnightWraparound(t *testing.T) {
	slots := []string{"23:50"}

	// 00:05 is 1425 minutes from 23:50 without wraparound.
	assert.False(t, AvailableAt(slots, at(0, 5), DefaultTolerance))
	assert.True(t, AvailableAt(slots, at(23, 25), DefaultTolerance))
}

func TestAvailableAtEmptySlots(t *testing.T) {
	assert.False(t, AvailableAt(nil, at(9, 0), DefaultTolerance))
}

func TestAvailableAtSkipsMalformedSlots(t *testing.T) {
	assert.True(t, AvailableAt([]string{"whenever", "09:00"}, at(9, 10), DefaultTolerance))
	assert.False(t, AvailableAt([]string{"whenever"}, at(9, 10), DefaultTolerance))
}

func TestValidSlot(t *testing.T) {
	valid := []string{"00:00", "08:30", "19:05", "23:59"}
	invalid := []string{"24:00", "8:30", "12:60", "12h30", "", "12:3"}

	for _, slot := range valid {
		assert.True(t, ValidSlot(slot), slot)
	}
	for _, slot := range invalid {
		assert.False(t, ValidSlot(slot), slot)
	}
}

func TestValidateSlots(t *testing.T) {
	require.NoError(t, ValidateSlots([]string{"08:00", "17:00"}))
	require.Error(t, ValidateSlots([]string{"08:00", "25:00"}))
}

func TestFixedClock(t *testing.T) {
	instant := at(10, 30)
	clock := FixedClock{Instant: instant}
	require.Equal(t, instant, clock.Now())
}
