package chrono

import (
	"time"
	// release times must resolve on machines without a zoneinfo database
	_ "time/tzdata"
)

var est *time.Location

func init() {
	var err error
	est, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// EST returns the [*time.Location] puzzles are released in (America/New_York).
func EST() *time.Location {
	return est
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the puzzle release timezone.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(est)
}

// FixedTime is a TimeAPI frozen at a single instant, used in tests.
type FixedTime time.Time

func (f FixedTime) Now() time.Time {
	return time.Time(f).In(est)
}

// UnlockTime is the moment the puzzle for the given year and day becomes
// available: midnight EST on that day of December.
func UnlockTime(year, day int) time.Time {
	return time.Date(year, time.December, day, 0, 0, 0, 0, est)
}

// Unlocked reports whether the puzzle has been released at the time given by clock.
func Unlocked(clock TimeAPI, year, day int) bool {
	return !clock.Now().Before(UnlockTime(year, day))
}

// UntilUnlock returns how long until the puzzle is released, zero if it already is.
func UntilUnlock(clock TimeAPI, year, day int) time.Duration {
	remaining := UnlockTime(year, day).Sub(clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
