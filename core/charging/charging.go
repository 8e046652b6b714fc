// Package charging holds the charge accrual model. Charge grows linearly at 1%
// of rated capacity per elapsed second and is clamped at capacity. Every
// workflow that needs an up-to-date charge figure goes through Accrue.
package charging

import "time"

// RatePercentPerSecond is the share of capacity gained per elapsed second.
const RatePercentPerSecond = 1

// Elapsed returns the whole seconds between start and now. Clock skew that
// would produce a negative interval counts as zero.
func Elapsed(start, now time.Time) int64 {
	d := now.Sub(start)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Accrue returns the charge reached at now when charging started from current
// at start, never exceeding total.
func Accrue(current, total int, start, now time.Time) int {
	e := Elapsed(start, now)
	if total <= 0 {
		return current
	}
	// Past 100 seconds the battery is full whatever the starting point.
	if e*RatePercentPerSecond >= 100 {
		return total
	}
	charged := current + int(int64(total)*e*RatePercentPerSecond/100)
	if charged > total {
		return total
	}
	return charged
}

// TimeToCompletion returns the whole seconds still needed for current/total to
// reach desired percent. It is zero iff the target is already met. Partial
// seconds round up so a vehicle is never predicted ready early.
func TimeToCompletion(current, total, desired int) time.Duration {
	if total <= 0 {
		return 0
	}
	// missing is the gap to target expressed in 1/total of a percent.
	missing := int64(desired)*int64(total) - 100*int64(current)
	if missing <= 0 {
		return 0
	}
	step := int64(total) * RatePercentPerSecond
	secs := (missing + step - 1) / step
	return time.Duration(secs) * time.Second
}

// CompletionTime predicts when a session started at start reaches desired.
func CompletionTime(current, total, desired int, start time.Time) time.Time {
	return start.Add(TimeToCompletion(current, total, desired))
}
