package engine

import "time"

// Clock supplies the current time. It is injectable so that completion
// stamping and archival cutoffs are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	// Whole seconds: matches the store's RFC3339 timestamp resolution.
	return time.Now().UTC().Truncate(time.Second)
}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}
