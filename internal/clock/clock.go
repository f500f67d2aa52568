package clock

import "time"

// Clock abstracts wall-clock time so services can be tested
// against fixed instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// System returns the real UTC clock.
func System() Clock {
	return systemClock{}
}
