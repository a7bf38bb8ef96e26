package tiltrig

import "time"

// Clock is the time source for the control loop. Everything that paces or
// timestamps goes through it so tests can drive a cycle without waiting.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

func (wallClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// NewClock returns the wall clock.
func NewClock() Clock {
	return wallClock{}
}
