package playback

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from firing.
	Stop() bool
}

// Clock abstracts timer scheduling so tests can drive time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{timer: time.AfterFunc(d, fn)}
}

type systemTimer struct {
	timer *time.Timer
}

func (t systemTimer) Stop() bool { return t.timer.Stop() }
