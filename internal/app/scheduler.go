package app

import "time"

// Stopper cancels a pending deferred callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d. Sessions use it for the start delay, the
// per-second tick and the feedback delay so tests can drive time by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// SystemScheduler schedules callbacks on the runtime timer.
var SystemScheduler Scheduler = systemScheduler{}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}
