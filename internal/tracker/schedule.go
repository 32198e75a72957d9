package tracker

import (
	"time"
)

// Schedule holds the waits between cycles.
type Schedule struct {
	PollInterval time.Duration // while any game is live
	MinWait      time.Duration // floor when the next start has already passed
	IdleWait     time.Duration // nothing scheduled at all
	StartGrace   time.Duration // how long past its start a game still counts as upcoming
}

// DefaultSchedule polls every minute during games.
var DefaultSchedule = Schedule{
	PollInterval: time.Minute,
	MinWait:      30 * time.Second,
	IdleWait:     2 * time.Hour,
	StartGrace:   30 * time.Minute,
}

// NextWake computes how long to sleep after a cycle at now. With a live game
// it is the poll interval. Otherwise it runs until the earliest start that is
// not more than StartGrace in the past, and never less than MinWait, which
// keeps polling a game whose start was delayed.
func NextWake(now time.Time, live bool, starts []time.Time, s Schedule) time.Duration {
	if live {
		return s.PollInterval
	}
	cutoff := now.Add(-s.StartGrace)
	var next time.Time
	for _, t := range starts {
		if t.IsZero() || !t.After(cutoff) {
			continue
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	if next.IsZero() {
		return s.IdleWait
	}
	wait := next.Sub(now)
	if wait < s.MinWait {
		wait = s.MinWait
	}
	return wait
}
