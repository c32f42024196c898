package server

import "time"

const (
	DefaultKeepAliveBudget = 75 * time.Second
	DefaultSweepPeriod     = 5 * time.Second
)

// Sweeper expires connections that have been idle for the keep-alive budget.
// Run every Period it closes a connection no earlier than Budget after its
// last activity and no later than Budget+Period.
type Sweeper struct {
	Budget time.Duration
	Period time.Duration
}

// Sweep closes every connection in set whose idle time at now has reached the
// budget and returns how many were closed. closeFn must remove the
// connection from set.
func (s Sweeper) Sweep(now time.Time, set ConnSet, closeFn func(*Conn)) int {
	n := 0
	for c := range set {
		if c.Idle(now) >= s.Budget {
			closeFn(c)
			n++
		}
	}
	return n
}
