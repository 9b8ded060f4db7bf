package player

import "time"

// RetryPolicy is a bounded-attempt retry schedule, expressed as data so the
// delay math is testable apart from whatever primitive performs the wait.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts int
	// AttemptTimeout bounds a single try.
	AttemptTimeout time.Duration
	// BackoffUnit scales the linear delay between tries.
	BackoffUnit time.Duration
}

// Delay returns the wait before retry number n (1-based: Delay(1) is the
// wait after the first failure). Linear: 1 unit, 2 units, ...
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return time.Duration(n) * p.BackoffUnit
}

// DefaultPersistPolicy matches the progress-write behaviour the player
// promises: two extra attempts after a failure, waiting 1s then 2s.
func DefaultPersistPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		AttemptTimeout: 5 * time.Second,
		BackoffUnit:    time.Second,
	}
}
