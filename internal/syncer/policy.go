package syncer

import "time"

// RetryPolicy controls backoff of failed pushes. An entry is parked once it
// has failed MaxAttempts times.
type RetryPolicy struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Base: 2 * time.Second, Max: 5 * time.Minute, MaxAttempts: 8}
}

// Backoff returns the wait after the given number of failed attempts:
// Base doubled per attempt, capped at Max.
func (p RetryPolicy) Backoff(attempts int) time.Duration {
	if attempts < 1 {
		return 0
	}
	d := p.Base
	for i := 1; i < attempts; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// ShouldPark reports whether an entry with this many failures is parked.
func (p RetryPolicy) ShouldPark(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}
