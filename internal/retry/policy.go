package retry

import "time"

// Policy is an exponential backoff policy with caps.
type Policy struct {
	MaxAttempts int           // including the first attempt
	BaseDelay   time.Duration // backoff for the first retry
	MaxDelay    time.Duration // upper bound on any single delay
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// Decide returns the backoff delay before the next attempt, or false when the
// error should not be retried. attempt is 1-based (1 = first attempt failed).
func (p Policy) Decide(attempt int, kind ErrorKind) (time.Duration, bool) {
	if kind != KindConnection {
		return 0, false
	}
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	shift := attempt - 1
	if shift > 8 {
		shift = 8
	}
	delay := p.BaseDelay * (1 << shift)
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay, true
}

// Run calls f until it succeeds or the policy gives up. cancelled is polled
// while sleeping between attempts so an abort cuts the backoff short; the
// attempt itself is expected to observe the same abort flag and fail fast.
func Run(p Policy, cancelled func() bool, f func() error) error {
	attempt := 1
	for {
		err := f()
		if err == nil {
			return nil
		}
		delay, retryable := p.Decide(attempt, Classify(err))
		if !retryable {
			return err
		}
		if !sleepUnless(delay, cancelled) {
			return err
		}
		attempt++
	}
}

// sleepUnless sleeps for d, waking early (returning false) if cancelled.
func sleepUnless(d time.Duration, cancelled func() bool) bool {
	const poll = 50 * time.Millisecond
	deadline := time.Now().Add(d)
	for {
		if cancelled != nil && cancelled() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if remaining > poll {
			remaining = poll
		}
		time.Sleep(remaining)
	}
}
