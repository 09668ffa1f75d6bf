package engine

import (
	"fmt"
	"time"

	"github.com/tanq16/hiruko/internal/control"
	"github.com/tanq16/hiruko/internal/retry"
	"github.com/tanq16/hiruko/internal/utils"
)

// Loop is the event loop backend. One scheduling goroutine owns all transfer
// state and hands single attempts to short-lived goroutines, keeping at most
// Concurrency attempts in flight. Failed attempts park on a retry deadline and
// the loop's wait is bounded by the earliest deadline, so a backoff never
// stalls other segments and an idle loop never spins.
type Loop struct{}

func (Loop) Name() string {
	return "loop"
}

type attempt struct {
	index   int
	attempt int
}

type retryEntry struct {
	attempt
	readyAt time.Time
}

type attemptResult struct {
	attempt
	err error
}

func (Loop) Run(t *Transfer) error {
	log := utils.GetLogger("engine")
	var pending []attempt
	for _, index := range t.pendingIndexes() {
		pending = append(pending, attempt{index: index, attempt: 1})
	}
	remaining := len(pending)
	if remaining == 0 {
		return nil
	}
	slots := t.Concurrency
	if slots < 1 {
		slots = 1
	}

	var (
		waiting  []retryEntry
		inFlight int
		fatalErr error
	)
	results := make(chan attemptResult)

	for remaining > 0 || inFlight > 0 {
		// An abort cancels everything not yet dispatched; in-flight
		// attempts observe the same flag and report back quickly.
		if fatalErr == nil && t.Abort.Aborted() {
			fatalErr = control.ErrAborted
			pending = nil
			waiting = nil
		}
		now := time.Now()
		// Promote retries whose backoff has elapsed.
		kept := waiting[:0]
		for _, entry := range waiting {
			if !entry.readyAt.After(now) {
				pending = append(pending, entry.attempt)
			} else {
				kept = append(kept, entry)
			}
		}
		waiting = kept

		for fatalErr == nil && inFlight < slots && len(pending) > 0 {
			a := pending[0]
			pending = pending[1:]
			inFlight++
			go func(a attempt) {
				defer func() {
					if r := recover(); r != nil {
						results <- attemptResult{attempt: a, err: fmt.Errorf("segment attempt panic: %v", r)}
					}
				}()
				results <- attemptResult{attempt: a, err: fetchSegment(t, a.index)}
			}(a)
		}

		if fatalErr != nil && inFlight == 0 {
			break
		}
		if inFlight == 0 && len(pending) == 0 && len(waiting) == 0 {
			break
		}

		// Wait for a result, waking at the nearest retry deadline when
		// nothing is in flight yet.
		var timer *time.Timer
		var timerC <-chan time.Time
		if inFlight == 0 {
			nearest := waiting[0].readyAt
			for _, entry := range waiting[1:] {
				if entry.readyAt.Before(nearest) {
					nearest = entry.readyAt
				}
			}
			timer = time.NewTimer(time.Until(nearest))
			timerC = timer.C
		}
		select {
		case result := <-results:
			if timer != nil {
				timer.Stop()
			}
			inFlight--
			if result.err == nil {
				t.markComplete(result.index)
				remaining--
				continue
			}
			delay, retryable := t.Policy.Decide(result.attempt.attempt, retry.Classify(result.err))
			if retryable && !t.Abort.Aborted() && fatalErr == nil {
				log.Debug().Str("op", "loop").Int("segment", result.index).
					Int("attempt", result.attempt.attempt).Dur("backoff", delay).
					Err(result.err).Msg("segment attempt failed")
				waiting = append(waiting, retryEntry{
					attempt: attempt{index: result.index, attempt: result.attempt.attempt + 1},
					readyAt: time.Now().Add(delay),
				})
				continue
			}
			if fatalErr == nil {
				fatalErr = result.err
				pending = nil
				waiting = nil
			}
		case <-timerC:
		}
	}
	return fatalErr
}
