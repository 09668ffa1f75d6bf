package engine

import (
	"fmt"
	"sync"

	"github.com/tanq16/hiruko/internal/control"
	"github.com/tanq16/hiruko/internal/retry"
	"github.com/tanq16/hiruko/internal/utils"
)

// Pool is the worker pool backend. A fixed set of workers pull segment
// indexes from a shared queue; each worker retries its segment per the policy
// before moving on. The first fatal error drains the queue so no new segments
// are dispatched, while already running workers finish their current attempt.
type Pool struct{}

func (Pool) Name() string {
	return "pool"
}

func (Pool) Run(t *Transfer) error {
	log := utils.GetLogger("engine")
	pending := t.pendingIndexes()
	if len(pending) == 0 {
		return nil
	}
	workers := t.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	var (
		mu       sync.Mutex
		queue    = pending
		fatalErr error
	)
	next := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		// An abort stops dispatch immediately; segments already in
		// their read loop observe the same flag and bail out.
		if fatalErr == nil && t.Abort.Aborted() {
			fatalErr = control.ErrAborted
			queue = nil
		}
		if fatalErr != nil || len(queue) == 0 {
			return 0, false
		}
		index := queue[0]
		queue = queue[1:]
		return index, true
	}
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if fatalErr == nil {
			fatalErr = err
			queue = nil
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					fail(fmt.Errorf("segment worker panic: %v", r))
				}
			}()
			for {
				index, ok := next()
				if !ok {
					return
				}
				err := retry.Run(t.Policy, t.Abort.Aborted, func() error {
					return fetchSegment(t, index)
				})
				if err != nil {
					log.Debug().Str("op", "pool").Int("segment", index).Err(err).Msg("segment failed")
					fail(err)
					return
				}
				t.markComplete(index)
			}
		}()
	}
	wg.Wait()
	return fatalErr
}
