package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/tanq16/hiruko/internal/utils"
)

// RunQueued claims and runs queued jobs with numWorkers parallel workers
// until the queue is empty. Per-job failures are recorded on the job itself;
// the returned count says how many jobs did not complete.
func (s *Scheduler) RunQueued(numWorkers int) int {
	log := utils.GetLogger("scheduler")
	if numWorkers < 1 {
		numWorkers = 1
	}
	var failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := s.Store.ClaimNextQueued()
				if err != nil {
					log.Error().Str("op", "claim").Err(err).Msg("claim failed, worker stopping")
					failed.Add(1)
					return
				}
				if job == nil {
					return
				}
				if err := s.RunJob(job, false); err != nil {
					log.Error().Str("op", "run").Str("job", job.ID).Err(err).Msg("job failed")
					failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	return int(failed.Load())
}
