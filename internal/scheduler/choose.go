package scheduler

import (
	"github.com/tanq16/hiruko/internal/jobstore"
	"github.com/tanq16/hiruko/internal/probe"
)

// chooseSegmentCount sizes the plan for a job. A previously planned job keeps
// its count so the stored bitmap stays meaningful; new jobs get one segment
// per MinSegmentSize bytes, clamped by config bounds, per-host limits and
// anything past transfers taught us about the host.
func (s *Scheduler) chooseSegmentCount(job *jobstore.Job, fresh *probe.Result) int {
	if job.Metadata.HasMetadata && job.Metadata.SegmentCount > 0 {
		return job.Metadata.SegmentCount
	}
	count := 1
	if s.Config.MinSegmentSize > 0 {
		count = int(fresh.ContentLength / s.Config.MinSegmentSize)
	}
	if count < s.Config.MinSegmentsPerJob {
		count = s.Config.MinSegmentsPerJob
	}
	if count > s.Config.MaxSegmentsPerJob {
		count = s.Config.MaxSegmentsPerJob
	}
	if count > s.Config.MaxConnectionsPerHost {
		count = s.Config.MaxConnectionsPerHost
	}
	if k, ok := s.Hosts.Lookup(hostOf(job.URL)); ok && k.SegmentCount > 0 && count > k.SegmentCount {
		count = k.SegmentCount
	}
	if int64(count) > fresh.ContentLength {
		count = int(fresh.ContentLength)
	}
	if count < 1 {
		count = 1
	}
	return count
}
