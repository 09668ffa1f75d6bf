// Package budget bounds concurrent connections globally and per remote host.
// A single Budget is shared by every running job's backend; tests instantiate
// independent budgets rather than relying on package state.
package budget

import (
	"sync"
	"sync/atomic"
)

type Budget struct {
	maxTotal   int64
	maxPerHost int64
	total      atomic.Int64

	mu    sync.Mutex
	hosts map[string]*atomic.Int64
}

func New(maxTotal, maxPerHost int) *Budget {
	if maxTotal < 1 {
		maxTotal = 1
	}
	if maxPerHost < 1 || maxPerHost > maxTotal {
		maxPerHost = maxTotal
	}
	return &Budget{
		maxTotal:   int64(maxTotal),
		maxPerHost: int64(maxPerHost),
		hosts:      make(map[string]*atomic.Int64),
	}
}

func (b *Budget) hostCounter(host string) *atomic.Int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	counter, ok := b.hosts[host]
	if !ok {
		counter = &atomic.Int64{}
		b.hosts[host] = counter
	}
	return counter
}

// InUse reports the number of connections currently reserved globally.
func (b *Budget) InUse() int {
	return int(b.total.Load())
}

// Reserve takes up to requested connections for host, bounded by both the
// global and per-host remainder, and returns the number actually granted
// (possibly 0). Callers must Release exactly what was granted.
func (b *Budget) Reserve(host string, requested int) int {
	if requested <= 0 {
		return 0
	}
	granted := reserveUpTo(&b.total, b.maxTotal, int64(requested))
	if granted == 0 {
		return 0
	}
	hostGranted := reserveUpTo(b.hostCounter(host), b.maxPerHost, granted)
	if hostGranted < granted {
		// Return the slice the host cap would not allow.
		releaseFloor(&b.total, granted-hostGranted)
	}
	return int(hostGranted)
}

// Release returns n connections for host. Over-release is clamped: neither
// counter ever goes below zero, even under concurrent callers.
func (b *Budget) Release(host string, n int) {
	if n <= 0 {
		return
	}
	releaseFloor(b.hostCounter(host), int64(n))
	releaseFloor(&b.total, int64(n))
}

// reserveUpTo atomically adds min(requested, limit-current) to the counter
// and returns the amount taken.
func reserveUpTo(counter *atomic.Int64, limit, requested int64) int64 {
	for {
		current := counter.Load()
		available := limit - current
		if available <= 0 {
			return 0
		}
		take := requested
		if take > available {
			take = available
		}
		if counter.CompareAndSwap(current, current+take) {
			return take
		}
	}
}

// releaseFloor subtracts n but never drives the counter negative. A plain
// load-then-subtract is unsafe once several jobs release concurrently.
func releaseFloor(counter *atomic.Int64, n int64) {
	for {
		current := counter.Load()
		next := current - n
		if next < 0 {
			next = 0
		}
		if counter.CompareAndSwap(current, next) {
			return
		}
	}
}
