// Package hostpolicy remembers per-host transfer characteristics for the
// lifetime of a run. Entries expire so a host that was throttling or
// rejecting ranges an hour ago gets a clean slate.
package hostpolicy

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const DefaultTTL = 30 * time.Minute

// Knowledge is what past transfers taught us about a host.
type Knowledge struct {
	AcceptRanges bool
	// SegmentCount is the per-job segment count that worked last time,
	// lowered after throttling responses.
	SegmentCount int
}

type Policy struct {
	cache *ttlcache.Cache[string, Knowledge]
}

func New(ttl time.Duration) *Policy {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache := ttlcache.New(ttlcache.WithTTL[string, Knowledge](ttl))
	go cache.Start()
	return &Policy{cache: cache}
}

// Record stores fresh knowledge for host, refreshing its TTL.
func (p *Policy) Record(host string, k Knowledge) {
	p.cache.Set(host, k, ttlcache.DefaultTTL)
}

// Lookup returns the remembered knowledge for host, if still fresh.
func (p *Policy) Lookup(host string) (Knowledge, bool) {
	item := p.cache.Get(host)
	if item == nil {
		return Knowledge{}, false
	}
	return item.Value(), true
}

// Throttled halves the remembered segment count for host, so the next job
// against it opens fewer connections.
func (p *Policy) Throttled(host string) {
	item := p.cache.Get(host)
	if item == nil {
		return
	}
	k := item.Value()
	if k.SegmentCount > 1 {
		k.SegmentCount /= 2
		p.cache.Set(host, k, ttlcache.DefaultTTL)
	}
}

// Stop halts the background expiry loop.
func (p *Policy) Stop() {
	p.cache.Stop()
}
