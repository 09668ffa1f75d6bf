package budget

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveAndRelease(t *testing.T) {
	b := New(16, 16)
	assert.Equal(t, 8, b.Reserve("a.example.com", 8))
	assert.Equal(t, 8, b.InUse())
	assert.Equal(t, 8, b.Reserve("b.example.com", 10))
	assert.Equal(t, 16, b.InUse())
	assert.Equal(t, 0, b.Reserve("c.example.com", 1))

	b.Release("a.example.com", 8)
	assert.Equal(t, 8, b.InUse())
	b.Release("b.example.com", 8)
	assert.Equal(t, 0, b.InUse())
}

func TestPerHostCap(t *testing.T) {
	b := New(64, 4)
	// Host cap binds before the global cap; the global counter must not
	// keep the slice the host cap rejected.
	assert.Equal(t, 4, b.Reserve("cdn.example.com", 10))
	assert.Equal(t, 4, b.InUse())
	assert.Equal(t, 0, b.Reserve("cdn.example.com", 1))
	assert.Equal(t, 4, b.Reserve("other.example.com", 4))
	assert.Equal(t, 8, b.InUse())
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	b := New(8, 8)
	require.Equal(t, 4, b.Reserve("h", 4))

	var wg sync.WaitGroup
	for _i := 0; _i < 10; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Release("h", 3)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, b.InUse())
	// Budget is fully usable again after the over-release storm.
	assert.Equal(t, 8, b.Reserve("h", 8))
}

func TestConcurrentJobsNeverExceedGlobal(t *testing.T) {
	const maxTotal = 12
	b := New(maxTotal, maxTotal)

	var wg sync.WaitGroup
	var mu sync.Mutex
	peak := 0
	for _i := 0; _i < 8; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _i := 0; _i < 50; _i++ {
				granted := b.Reserve("host", 5)
				mu.Lock()
				if used := b.InUse(); used > peak {
					peak = used
				}
				mu.Unlock()
				b.Release("host", granted)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak, maxTotal)
	assert.Equal(t, 0, b.InUse())
}

func TestZeroAndNegativeRequests(t *testing.T) {
	b := New(4, 4)
	assert.Equal(t, 0, b.Reserve("h", 0))
	assert.Equal(t, 0, b.Reserve("h", -3))
	b.Release("h", -1)
	assert.Equal(t, 0, b.InUse())
}
