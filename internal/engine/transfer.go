package engine

import (
	"sync"
	"sync/atomic"

	"github.com/tanq16/hiruko/internal/control"
	"github.com/tanq16/hiruko/internal/retry"
	"github.com/tanq16/hiruko/internal/segment"
	"github.com/tanq16/hiruko/internal/storage"
	"github.com/tanq16/hiruko/internal/utils"
)

// Transfer carries everything a backend needs to move one file's segments.
// Segments and Bitmap describe the full plan; the backend only fetches the
// segments the bitmap does not already mark complete.
type Transfer struct {
	URL         string
	Headers     map[string]string
	Client      *utils.HTTPClient
	TotalSize   int64
	Segments    []segment.Segment
	Bitmap      *segment.Bitmap
	Storage     *storage.Writer
	Policy      retry.Policy
	Concurrency int
	Abort       *control.Token

	// OnComplete fires after a segment's bytes are on disk and the bitmap
	// is updated. Called from backend goroutines.
	OnComplete func(index int)

	mu       sync.Mutex
	received atomic.Int64
}

// Received reports the bytes written to storage so far, across all segments.
func (t *Transfer) Received() int64 {
	return t.received.Load()
}

// pendingIndexes lists the segments the bitmap has not marked complete yet.
func (t *Transfer) pendingIndexes() []int {
	var pending []int
	for i := range t.Segments {
		if !t.Bitmap.IsComplete(i) {
			pending = append(pending, i)
		}
	}
	return pending
}

func (t *Transfer) markComplete(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Bitmap.SetComplete(index)
	if t.OnComplete != nil {
		t.OnComplete(index)
	}
}

// Backend executes a transfer's pending segments. Run returns nil when every
// segment is complete, control.ErrAborted on a pause or cancel signal, and the
// first fatal segment error otherwise.
type Backend interface {
	Run(t *Transfer) error
	Name() string
}
