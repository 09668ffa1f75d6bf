package jobstore

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestJob(url string) *Job {
	return &Job{
		ID:         uuid.New().String(),
		URL:        url,
		OutputPath: "/tmp/out.bin",
		Backend:    "pool",
	}
}

func TestAddAndGetJob(t *testing.T) {
	store := openTestStore(t)
	job := newTestJob("https://example.com/file.iso")
	require.NoError(t, store.AddJob(job))

	loaded, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.URL, loaded.URL)
	assert.Equal(t, StateQueued, loaded.State)
	assert.Equal(t, int64(-1), loaded.Metadata.TotalSize)
	assert.False(t, loaded.Metadata.HasMetadata)
	assert.Nil(t, loaded.Bitmap)
}

func TestJobSettingsRoundTrip(t *testing.T) {
	store := openTestStore(t)
	job := newTestJob("https://example.com/private.bin")
	job.Settings = Settings{
		Headers: map[string]string{
			"Authorization": "Bearer token123",
			"X-Custom":      "value",
		},
		Overwrite: true,
	}
	require.NoError(t, store.AddJob(job))

	loaded, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Settings.Headers, loaded.Settings.Headers)
	assert.True(t, loaded.Settings.Overwrite)

	plain := newTestJob("https://example.com/plain.bin")
	require.NoError(t, store.AddJob(plain))
	loaded, err = store.GetJob(plain.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.Settings.Headers)
	assert.False(t, loaded.Settings.Overwrite)
}

func TestGetMissingJob(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetJob("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestClaimNextQueuedOrder(t *testing.T) {
	store := openTestStore(t)
	var ids []string
	for i := 0; i < 3; i++ {
		job := newTestJob(fmt.Sprintf("https://example.com/%d", i))
		require.NoError(t, store.AddJob(job))
		ids = append(ids, job.ID)
	}

	first, err := store.ClaimNextQueued()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, StateRunning, first.State)

	second, err := store.ClaimNextQueued()
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	third, err := store.ClaimNextQueued()
	require.NoError(t, err)
	require.NotNil(t, third)

	claimed := []string{first.ID, second.ID, third.ID}
	assert.ElementsMatch(t, ids, claimed)

	empty, err := store.ClaimNextQueued()
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestClaimConcurrentUnique(t *testing.T) {
	store := openTestStore(t)
	const jobs = 12
	for i := 0; i < jobs; i++ {
		require.NoError(t, store.AddJob(newTestJob(fmt.Sprintf("https://example.com/%d", i))))
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := store.ClaimNextQueued()
				require.NoError(t, err)
				if job == nil {
					return
				}
				mu.Lock()
				seen[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, jobs)
	for id, count := range seen {
		assert.Equal(t, 1, count, "job %s claimed more than once", id)
	}
}

func TestUpdateMetadataAndBitmap(t *testing.T) {
	store := openTestStore(t)
	job := newTestJob("https://example.com/big.tar")
	require.NoError(t, store.AddJob(job))

	meta := Metadata{
		TotalSize:    1 << 30,
		ETag:         `"v42"`,
		LastModified: "Tue, 05 Aug 2025 10:00:00 GMT",
		HasMetadata:  true,
		Filename:     "big.tar",
		SegmentCount: 16,
	}
	require.NoError(t, store.UpdateMetadata(job.ID, meta))
	require.NoError(t, store.UpdateBitmap(job.ID, []byte{0x0f, 0x01}))

	loaded, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, meta, loaded.Metadata)
	assert.Equal(t, []byte{0x0f, 0x01}, loaded.Bitmap)
}

func TestSetOutputPath(t *testing.T) {
	store := openTestStore(t)
	job := newTestJob("https://example.com/file")
	job.OutputPath = ""
	require.NoError(t, store.AddJob(job))
	require.NoError(t, store.SetOutputPath(job.ID, "/data/file.bin"))

	loaded, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "/data/file.bin", loaded.OutputPath)
}

func TestSetStateAndRecover(t *testing.T) {
	store := openTestStore(t)
	running := newTestJob("https://example.com/a")
	paused := newTestJob("https://example.com/b")
	require.NoError(t, store.AddJob(running))
	require.NoError(t, store.AddJob(paused))
	require.NoError(t, store.SetState(running.ID, StateRunning, ""))
	require.NoError(t, store.SetState(paused.ID, StatePaused, ""))

	recovered, err := store.RecoverStaleRunning()
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	loaded, err := store.GetJob(running.ID)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, loaded.State)

	loaded, err = store.GetJob(paused.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, loaded.State)
}

func TestSetErrorState(t *testing.T) {
	store := openTestStore(t)
	job := newTestJob("https://example.com/x")
	require.NoError(t, store.AddJob(job))
	require.NoError(t, store.SetState(job.ID, StateError, "remote resource changed"))

	loaded, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateError, loaded.State)
	assert.Equal(t, "remote resource changed", loaded.Error)
}

func TestRemoveJob(t *testing.T) {
	store := openTestStore(t)
	job := newTestJob("https://example.com/x")
	require.NoError(t, store.AddJob(job))
	require.NoError(t, store.RemoveJob(job.ID))
	_, err := store.GetJob(job.ID)
	require.Error(t, err)
	assert.Error(t, store.RemoveJob(job.ID))
}

func TestListJobs(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AddJob(newTestJob(fmt.Sprintf("https://example.com/%d", i))))
	}
	jobs, err := store.ListJobs()
	require.NoError(t, err)
	assert.Len(t, jobs, 5)
}
