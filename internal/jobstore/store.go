package jobstore

import "time"

// Job lifecycle states.
const (
	StateQueued    = "queued"
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
	StateError     = "error"
)

// Settings are the user-chosen knobs for one job.
type Settings struct {
	Headers   map[string]string
	Overwrite bool
}

// Metadata is the remote snapshot recorded after the first successful probe.
// It gates whether a paused job may resume against the same resource.
type Metadata struct {
	TotalSize    int64
	ETag         string
	LastModified string
	HasMetadata  bool
	Filename     string
	SegmentCount int
}

// Job is one queued or in-progress download.
type Job struct {
	ID         string
	URL        string
	OutputPath string
	State      string
	Backend    string
	Settings   Settings
	Metadata   Metadata
	Bitmap     []byte
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store persists jobs across process restarts.
type Store interface {
	AddJob(job *Job) error
	GetJob(id string) (*Job, error)
	ListJobs() ([]*Job, error)
	// ClaimNextQueued atomically moves the oldest queued job to running
	// and returns it. Returns nil when the queue is empty.
	ClaimNextQueued() (*Job, error)
	UpdateMetadata(id string, meta Metadata) error
	SetOutputPath(id string, path string) error
	UpdateBitmap(id string, bitmap []byte) error
	SetState(id string, state string, message string) error
	// RecoverStaleRunning resets jobs left in running by a dead process
	// back to queued. Returns how many were reset.
	RecoverStaleRunning() (int, error)
	RemoveJob(id string) error
	Close() error
}
