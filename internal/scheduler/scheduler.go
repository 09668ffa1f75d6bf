package scheduler

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/tanq16/hiruko/internal/budget"
	"github.com/tanq16/hiruko/internal/config"
	"github.com/tanq16/hiruko/internal/control"
	"github.com/tanq16/hiruko/internal/engine"
	"github.com/tanq16/hiruko/internal/hostpolicy"
	"github.com/tanq16/hiruko/internal/jobstore"
	"github.com/tanq16/hiruko/internal/probe"
	"github.com/tanq16/hiruko/internal/retry"
	"github.com/tanq16/hiruko/internal/segment"
	"github.com/tanq16/hiruko/internal/storage"
	"github.com/tanq16/hiruko/internal/utils"
)

// commitEvery is how many segment completions may pass between bitmap writes
// to the store. Progress lost on a crash is bounded by this many segments.
const commitEvery = 2

// Scheduler drives claimed jobs through probe, plan, transfer and finalize.
type Scheduler struct {
	Config   *config.Config
	Store    jobstore.Store
	Budget   *budget.Budget
	Registry *control.Registry
	Hosts    *hostpolicy.Policy
	Client   *utils.HTTPClient

	// Progress, when set, receives byte counts while transfers run.
	Progress func(jobID string, received, total int64)
}

func New(cfg *config.Config, store jobstore.Store) *Scheduler {
	return &Scheduler{
		Config:   cfg,
		Store:    store,
		Budget:   budget.New(cfg.MaxTotalConnections, cfg.MaxConnectionsPerHost),
		Registry: control.NewRegistry(),
		Hosts:    hostpolicy.New(hostpolicy.DefaultTTL),
		Client: utils.NewHTTPClient(utils.HTTPClientConfig{
			Timeout:   cfg.HTTPTimeout.Std(),
			ProxyURL:  cfg.ProxyURL,
			UserAgent: cfg.UserAgent,
		}),
	}
}

func (s *Scheduler) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: s.Config.RetryAttempts,
		BaseDelay:   s.Config.RetryBaseDelay.Std(),
		MaxDelay:    s.Config.RetryMaxDelay.Std(),
	}
}

func (s *Scheduler) backend(job *jobstore.Job) engine.Backend {
	name := job.Backend
	if name == "" {
		name = s.Config.Backend
	}
	if name == "loop" {
		return engine.Loop{}
	}
	return engine.Pool{}
}

// RunJob executes one job already claimed into the running state, moving it
// to completed, paused or error before returning. force skips the
// remote-changed check and replans from scratch.
func (s *Scheduler) RunJob(job *jobstore.Job, force bool) error {
	log := utils.GetLogger("scheduler")
	log.Debug().Str("op", "run").Str("job", job.ID).Str("url", job.URL).Msg("starting job")

	token := s.Registry.Register(job.ID)
	defer s.Registry.Unregister(job.ID)

	err := s.process(job, token, force)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, control.ErrAborted):
		if stateErr := s.Store.SetState(job.ID, jobstore.StatePaused, ""); stateErr != nil {
			return stateErr
		}
		log.Info().Str("op", "run").Str("job", job.ID).Msg("job paused")
		return nil
	default:
		if retry.Classify(err) == retry.KindConnection {
			if host := hostOf(job.URL); host != "" {
				s.Hosts.Throttled(host)
			}
		}
		if stateErr := s.Store.SetState(job.ID, jobstore.StateError, err.Error()); stateErr != nil {
			log.Error().Str("op", "run").Str("job", job.ID).Err(stateErr).Msg("failed to record job error")
		}
		return err
	}
}

func (s *Scheduler) process(job *jobstore.Job, token *control.Token, force bool) error {
	log := utils.GetLogger("scheduler")

	fresh, err := probe.Fetch(s.Client, job.URL, job.Settings.Headers)
	if err != nil {
		return err
	}
	if !force {
		stored := probe.Stored{
			ETag:         job.Metadata.ETag,
			LastModified: job.Metadata.LastModified,
			TotalSize:    job.Metadata.TotalSize,
			HasMetadata:  job.Metadata.HasMetadata,
		}
		if err := probe.Validate(stored, fresh); err != nil {
			// Partial progress stays on disk so the user can resume
			// with force after inspecting what changed.
			return err
		}
	}

	finalPath, err := s.resolveOutputPath(job, fresh)
	if err != nil {
		return err
	}
	if finalPath != job.OutputPath {
		if err := s.Store.SetOutputPath(job.ID, finalPath); err != nil {
			return err
		}
		job.OutputPath = finalPath
	}

	segmented := fresh.AcceptRanges && fresh.ContentLength > 0
	segmentCount := 1
	if segmented {
		segmentCount = s.chooseSegmentCount(job, fresh)
	}
	plan := segment.Plan(fresh.ContentLength, segmentCount)

	var bitmap *segment.Bitmap
	reusePlan := !force && job.Metadata.HasMetadata && job.Metadata.SegmentCount == segmentCount
	if reusePlan && len(job.Bitmap) > 0 {
		bitmap = segment.BitmapFromBytes(job.Bitmap, segmentCount)
	} else {
		bitmap = segment.NewBitmap(segmentCount)
	}

	meta := jobstore.Metadata{
		TotalSize:    fresh.ContentLength,
		ETag:         fresh.ETag,
		LastModified: fresh.LastModified,
		HasMetadata:  true,
		Filename:     fresh.Filename,
		SegmentCount: segmentCount,
	}
	if err := s.Store.UpdateMetadata(job.ID, meta); err != nil {
		return err
	}
	job.Metadata = meta

	writer, err := s.openStorage(finalPath, fresh.ContentLength, reusePlan)
	if err != nil {
		return err
	}
	// The temp file outlives any failure here. Once UpdateBitmap has
	// committed completed segments their bytes must stay on disk, or a
	// later resume would skip segments that are now zero-filled holes.
	// Forced restarts and cancel are the only paths that delete it.
	defer writer.Close()

	// Every job reserves, single-stream included, so the counter stays
	// honest. A saturated budget still grants one connection, otherwise
	// claimed jobs would deadlock behind long-running ones.
	host := hostOf(job.URL)
	reserved := s.Budget.Reserve(host, segmentCount)
	defer s.Budget.Release(host, reserved)
	granted := reserved
	if granted < 1 {
		granted = 1
	}

	var completions atomic.Int64
	transfer := &engine.Transfer{
		URL:         job.URL,
		Headers:     job.Settings.Headers,
		Client:      s.Client,
		TotalSize:   fresh.ContentLength,
		Segments:    plan,
		Bitmap:      bitmap,
		Storage:     writer,
		Policy:      s.retryPolicy(),
		Concurrency: granted,
		Abort:       token,
		OnComplete: func(int) {
			n := completions.Add(1)
			if n%commitEvery == 0 {
				if err := s.Store.UpdateBitmap(job.ID, bitmap.Bytes(segmentCount)); err != nil {
					log.Error().Str("op", "commit").Str("job", job.ID).Err(err).Msg("bitmap commit failed")
				}
			}
			if s.Progress != nil {
				s.Progress(job.ID, transferReceived(plan, bitmap, segmentCount), fresh.ContentLength)
			}
		},
	}

	if segmented {
		err = s.backend(job).Run(transfer)
	} else {
		log.Debug().Str("op", "run").Str("job", job.ID).Msg("no range support, using single stream")
		err = engine.Stream(transfer)
	}

	// Always persist the bitmap before deciding the job's fate, so a
	// pause or crash resumes from the last completed segments.
	if commitErr := s.Store.UpdateBitmap(job.ID, bitmap.Bytes(segmentCount)); commitErr != nil && err == nil {
		err = commitErr
	}
	if err != nil {
		return err
	}

	if err := writer.Sync(); err != nil {
		return retry.StorageErr(err)
	}
	if err := writer.Finalize(finalPath, job.Settings.Overwrite); err != nil {
		return err
	}
	if err := s.Store.SetState(job.ID, jobstore.StateCompleted, ""); err != nil {
		return err
	}
	if host != "" {
		s.Hosts.Record(host, hostpolicy.Knowledge{AcceptRanges: fresh.AcceptRanges, SegmentCount: segmentCount})
	}
	log.Info().Str("op", "run").Str("job", job.ID).Str("output", finalPath).
		Int64("bytes", transfer.Received()).Msg("job completed")
	return nil
}

// resolveOutputPath fills in a missing filename from the probe and ensures
// the parent directory exists. Derived names are renewed with a numeric
// suffix when the destination already exists, while an explicit path is
// kept as given so finalize can refuse to clobber it.
func (s *Scheduler) resolveOutputPath(job *jobstore.Job, fresh *probe.Result) (string, error) {
	path := job.OutputPath
	derived := false
	if path == "" {
		path = filepath.Join(s.Config.DownloadDir, fresh.Filename)
		derived = true
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, fresh.Filename)
		derived = true
	}
	if derived && !job.Settings.Overwrite {
		if _, err := os.Stat(path); err == nil {
			path = utils.RenewOutputPath(path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("error creating output directory: %v", err)
	}
	return path, nil
}

// openStorage reopens the temp file when resuming a known plan, otherwise
// starts fresh with preallocation.
func (s *Scheduler) openStorage(finalPath string, totalSize int64, resume bool) (*storage.Writer, error) {
	tempPath := storage.TempPath(finalPath)
	if resume {
		if _, err := os.Stat(tempPath); err == nil {
			return storage.OpenExisting(tempPath)
		}
	}
	writer, err := storage.Create(tempPath)
	if err != nil {
		return nil, err
	}
	if totalSize > 0 {
		if err := writer.Preallocate(totalSize); err != nil {
			writer.Remove()
			return nil, err
		}
	}
	return writer, nil
}

func transferReceived(plan []segment.Segment, bitmap *segment.Bitmap, count int) int64 {
	var received int64
	for i := 0; i < count && i < len(plan); i++ {
		if bitmap.IsComplete(i) {
			received += plan[i].Length()
		}
	}
	return received
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
