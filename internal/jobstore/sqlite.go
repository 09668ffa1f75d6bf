package jobstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tanq16/hiruko/internal/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	output_path TEXT NOT NULL,
	state TEXT NOT NULL,
	backend TEXT NOT NULL,
	headers TEXT NOT NULL DEFAULT '',
	overwrite INTEGER NOT NULL DEFAULT 0,
	total_size INTEGER NOT NULL DEFAULT -1,
	etag TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL DEFAULT '',
	has_metadata INTEGER NOT NULL DEFAULT 0,
	filename TEXT NOT NULL DEFAULT '',
	segment_count INTEGER NOT NULL DEFAULT 0,
	bitmap BLOB,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state, created_at);
`

// SQLiteStore is the on-disk Store backed by a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the job database at dbPath, creating parent
// directories as needed.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %v", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening job database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error opening job database: %v", err)
	}
	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("error configuring job database: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating job schema: %v", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddJob(job *Job) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.State == "" {
		job.State = StateQueued
	}
	if job.Metadata.TotalSize == 0 && !job.Metadata.HasMetadata {
		job.Metadata.TotalSize = -1
	}
	_, err := s.db.Exec(`INSERT INTO jobs
		(id, url, output_path, state, backend, headers, overwrite, total_size,
		 etag, last_modified, has_metadata, filename, segment_count, bitmap,
		 error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.URL, job.OutputPath, job.State, job.Backend,
		encodeHeaders(job.Settings.Headers), boolToInt(job.Settings.Overwrite),
		job.Metadata.TotalSize, job.Metadata.ETag, job.Metadata.LastModified,
		boolToInt(job.Metadata.HasMetadata), job.Metadata.Filename,
		job.Metadata.SegmentCount, job.Bitmap, job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error inserting job %s: %v", job.ID, err)
	}
	return nil
}

const jobColumns = `id, url, output_path, state, backend, headers, overwrite,
	total_size, etag, last_modified, has_metadata, filename, segment_count,
	bitmap, error, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*Job, error) {
	job := &Job{}
	var hasMetadata, overwrite int
	var headers string
	err := row.Scan(&job.ID, &job.URL, &job.OutputPath, &job.State, &job.Backend,
		&headers, &overwrite,
		&job.Metadata.TotalSize, &job.Metadata.ETag, &job.Metadata.LastModified,
		&hasMetadata, &job.Metadata.Filename, &job.Metadata.SegmentCount,
		&job.Bitmap, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Settings.Headers = decodeHeaders(headers)
	job.Settings.Overwrite = overwrite != 0
	job.Metadata.HasMetadata = hasMetadata != 0
	return job, nil
}

func (s *SQLiteStore) GetJob(id string) (*Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading job %s: %v", id, err)
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs() ([]*Job, error) {
	rows, err := s.db.Query(`SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("error listing jobs: %v", err)
	}
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("error listing jobs: %v", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNextQueued picks the oldest queued job and flips it to running. The
// update is guarded on the state still being queued, so concurrent claimers
// racing for the same row fall through and try the next one.
func (s *SQLiteStore) ClaimNextQueued() (*Job, error) {
	for {
		row := s.db.QueryRow(`SELECT ` + jobColumns + ` FROM jobs
			WHERE state = '` + StateQueued + `' ORDER BY created_at, id LIMIT 1`)
		job, err := scanJob(row)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error claiming job: %v", err)
		}
		result, err := s.db.Exec(`UPDATE jobs SET state = ?, error = '', updated_at = ?
			WHERE id = ? AND state = ?`,
			StateRunning, time.Now().UTC(), job.ID, StateQueued)
		if err != nil {
			return nil, fmt.Errorf("error claiming job %s: %v", job.ID, err)
		}
		claimed, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("error claiming job %s: %v", job.ID, err)
		}
		if claimed == 1 {
			job.State = StateRunning
			job.Error = ""
			return job, nil
		}
		// Lost the race for this row, try the next queued job.
	}
}

func (s *SQLiteStore) UpdateMetadata(id string, meta Metadata) error {
	return s.exec(`UPDATE jobs SET total_size = ?, etag = ?, last_modified = ?,
		has_metadata = ?, filename = ?, segment_count = ?, updated_at = ? WHERE id = ?`,
		id, meta.TotalSize, meta.ETag, meta.LastModified, boolToInt(meta.HasMetadata),
		meta.Filename, meta.SegmentCount, time.Now().UTC(), id)
}

func (s *SQLiteStore) SetOutputPath(id string, path string) error {
	return s.exec(`UPDATE jobs SET output_path = ?, updated_at = ? WHERE id = ?`,
		id, path, time.Now().UTC(), id)
}

func (s *SQLiteStore) UpdateBitmap(id string, bitmap []byte) error {
	return s.exec(`UPDATE jobs SET bitmap = ?, updated_at = ? WHERE id = ?`,
		id, bitmap, time.Now().UTC(), id)
}

func (s *SQLiteStore) SetState(id string, state string, message string) error {
	return s.exec(`UPDATE jobs SET state = ?, error = ?, updated_at = ? WHERE id = ?`,
		id, state, message, time.Now().UTC(), id)
}

func (s *SQLiteStore) RecoverStaleRunning() (int, error) {
	result, err := s.db.Exec(`UPDATE jobs SET state = ?, updated_at = ? WHERE state = ?`,
		StateQueued, time.Now().UTC(), StateRunning)
	if err != nil {
		return 0, fmt.Errorf("error recovering stale jobs: %v", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error recovering stale jobs: %v", err)
	}
	return int(count), nil
}

func (s *SQLiteStore) RemoveJob(id string) error {
	return s.exec(`DELETE FROM jobs WHERE id = ?`, id, id)
}

// exec runs a single-row statement and reports a not-found error when the
// job id matched nothing.
func (s *SQLiteStore) exec(query string, id string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("error updating job %s: %v", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating job %s: %v", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

// Headers persist as "Name: value" lines, one per header.
func encodeHeaders(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s\n", key, headers[key])
	}
	return b.String()
}

func decodeHeaders(encoded string) map[string]string {
	if encoded == "" {
		return nil
	}
	headers := utils.ParseHeaderArgs(strings.Split(strings.TrimSpace(encoded), "\n"))
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
