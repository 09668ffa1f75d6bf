package probe

import "fmt"

// Stored is the validator snapshot persisted alongside a job. HasMetadata is
// false for jobs created before the first successful probe.
type Stored struct {
	ETag         string
	LastModified string
	TotalSize    int64
	HasMetadata  bool
}

// RemoteChangedError reports that the resource on the server no longer matches
// the snapshot a paused job was planned against.
type RemoteChangedError struct {
	ETagChanged         bool
	LastModifiedChanged bool
	SizeChanged         bool
}

func (e *RemoteChangedError) Error() string {
	return fmt.Sprintf("remote resource changed (etag=%t last-modified=%t size=%t)",
		e.ETagChanged, e.LastModifiedChanged, e.SizeChanged)
}

// Validate compares a fresh probe against the stored snapshot. A validator is
// only compared when both sides carry it, so a server that stops sending an
// ETag does not invalidate partial progress on its own. Size is always
// compared when both sides know it.
func Validate(stored Stored, fresh *Result) error {
	if !stored.HasMetadata {
		return nil
	}
	changed := &RemoteChangedError{}
	if stored.ETag != "" && fresh.ETag != "" && stored.ETag != fresh.ETag {
		changed.ETagChanged = true
	}
	if stored.LastModified != "" && fresh.LastModified != "" && stored.LastModified != fresh.LastModified {
		changed.LastModifiedChanged = true
	}
	if stored.TotalSize >= 0 && fresh.ContentLength >= 0 && stored.TotalSize != fresh.ContentLength {
		changed.SizeChanged = true
	}
	if changed.ETagChanged || changed.LastModifiedChanged || changed.SizeChanged {
		return changed
	}
	return nil
}
