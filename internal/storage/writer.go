package storage

import (
	"fmt"
	"os"
)

// TempSuffix is appended to the final filename while the download is in
// progress; Finalize renames the temp file over it.
const TempSuffix = ".part"

// TempPath returns the temp file path for a final output path.
func TempPath(finalPath string) string {
	return finalPath + TempSuffix
}

// Writer owns the on-disk temp file for one job. WriteAt is safe for
// concurrent use by independent writers because segment ranges never overlap;
// Sync and Finalize must not race with in-flight writes.
type Writer struct {
	file     *os.File
	tempPath string
}

// Create makes a fresh temp file, truncating any stale one at the same path.
func Create(tempPath string) (*Writer, error) {
	file, err := os.OpenFile(tempPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("error creating temp file %s: %w", tempPath, err)
	}
	return &Writer{file: file, tempPath: tempPath}, nil
}

// OpenExisting opens a temp file left by a prior run for resume, without
// truncating its contents.
func OpenExisting(tempPath string) (*Writer, error) {
	file, err := os.OpenFile(tempPath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening temp file %s: %w", tempPath, err)
	}
	return &Writer{file: file, tempPath: tempPath}, nil
}

// Preallocate reserves size bytes, with real block allocation where the
// platform supports it and a logical length extension otherwise. Either way
// the file reads as size bytes of zeros in unwritten regions.
func (w *Writer) Preallocate(size int64) error {
	if size <= 0 {
		return nil
	}
	if err := preallocate(w.file, size); err != nil {
		return fmt.Errorf("error preallocating %d bytes: %w", size, err)
	}
	return nil
}

// WriteAt writes p at offset without moving the file cursor.
func (w *Writer) WriteAt(p []byte, offset int64) (int, error) {
	return w.file.WriteAt(p, offset)
}

// Write appends at the current cursor; used by the unsegmented stream path.
func (w *Writer) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

// Seek moves the cursor; used by the unsegmented stream path when resuming.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	return w.file.Seek(offset, whence)
}

func (w *Writer) Sync() error {
	return w.file.Sync()
}

func (w *Writer) TempPath() string {
	return w.tempPath
}

func (w *Writer) Close() error {
	return w.file.Close()
}

// Finalize atomically renames the temp file to finalPath. Refuses to replace
// an existing destination unless overwrite is set. Closes the file.
func (w *Writer) Finalize(finalPath string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(finalPath); err == nil {
			return fmt.Errorf("destination already exists: %s", finalPath)
		}
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("error closing temp file: %w", err)
	}
	if err := os.Rename(w.tempPath, finalPath); err != nil {
		return fmt.Errorf("error finalizing %s: %w", finalPath, err)
	}
	return nil
}

// Remove closes and deletes the temp file. Used on forced restart so a stale
// file cannot leak into a newly planned segment layout.
func (w *Writer) Remove() error {
	w.file.Close()
	if err := os.Remove(w.tempPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
