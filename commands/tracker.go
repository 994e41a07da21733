package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// activityLogFileName is the per-directory ledger of uploaded images.
const activityLogFileName = ".imgup_activity_log"

// activityLogSeparator joins the three fields of an activity log record.
// It cannot appear unescaped in URLs, and Record rejects field values
// containing it, so records stay unambiguous without an escaping scheme.
const activityLogSeparator = "<"

// ErrTrackerLocked means another imgup instance holds the activity log
// for the same directory.
var ErrTrackerLocked = errors.New("activity log is locked by another instance")

// ErrTrackerCorrupt means the activity log failed structural validation.
// It is never repaired automatically; the operator must remove the file.
var ErrTrackerCorrupt = errors.New("activity log is corrupt")

// UploadedImage records one image uploaded to the hosting service: the local
// file name plus the URLs of the full and thumbnail variants. An entry is not
// tied to any specific hosting backend.
type UploadedImage struct {
	FileName string
	FullURL  string
	ThumbURL string
}

// UploadTracker keeps the durable record of which images in a directory have
// been uploaded, so interrupted runs can resume without re-uploading. It holds
// an exclusive lock on the activity log for its lifetime: only one instance
// may run against a directory at a time.
type UploadTracker struct {
	path    string
	lock    *flock.Flock
	file    *os.File
	entries []UploadedImage
}

// OpenUploadTracker opens the activity log in dir, creating it if absent,
// takes a non-blocking exclusive lock on it, and loads all prior records.
// It returns ErrTrackerLocked if another instance holds the lock, and
// ErrTrackerCorrupt if any existing record does not parse.
func OpenUploadTracker(dir string) (*UploadTracker, error) {
	path := filepath.Join(dir, activityLogFileName)

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock activity log %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrTrackerLocked, path)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open activity log %s: %w", path, err)
	}

	entries, err := readActivityLog(file, path)
	if err != nil {
		_ = file.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return &UploadTracker{
		path:    path,
		lock:    lock,
		file:    file,
		entries: entries,
	}, nil
}

// readActivityLog parses all records from r. Each line must hold exactly
// three separator-joined fields; anything else makes the whole log unusable.
func readActivityLog(r io.Reader, path string) ([]UploadedImage, error) {
	var entries []UploadedImage
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		fields := strings.Split(line, activityLogSeparator)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: %s line %d has %d fields, expected 3; remove the file to start over",
				ErrTrackerCorrupt, path, lineNum, len(fields))
		}
		entries = append(entries, UploadedImage{
			FileName: fields[0],
			FullURL:  fields[1],
			ThumbURL: fields[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity log %s: %w", path, err)
	}
	return entries, nil
}

// IsUploaded reports whether fileName already has an entry in the log.
func (t *UploadTracker) IsUploaded(fileName string) bool {
	for _, e := range t.entries {
		if e.FileName == fileName {
			return true
		}
	}
	return false
}

// Record appends one entry to the activity log file and, only once the write
// succeeded, to the in-memory list. A failed write leaves memory untouched so
// the entry stays pending for the next run.
func (t *UploadTracker) Record(fileName, fullURL, thumbURL string) error {
	for _, field := range []string{fileName, fullURL, thumbURL} {
		if strings.ContainsAny(field, activityLogSeparator+"\r\n") {
			return fmt.Errorf("cannot record %q: field %q contains the separator or a line break", fileName, field)
		}
	}

	if _, err := t.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of activity log %s: %w", t.path, err)
	}
	record := strings.Join([]string{fileName, fullURL, thumbURL}, activityLogSeparator) + "\n"
	if _, err := t.file.WriteString(record); err != nil {
		return fmt.Errorf("failed to append to activity log %s: %w", t.path, err)
	}
	if err := t.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync activity log %s: %w", t.path, err)
	}

	t.entries = append(t.entries, UploadedImage{
		FileName: fileName,
		FullURL:  fullURL,
		ThumbURL: thumbURL,
	})
	return nil
}

// Entries returns a copy of all recorded entries in append order, including
// entries from prior runs.
func (t *UploadTracker) Entries() []UploadedImage {
	return append([]UploadedImage(nil), t.entries...)
}

// Close releases the file handle and the exclusive lock. The lock is advisory,
// so it is also released by the OS if the process dies without calling Close.
func (t *UploadTracker) Close() error {
	var errs []error
	if err := t.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close activity log %s: %w", t.path, err))
	}
	if err := t.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("failed to unlock activity log %s: %w", t.path, err))
	}
	return errors.Join(errs...)
}
