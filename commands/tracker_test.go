package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUploadTracker_CreatesLogFile(t *testing.T) {
	dir := t.TempDir()

	tracker, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	defer tracker.Close()

	assert.Empty(t, tracker.Entries())
	_, err = os.Stat(filepath.Join(dir, activityLogFileName))
	assert.NoError(t, err, "activity log file should be created on open")
}

func TestRecord_AppendsToFileAndMemory(t *testing.T) {
	dir := t.TempDir()
	tracker, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	defer tracker.Close()

	require.NoError(t, tracker.Record("x.png", "http://full", "http://thumb"))

	assert.True(t, tracker.IsUploaded("x.png"))
	assert.False(t, tracker.IsUploaded("y.png"))
	require.Len(t, tracker.Entries(), 1)
	assert.Equal(t, UploadedImage{
		FileName: "x.png",
		FullURL:  "http://full",
		ThumbURL: "http://thumb",
	}, tracker.Entries()[0])

	content, err := os.ReadFile(filepath.Join(dir, activityLogFileName))
	require.NoError(t, err)
	assert.Equal(t, "x.png<http://full<http://thumb\n", string(content))
}

func TestOpenUploadTracker_LoadsExistingEntries(t *testing.T) {
	dir := t.TempDir()

	tracker, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	require.NoError(t, tracker.Record("a.jpg", "http://full-a", "http://thumb-a"))
	require.NoError(t, tracker.Record("b.jpg", "http://full-b", "http://thumb-b"))
	require.NoError(t, tracker.Close())

	reopened, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.IsUploaded("a.jpg"))
	assert.True(t, reopened.IsUploaded("b.jpg"))
	require.Len(t, reopened.Entries(), 2)
	assert.Equal(t, "a.jpg", reopened.Entries()[0].FileName, "entries keep append order across runs")
	assert.Equal(t, "b.jpg", reopened.Entries()[1].FileName)
}

func TestOpenUploadTracker_SecondOpenFails(t *testing.T) {
	dir := t.TempDir()

	tracker, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	defer tracker.Close()

	_, err = OpenUploadTracker(dir)
	require.ErrorIs(t, err, ErrTrackerLocked)
}

func TestOpenUploadTracker_ReleasedLockCanBeRetaken(t *testing.T) {
	dir := t.TempDir()

	tracker, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	require.NoError(t, tracker.Close())

	reopened, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	assert.NoError(t, reopened.Close())
}

func TestOpenUploadTracker_CorruptLog(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "two fields", content: "a.jpg<http://full\n"},
		{name: "four fields", content: "a.jpg<http://full<http://thumb<extra\n"},
		{name: "no separator", content: "garbage line\n"},
		{name: "blank line between records", content: "a.jpg<http://f<http://t\n\nb.jpg<http://f<http://t\n"},
		{name: "truncated trailing line", content: "a.jpg<http://f<http://t\nb.jpg<http://f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, activityLogFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := OpenUploadTracker(dir)
			require.ErrorIs(t, err, ErrTrackerCorrupt)
			assert.Contains(t, err.Error(), "expected 3")
		})
	}
}

func TestOpenUploadTracker_ValidTruncatedLastLineWithoutNewline(t *testing.T) {
	// A record that lost only its trailing newline still parses; the ledger
	// does not lose the entry.
	dir := t.TempDir()
	path := filepath.Join(dir, activityLogFileName)
	require.NoError(t, os.WriteFile(path, []byte("a.jpg<http://f<http://t"), 0644))

	tracker, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	defer tracker.Close()
	assert.True(t, tracker.IsUploaded("a.jpg"))
}

func TestRecord_RejectsSeparatorInFields(t *testing.T) {
	dir := t.TempDir()
	tracker, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	defer tracker.Close()

	tests := []struct {
		name                  string
		fileName, full, thumb string
	}{
		{name: "separator in file name", fileName: "a<b.jpg", full: "http://f", thumb: "http://t"},
		{name: "separator in full url", fileName: "a.jpg", full: "http://f<x", thumb: "http://t"},
		{name: "newline in thumb url", fileName: "a.jpg", full: "http://f", thumb: "http://t\nx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tracker.Record(tt.fileName, tt.full, tt.thumb)
			require.Error(t, err)
			assert.False(t, tracker.IsUploaded(tt.fileName))
		})
	}

	// The log must still be empty and loadable.
	content, err := os.ReadFile(filepath.Join(dir, activityLogFileName))
	require.NoError(t, err)
	assert.Empty(t, string(content))
}

func TestEntries_ReturnsCopy(t *testing.T) {
	dir := t.TempDir()
	tracker, err := OpenUploadTracker(dir)
	require.NoError(t, err)
	defer tracker.Close()

	require.NoError(t, tracker.Record("a.jpg", "http://f", "http://t"))
	entries := tracker.Entries()
	entries[0].FileName = "mutated.jpg"

	assert.Equal(t, "a.jpg", tracker.Entries()[0].FileName)
}
