package commands

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
)

// ListImages returns the names (not paths) of all regular files directly in
// dir whose content decodes as a known image format. Non-image files, hidden
// bookkeeping files, and subdirectories are silently excluded. The result is
// sorted by name so processing order is deterministic within a run.
func ListImages(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var images []string
	for _, dirEnt := range dirEntries {
		if !dirEnt.Type().IsRegular() {
			continue
		}
		if isImageFile(filepath.Join(dir, dirEnt.Name())) {
			images = append(images, dirEnt.Name())
		}
	}
	sort.Strings(images)
	return images, nil
}

// isImageFile reports whether the file header decodes as a registered image
// format. Unreadable files count as non-images.
func isImageFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err == nil
}
