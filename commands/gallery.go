package commands

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ccfrost/imgup/imgupconfig"
)

// galleryEntry renders a thumbnail that opens the full image in a new tab.
var galleryEntry = template.Must(template.New("entry").Parse(
	`<a target="_blank" href="{{.FullURL}}"><img alt="Click here to enlarge the image!" src="{{.ThumbURL}}"></a>`))

// WriteGallery writes the HTML gallery for entries into dir. An existing
// output file is renamed away first, never overwritten. It returns the path
// of the written file.
func WriteGallery(config imgupconfig.ImgupConfig, dir string, entries []UploadedImage) (string, error) {
	outPath := filepath.Join(dir, config.OutputHTML)
	if err := renameExistingFile(outPath); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString(loadFragment(config.HTMLHeaderPath, "header"))
	for _, entry := range entries {
		if err := galleryEntry.Execute(&buf, entry); err != nil {
			return "", fmt.Errorf("failed to render gallery entry for %s: %w", entry.FileName, err)
		}
		buf.WriteString("&nbsp;")
	}
	buf.WriteString(loadFragment(config.HTMLFooterPath, "footer"))

	if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write gallery %s: %w", outPath, err)
	}
	logger.Info("Image gallery generated", slog.String("file", outPath))
	return outPath, nil
}

// loadFragment reads an optional header/footer file. An empty path means no
// fragment; an unreadable file is only worth a warning.
func loadFragment(path, kind string) string {
	if path == "" {
		return ""
	}
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Cannot use HTML fragment file",
			slog.String("kind", kind),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return ""
	}
	return string(content)
}

// renameExistingFile moves an existing file at path to path.N, where N is the
// first free progressive number, so previous galleries are kept.
func renameExistingFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to check %s: %w", path, err)
	}
	for index := 1; ; index++ {
		candidate := fmt.Sprintf("%s.%d", path, index)
		if _, err := os.Stat(candidate); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to check %s: %w", candidate, err)
		}
		if err := os.Rename(path, candidate); err != nil {
			return fmt.Errorf("failed to rename existing %s: %w", path, err)
		}
		logger.Debug("Renamed existing output file",
			slog.String("from", path),
			slog.String("to", candidate))
		return nil
	}
}
