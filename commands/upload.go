package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ccfrost/imgup/imgupconfig"
	"golang.org/x/time/rate"
)

// UploadImages uploads every image in srcDir that the tracker does not already
// know about. For each candidate it produces a resized full variant and a
// thumbnail variant, uploads both, and records the pair of URLs in the
// tracker. A failure on one file is logged and the batch continues; a failure
// to record in the tracker aborts the run, since without a durable record the
// file would be re-uploaded forever.
//
// It returns all tracker entries in append order, including those recorded by
// prior runs, for gallery rendering. The function is idempotent - if
// interrupted, it can be recalled to resume.
func UploadImages(ctx context.Context, config imgupconfig.ImgupConfig, srcDir string, tracker *UploadTracker, backend HostingBackend) ([]UploadedImage, error) {
	images, err := ListImages(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list images in %s: %w", srcDir, err)
	}
	if len(images) == 0 {
		logger.Info("No images found to upload", slog.String("dir", srcDir))
		return tracker.Entries(), nil
	}
	logger.Info("Found candidate images",
		slog.Int("count", len(images)),
		slog.String("dir", srcDir),
		slog.String("backend", backend.Name()))

	// --- Initialize Rate Limiter ---
	// Anonymous Imgur quotas are tight; stay well under them.
	limiter := rate.NewLimiter(rate.Every(time.Second/2), 2)

	bar := NewProgressBar(int64(len(images)), "Uploading images")

	for _, fileName := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if tracker.IsUploaded(fileName) {
			logger.Info("Skipping already uploaded file", slog.String("file", fileName))
			_ = bar.Add(1)
			continue
		}

		fullURL, thumbURL, err := uploadImageVariants(ctx, config, srcDir, fileName, backend, limiter)
		if err != nil {
			var rateErr *RateLimitError
			if errors.As(err, &rateErr) {
				logger.Warn("Rate limited, skipping file",
					slog.String("file", fileName),
					slog.String("error", err.Error()))
			} else {
				logger.Warn("Skipping file after upload failure",
					slog.String("file", fileName),
					slog.String("error", err.Error()))
			}
			_ = bar.Add(1)
			continue
		}

		// Durability point: only a recorded file is skipped on the next
		// run. A crash before this line re-uploads the file, which is
		// safe, just wasteful.
		if err := tracker.Record(fileName, fullURL, thumbURL); err != nil {
			return nil, fmt.Errorf("failed to record uploaded file %s: %w", fileName, err)
		}
		logger.Info("Uploaded file",
			slog.String("file", fileName),
			slog.String("full_url", fullURL),
			slog.String("thumb_url", thumbURL))
		_ = bar.Add(1)
	}

	_ = bar.Finish() // Ignore error on finish

	return tracker.Entries(), nil
}

// uploadImageVariants resizes fileName into its full and thumbnail variants
// and uploads both, in that order. It only returns both URLs when both
// uploads succeeded.
func uploadImageVariants(ctx context.Context, config imgupconfig.ImgupConfig, srcDir, fileName string, backend HostingBackend, limiter *rate.Limiter) (fullURL, thumbURL string, err error) {
	srcPath := filepath.Join(srcDir, fileName)

	fullURL, err = uploadResized(ctx, config, srcPath, config.ImageMaxWidth, config.ImageMaxHeight, backend, limiter)
	if err != nil {
		return "", "", fmt.Errorf("full variant: %w", err)
	}
	logger.Debug("Uploaded full variant", slog.String("file", fileName))

	thumbURL, err = uploadResized(ctx, config, srcPath, config.ThumbMaxWidth, config.ThumbMaxHeight, backend, limiter)
	if err != nil {
		return "", "", fmt.Errorf("thumb variant: %w", err)
	}
	logger.Debug("Uploaded thumb variant", slog.String("file", fileName))

	return fullURL, thumbURL, nil
}

// uploadResized produces one resized variant in the tmp dir and uploads it.
func uploadResized(ctx context.Context, config imgupconfig.ImgupConfig, srcPath string, maxWidth, maxHeight int, backend HostingBackend, limiter *rate.Limiter) (string, error) {
	variantPath, err := ResizeToTemp(srcPath, config.TmpDir, maxWidth, maxHeight)
	if err != nil {
		return "", err
	}

	// Wait before uploading file
	if err := limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error before uploading %s: %w", variantPath, err)
	}
	return backend.Upload(ctx, variantPath)
}
