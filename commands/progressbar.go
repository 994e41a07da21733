package commands

import "github.com/schollz/progressbar/v3"

// NewProgressBar returns a bar counting processed files.
func NewProgressBar(numFiles int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(numFiles,
		progressbar.OptionSetDescription(description+":"),
		progressbar.OptionSetWidth(20), // Fit in an 80-column terminal.
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
}
