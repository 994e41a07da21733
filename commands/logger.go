package commands

import (
	"log/slog"
	"os"
	"strconv"
)

var logLevel = new(slog.LevelVar)
var logger *slog.Logger

func init() {
	logLevel.Set(slog.LevelInfo)
	if os.Getenv("DEBUG") != "" {
		logLevel.Set(slog.LevelDebug)
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// SetConsoleLogLevel sets the logging level from the numeric CLI flag value.
// A value that does not parse as an integer leaves the default (info) level.
func SetConsoleLogLevel(levelString string) {
	n, err := strconv.Atoi(levelString)
	if err != nil {
		return
	}
	logLevel.Set(slog.Level(n))
}
