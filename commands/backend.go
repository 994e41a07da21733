package commands

import (
	"context"
	"fmt"
)

// HostingBackend defines the interface for image hosting service operations
// needed by the upload commands. Conformance is checked at compile time by
// the concrete backend types.
type HostingBackend interface {
	// Upload sends the image file at path to the hosting service and
	// returns the public URL of the uploaded image.
	Upload(ctx context.Context, path string) (string, error)
	// Name returns the descriptive name of the backend, for logs.
	Name() string
}

// RateLimitError reports that the hosting service refused an upload because
// the client exhausted its request quota. It is recoverable at the batch
// level: the file is skipped and retried on a later run.
type RateLimitError struct {
	Backend string
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded: %s", e.Backend, e.Message)
}
