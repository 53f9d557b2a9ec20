// Package capture provides the interchangeable screen capture backends:
// direct windowing-system grabs, the grim external tool, and the
// org.freedesktop.portal Screenshot protocol. Every backend produces a raw
// pixel buffer or fails with a descriptive error; none of them panic on a
// missing service or tool.
package capture

import (
	"context"
	"errors"

	"github.com/grabdesk/grabdesk/internal/pixbuf"
)

// Error kinds. Backends wrap these so the orchestrator can recover every
// failure to a boolean result while still logging an actionable cause.
var (
	// ErrEnvironmentUnsupported marks a desktop environment no backend can
	// serve.
	ErrEnvironmentUnsupported = errors.New("unsupported desktop environment")

	// ErrServiceUnavailable marks a missing external dependency: the portal
	// service not registered on the bus, or the capture tool not installed.
	ErrServiceUnavailable = errors.New("capture service unavailable")

	// ErrTimeout marks an external process or protocol response that did
	// not arrive in time.
	ErrTimeout = errors.New("capture timed out")

	// ErrProtocolFailure marks a portal response with a non-zero status or
	// an unusable result payload.
	ErrProtocolFailure = errors.New("capture protocol failure")
)

// Backend captures the entire desktop as one pixel buffer.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Capture grabs the whole desktop. The returned buffer carries raw
	// pixels; device pixel ratio correction is the caller's job.
	Capture(ctx context.Context) (*pixbuf.Buffer, error)
}
