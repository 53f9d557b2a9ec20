//go:build !linux

package capture

import (
	"fmt"
	"image"

	"github.com/grabdesk/grabdesk/internal/pixbuf"
	"github.com/kbinani/screenshot"
)

// Direct grabs pixels through the platform screenshot API. On macOS and
// Windows the windowing system allows direct framebuffer reads, so this is
// the only backend those platforms need.
type Direct struct{}

// NewDirect creates the platform direct capturer.
func NewDirect() (*Direct, error) {
	return &Direct{}, nil
}

// Close is a no-op; the platform API holds no persistent connection.
func (d *Direct) Close() error {
	return nil
}

// Name returns the backend name.
func (d *Direct) Name() string {
	return "direct"
}

// CaptureRect grabs a rectangle of the virtual desktop in physical pixels.
func (d *Direct) CaptureRect(rect image.Rectangle) (*pixbuf.Buffer, error) {
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil, fmt.Errorf("invalid capture rectangle %v", rect)
	}

	img, err := screenshot.Capture(rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy())
	if err != nil {
		return nil, fmt.Errorf("failed to capture %v: %w", rect, err)
	}

	return pixbuf.New(img), nil
}
