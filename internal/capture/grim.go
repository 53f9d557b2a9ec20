//go:build linux

package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/grabdesk/grabdesk/internal/pixbuf"
)

// grim has no protocol handshake to hang on, but the process wait is still
// bounded so a stuck compositor cannot wedge the grab forever.
const grimTimeout = 10 * time.Second

// Grim captures the desktop by invoking the grim tool, which speaks the
// wlr-screencopy protocol. It only works on wlroots-family compositors.
type Grim struct {
	// runDir is where the temp image lands, normally XDG_RUNTIME_DIR.
	runDir  string
	timeout time.Duration

	lookPath func(string) (string, error)
	run      func(ctx context.Context, path string) error
}

// NewGrim creates the grim adapter.
func NewGrim() *Grim {
	return &Grim{
		runDir:   runtimeDir(),
		timeout:  grimTimeout,
		lookPath: exec.LookPath,
		run:      runGrim,
	}
}

// Name returns the backend name.
func (g *Grim) Name() string {
	return "grim"
}

// Capture invokes grim, instructing it to write a PPM image into the
// runtime directory, then loads and deletes that file.
func (g *Grim) Capture(ctx context.Context) (*pixbuf.Buffer, error) {
	if _, err := g.lookPath("grim"); err != nil {
		return nil, fmt.Errorf("%w: the universal wayland screen capture adapter requires grim as the screen capture component of wayland; if the screen capture component is missing, please install it", ErrServiceUnavailable)
	}

	imgPath := filepath.Join(g.runDir, "grabdesk.ppm")

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.run(ctx, imgPath); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: grim did not finish", ErrTimeout)
		}
		return nil, fmt.Errorf("%w: grim exited with an error: %v", ErrServiceUnavailable, err)
	}

	buf, err := pixbuf.Load(imgPath)
	os.Remove(imgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load grim output: %w", err)
	}
	if buf.Empty() {
		return nil, fmt.Errorf("%w: grim produced an empty image", ErrProtocolFailure)
	}
	return buf, nil
}

func runGrim(ctx context.Context, path string) error {
	return exec.CommandContext(ctx, "grim", "-t", "ppm", path).Run()
}

func runtimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}
