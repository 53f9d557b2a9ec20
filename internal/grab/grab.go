// Package grab is the orchestrator that turns "grab the desktop" into a
// concrete backend invocation: it snapshots the environment, picks among
// direct capture, grim, and the desktop portal, and reconciles the captured
// buffer's device pixel ratio against the resolved desktop geometry. All
// failures are recovered to a (buffer, ok) pair with one logged cause.
package grab

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/grabdesk/grabdesk/internal/capture"
	"github.com/grabdesk/grabdesk/internal/desktop"
	"github.com/grabdesk/grabdesk/internal/geometry"
	"github.com/grabdesk/grabdesk/internal/logger"
	"github.com/grabdesk/grabdesk/internal/pixbuf"
	"github.com/rs/zerolog"
)

// ConfigView is the read-only configuration the orchestrator consumes.
type ConfigView interface {
	// UseGrimAdapter selects the grim adapter over the portal on generic
	// Wayland compositors.
	UseGrimAdapter() bool

	// DisabledGrimWarning suppresses the adapter advisories.
	DisabledGrimWarning() bool
}

// DirectCapturer grabs a rectangle straight from the windowing system.
type DirectCapturer interface {
	CaptureRect(rect image.Rectangle) (*pixbuf.Buffer, error)
	Close() error
}

// Grabber selects and drives capture backends. One grab at a time per
// instance: backend state like the portal request lifecycle is per-call and
// not re-entrant.
type Grabber struct {
	cfg     ConfigView
	screens geometry.ScreenProvider
	log     zerolog.Logger

	// detect takes the environment snapshot at the start of each grab.
	detect func() desktop.Snapshot

	// Wayland backends; wired on Linux, nil elsewhere.
	portal capture.Backend
	grim   capture.Backend

	newDirect func() (DirectCapturer, error)

	grimWarnOnce   sync.Once
	portalWarnOnce sync.Once
}

// New creates a Grabber over the given configuration and screen provider.
func New(cfg ConfigView, screens geometry.ScreenProvider) *Grabber {
	g := &Grabber{
		cfg:     cfg,
		screens: screens,
		log:     logger.WithComponent("grab"),
		detect:  desktop.Detect,
		newDirect: func() (DirectCapturer, error) {
			return capture.NewDirect()
		},
	}
	g.initWaylandBackends()
	return g
}

// GrabScreen captures a single screen, identified by its index in the
// provider's screen list. Under Wayland no backend supports per-monitor
// capture, so the whole desktop is grabbed and cropped to the screen's
// resolved geometry; elsewhere the screen rectangle is grabbed directly.
func (g *Grabber) GrabScreen(index int) (*pixbuf.Buffer, bool) {
	env := g.detect()
	resolver := geometry.NewResolver(env, g.screens)

	screens := g.screens.Screens()
	if index < 0 || index >= len(screens) {
		g.log.Error().Int("screen", index).Int("screens", len(screens)).
			Msg("No such screen")
		return nil, false
	}
	screen := screens[index]
	rect := resolver.ScreenGeometry(screen)

	if env.Wayland {
		buf, ok := g.GrabEntireDesktop()
		if !ok {
			return nil, false
		}
		return buf.Crop(rect), true
	}

	direct, err := g.newDirect()
	if err != nil {
		g.log.Error().Err(err).Msg("Unable to capture screen")
		return nil, false
	}
	defer direct.Close()

	buf, err := direct.CaptureRect(rect)
	if err != nil {
		g.log.Error().Err(err).Msg("Unable to capture screen")
		return nil, false
	}
	if buf.Empty() {
		g.log.Error().Msg("Screen capture returned an empty buffer")
		return nil, false
	}
	buf.DevicePixelRatio = screen.DevicePixelRatio
	return buf, true
}

// grabWayland picks the Wayland backend for the detected window manager and
// runs it. GNOME, KDE and COSMIC support the portal but not grim; the
// wlroots family and unknown-but-identified compositors go by configuration.
func (g *Grabber) grabWayland(env desktop.Snapshot, resolver *geometry.Resolver) (*pixbuf.Buffer, error) {
	var backend capture.Backend

	switch env.WindowManager {
	case desktop.WMGnome, desktop.WMKDE, desktop.WMCosmic:
		backend = g.portal

	case desktop.WMQtile, desktop.WMWlroots, desktop.WMHyprland, desktop.WMOther:
		if g.cfg.UseGrimAdapter() {
			if !g.cfg.DisabledGrimWarning() {
				g.grimWarnOnce.Do(func() {
					g.log.Warn().Msg("grim's screenshot component is implemented based on wlroots, it may not work in GNOME or similar desktop environments")
				})
			}
			backend = g.grim
		} else {
			if !g.cfg.DisabledGrimWarning() {
				g.portalWarnOnce.Do(func() {
					g.log.Warn().Msg("Capturing via the desktop portal; on this compositor the grim-based adapter is recommended, enable use_grim_adapter to activate it")
				})
			}
			backend = g.portal
		}

	default:
		return nil, fmt.Errorf("%w: unable to detect the desktop environment (GNOME? KDE? Qtile? Sway? ...); try setting the XDG_CURRENT_DESKTOP environment variable", capture.ErrEnvironmentUnsupported)
	}

	if backend == nil {
		return nil, fmt.Errorf("%w: no wayland capture backend on this platform", capture.ErrEnvironmentUnsupported)
	}

	buf, err := backend.Capture(context.Background())
	if err != nil {
		return nil, err
	}
	g.adjustDevicePixelRatio(resolver, buf)
	return buf, nil
}

// grabComposite grabs the full unioned desktop starting at the negative
// offset of the primary screen's origin, adjusted for its device pixel
// ratio, so secondary screens placed at negative coordinates are not
// clipped.
func (g *Grabber) grabComposite(resolver *geometry.Resolver) (*pixbuf.Buffer, error) {
	primary, ok := g.screens.Primary()
	if !ok {
		return nil, fmt.Errorf("no screens reported by the windowing system")
	}

	geom := resolver.DesktopGeometry()
	dpr := primary.DevicePixelRatio
	if dpr <= 0 {
		dpr = 1
	}
	x0 := -int(math.Round(float64(primary.Rect.Min.X) / dpr))
	y0 := -int(math.Round(float64(primary.Rect.Min.Y) / dpr))
	rect := image.Rect(x0, y0, x0+geom.Dx(), y0+geom.Dy())

	direct, err := g.newDirect()
	if err != nil {
		return nil, err
	}
	defer direct.Close()

	buf, err := direct.CaptureRect(rect)
	if err != nil {
		return nil, err
	}
	if buf.Empty() {
		// The windowing system signals failure only through an empty
		// result here; treat that as a failed grab rather than handing an
		// all-black buffer to the caller.
		return nil, fmt.Errorf("direct capture returned an empty buffer")
	}
	buf.DevicePixelRatio = dpr
	return buf, nil
}

// adjustDevicePixelRatio stamps the buffer with a trustworthy device pixel
// ratio. A buffer matching physical geometry keeps the toolkit-reported
// ratio; one matching logical geometry is already logical and stays
// untouched; anything else means the toolkit's ratio is unreliable and the
// ratio is derived from the buffer itself.
func (g *Grabber) adjustDevicePixelRatio(resolver *geometry.Resolver, buf *pixbuf.Buffer) {
	physical := resolver.DesktopGeometry().Size()
	logical := resolver.LogicalDesktopGeometry().Size()
	size := buf.Size()

	if size == physical {
		buf.DevicePixelRatio = g.screens.GlobalDevicePixelRatio()
	} else if size != logical {
		if logical.Y > 0 {
			buf.DevicePixelRatio = float64(size.Y) / float64(logical.Y)
		}
	}
}
