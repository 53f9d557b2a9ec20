// Package geometry reconciles the two coordinate spaces a capture deals
// with: physical pixels as reported by capture tools, and logical pixels as
// reported by the windowing toolkit. Monitors may carry different scale
// factors, so logical unions are computed per monitor before uniting.
package geometry

import (
	"image"
	"math"

	"github.com/grabdesk/grabdesk/internal/desktop"
	"github.com/grabdesk/grabdesk/internal/logger"
	"github.com/rs/zerolog"
)

// Resolver computes desktop and per-screen geometry for one grab. It holds
// the environment snapshot taken at the start of that grab and is discarded
// with it.
type Resolver struct {
	env     desktop.Snapshot
	screens ScreenProvider
	log     zerolog.Logger

	// monitorsJSON is the hyprctl invocation, replaceable in tests.
	monitorsJSON func() ([]byte, error)
}

// NewResolver creates a resolver for the given environment snapshot.
func NewResolver(env desktop.Snapshot, screens ScreenProvider) *Resolver {
	return &Resolver{
		env:          env,
		screens:      screens,
		log:          logger.WithComponent("geometry"),
		monitorsJSON: hyprctlMonitorsJSON,
	}
}

// DesktopGeometry returns the bounding rectangle of all screens in physical
// pixels. On Hyprland the compositor's own monitor list is authoritative
// because the toolkit misreports geometry there.
func (r *Resolver) DesktopGeometry() image.Rectangle {
	if physical, _, ok := r.HyprlandDesktopGeometries(); ok {
		return physical
	}

	var geometry image.Rectangle
	for _, screen := range r.screens.Screens() {
		geometry = geometry.Union(screen.Rect)
	}
	return geometry
}

// LogicalDesktopGeometry returns the bounding rectangle of all screens in
// logical pixels. Each screen is scaled by its own device pixel ratio before
// uniting; scaling the physical union by one global ratio is wrong when
// screens have mixed scale factors.
func (r *Resolver) LogicalDesktopGeometry() image.Rectangle {
	if _, logical, ok := r.HyprlandDesktopGeometries(); ok {
		return logical
	}

	var geometry image.Rectangle
	found := false
	for _, screen := range r.screens.Screens() {
		dpr := screen.DevicePixelRatio
		if dpr <= 0 {
			dpr = 1
		}
		logical := scaleRect(screen.Rect, 1/dpr)
		if !found {
			geometry = logical
			found = true
			continue
		}
		geometry = geometry.Union(logical)
	}
	return geometry
}

// HyprlandDesktopGeometries queries the compositor's monitor list. ok is
// false when not running under Hyprland, when hyprctl fails or times out,
// when its output is not a JSON array, or when no valid monitor remains;
// callers then fall back to the generic path.
func (r *Resolver) HyprlandDesktopGeometries() (physical, logical image.Rectangle, ok bool) {
	if !r.env.Wayland || r.env.WindowManager != desktop.WMHyprland {
		return image.Rectangle{}, image.Rectangle{}, false
	}

	data, err := r.monitorsJSON()
	if err != nil {
		r.log.Warn().Err(err).Msg("Unable to query Hyprland monitors via hyprctl")
		return image.Rectangle{}, image.Rectangle{}, false
	}

	monitors, err := parseHyprlandMonitors(data)
	if err != nil {
		r.log.Warn().Err(err).Msg("Failed to parse hyprctl monitor output")
		return image.Rectangle{}, image.Rectangle{}, false
	}

	physical, logical, found := unionHyprlandMonitors(monitors)
	if !found {
		r.log.Warn().Msg("No usable monitor in hyprctl output")
		return image.Rectangle{}, image.Rectangle{}, false
	}
	return physical, logical, true
}

// ScreenGeometry returns the rectangle of one screen. Under Wayland the
// screen's native rectangle is offset so the minimum top-left corner across
// all screens maps to the origin; elsewhere the current screen's rectangle
// is returned as reported.
func (r *Resolver) ScreenGeometry(screen Screen) image.Rectangle {
	if r.env.Wayland {
		topLeft := image.Point{}
		for _, s := range r.screens.Screens() {
			min := s.Rect.Min
			if min.X < topLeft.X {
				topLeft.X = min.X
			}
			if min.Y < topLeft.Y {
				topLeft.Y = min.Y
			}
		}
		return screen.Rect.Sub(topLeft)
	}

	if current, ok := r.screens.Current(); ok {
		return current.Rect
	}
	return screen.Rect
}

// scaleRect scales every component of r by f, rounding to nearest.
func scaleRect(r image.Rectangle, f float64) image.Rectangle {
	round := func(v int) int { return int(math.Round(float64(v) * f)) }
	return image.Rect(
		round(r.Min.X),
		round(r.Min.Y),
		round(r.Min.X)+round(r.Dx()),
		round(r.Min.Y)+round(r.Dy()),
	)
}
