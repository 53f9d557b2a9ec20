package geometry

import (
	"image"
	"os"
	"strconv"

	"github.com/kbinani/screenshot"
)

// Screen describes one monitor as reported by the windowing system.
type Screen struct {
	// Rect is the screen's rectangle in physical pixels within the virtual
	// desktop coordinate space.
	Rect image.Rectangle

	// DevicePixelRatio converts this screen's physical pixels to logical
	// coordinates. Always > 0.
	DevicePixelRatio float64
}

// ScreenProvider abstracts the windowing system's screen enumeration. The
// resolver and orchestrator never talk to the display server directly, which
// keeps them testable with fake layouts.
type ScreenProvider interface {
	// Screens returns all known screens. May be empty when no display
	// server is reachable.
	Screens() []Screen

	// Primary returns the primary screen, if any.
	Primary() (Screen, bool)

	// Current returns the screen holding the cursor or input focus.
	Current() (Screen, bool)

	// GlobalDevicePixelRatio is the toolkit-reported process-wide scale
	// factor, used when a captured buffer matches physical geometry.
	GlobalDevicePixelRatio() float64
}

// SystemScreens enumerates displays through the screenshot library. The
// display server does not expose per-monitor scale factors through that
// path, so every screen carries the session-wide ratio.
type SystemScreens struct{}

var _ ScreenProvider = SystemScreens{}

// Screens returns the active displays in index order.
func (SystemScreens) Screens() []Screen {
	n := screenshot.NumActiveDisplays()
	dpr := sessionScaleFactor()

	screens := make([]Screen, 0, n)
	for i := 0; i < n; i++ {
		screens = append(screens, Screen{
			Rect:             screenshot.GetDisplayBounds(i),
			DevicePixelRatio: dpr,
		})
	}
	return screens
}

// Primary returns display 0, which the display server lists first.
func (s SystemScreens) Primary() (Screen, bool) {
	screens := s.Screens()
	if len(screens) == 0 {
		return Screen{}, false
	}
	return screens[0], true
}

// Current returns the focused screen. Cursor tracking belongs to the
// hosting application; without it the primary screen is the best answer.
func (s SystemScreens) Current() (Screen, bool) {
	return s.Primary()
}

// GlobalDevicePixelRatio returns the session-wide scale factor.
func (SystemScreens) GlobalDevicePixelRatio() float64 {
	return sessionScaleFactor()
}

// sessionScaleFactor reads the scale factor the toolkit would apply, taken
// from the standard scaling environment variables.
func sessionScaleFactor() float64 {
	for _, name := range []string{"QT_SCALE_FACTOR", "GDK_SCALE"} {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				return f
			}
		}
	}
	return 1.0
}
