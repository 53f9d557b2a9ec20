//go:build darwin

package grab

import (
	"github.com/grabdesk/grabdesk/internal/pixbuf"
)

func (g *Grabber) initWaylandBackends() {
	// macOS allows direct framebuffer reads; no backend fan-out needed.
}

// GrabEntireDesktop captures the current screen directly and stamps it with
// that screen's reported device pixel ratio.
func (g *Grabber) GrabEntireDesktop() (*pixbuf.Buffer, bool) {
	current, ok := g.screens.Current()
	if !ok {
		g.log.Error().Msg("No screens reported by the windowing system")
		return nil, false
	}

	direct, err := g.newDirect()
	if err != nil {
		g.log.Error().Err(err).Msg("Unable to capture screen")
		return nil, false
	}
	defer direct.Close()

	buf, err := direct.CaptureRect(current.Rect)
	if err != nil {
		g.log.Error().Err(err).Msg("Unable to capture screen")
		return nil, false
	}
	if buf.Empty() {
		g.log.Error().Msg("Screen capture returned an empty buffer")
		return nil, false
	}
	buf.DevicePixelRatio = current.DevicePixelRatio
	return buf, true
}
