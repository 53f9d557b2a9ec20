//go:build windows

package grab

import (
	"github.com/grabdesk/grabdesk/internal/geometry"
	"github.com/grabdesk/grabdesk/internal/pixbuf"
)

func (g *Grabber) initWaylandBackends() {
	// No Wayland on Windows; direct capture serves everything.
}

// GrabEntireDesktop captures the full unioned desktop composite-aware, so
// multi-monitor layouts with negative-offset secondary screens survive.
func (g *Grabber) GrabEntireDesktop() (*pixbuf.Buffer, bool) {
	env := g.detect()
	resolver := geometry.NewResolver(env, g.screens)

	buf, err := g.grabComposite(resolver)
	if err != nil {
		g.log.Error().Err(err).Msg("Unable to capture screen")
		return nil, false
	}
	return buf, true
}
