package geometry

import (
	"context"
	"encoding/json"
	"image"
	"math"
	"os/exec"
	"time"
)

// hyprctl must answer within this window or the resolver falls back to the
// generic screen enumeration path.
const hyprctlTimeout = 1 * time.Second

// hyprlandMonitor is one entry of `hyprctl monitors -j` output. Width and
// height are physical pixels; scale converts them to logical coordinates.
type hyprlandMonitor struct {
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Scale  *float64 `json:"scale"`
}

func (m hyprlandMonitor) scaleOrDefault() float64 {
	if m.Scale == nil {
		return 1.0
	}
	return *m.Scale
}

func (m hyprlandMonitor) valid() bool {
	return m.Width > 0 && m.Height > 0 && m.scaleOrDefault() > 0
}

// hyprctlMonitorsJSON runs the monitor query with a bounded wait.
func hyprctlMonitorsJSON() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), hyprctlTimeout)
	defer cancel()
	return exec.CommandContext(ctx, "hyprctl", "monitors", "-j").Output()
}

// unionHyprlandMonitors computes the physical and logical bounding unions of
// all valid monitors. Monitors with non-positive width, height or scale are
// discarded. found is false when no valid monitor remains.
func unionHyprlandMonitors(monitors []hyprlandMonitor) (physical, logical image.Rectangle, found bool) {
	round := func(v float64) int { return int(math.Round(v)) }

	for _, m := range monitors {
		if !m.valid() {
			continue
		}
		scale := m.scaleOrDefault()

		physRect := image.Rect(
			round(m.X),
			round(m.Y),
			round(m.X)+round(m.Width),
			round(m.Y)+round(m.Height),
		)
		// hyprctl reports monitor positions in layout (logical)
		// coordinates while width and height are physical pixels, so only
		// the sizes are divided by the scale factor.
		logicalRect := image.Rect(
			round(m.X),
			round(m.Y),
			round(m.X)+round(m.Width/scale),
			round(m.Y)+round(m.Height/scale),
		)

		if !found {
			physical, logical = physRect, logicalRect
			found = true
			continue
		}
		physical = physical.Union(physRect)
		logical = logical.Union(logicalRect)
	}
	return physical, logical, found
}

// parseHyprlandMonitors decodes the hyprctl JSON array. A non-array root or
// malformed JSON is a parse error, not a panic.
func parseHyprlandMonitors(data []byte) ([]hyprlandMonitor, error) {
	var monitors []hyprlandMonitor
	if err := json.Unmarshal(data, &monitors); err != nil {
		return nil, err
	}
	return monitors, nil
}
