package commands

import (
	"encoding/json"
	"fmt"
	"image"
	"os"

	"github.com/grabdesk/grabdesk/internal/desktop"
	"github.com/grabdesk/grabdesk/internal/geometry"
	"github.com/spf13/cobra"
)

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "Print the resolved desktop and per-screen geometry as JSON",
	Long: `Print the physical and logical desktop bounding rectangles and every
known screen, as resolved for the current environment. Useful for checking
what a grab would see on a mixed-DPI multi-monitor layout.`,
	RunE: runMonitors,
}

func init() {
	rootCmd.AddCommand(monitorsCmd)
}

type rectJSON struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func toRectJSON(r image.Rectangle) rectJSON {
	return rectJSON{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

type screenJSON struct {
	Rect             rectJSON `json:"rect"`
	DevicePixelRatio float64  `json:"device_pixel_ratio"`
}

type monitorsJSON struct {
	Wayland       bool         `json:"wayland"`
	WindowManager string       `json:"window_manager"`
	Physical      rectJSON     `json:"physical"`
	Logical       rectJSON     `json:"logical"`
	Screens       []screenJSON `json:"screens"`
}

func runMonitors(cmd *cobra.Command, args []string) error {
	env := desktop.Detect()
	screens := geometry.SystemScreens{}
	resolver := geometry.NewResolver(env, screens)

	out := monitorsJSON{
		Wayland:       env.Wayland,
		WindowManager: env.WindowManager.String(),
		Physical:      toRectJSON(resolver.DesktopGeometry()),
		Logical:       toRectJSON(resolver.LogicalDesktopGeometry()),
	}
	for _, s := range screens.Screens() {
		out.Screens = append(out.Screens, screenJSON{
			Rect:             toRectJSON(s.Rect),
			DevicePixelRatio: s.DevicePixelRatio,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal geometry: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
