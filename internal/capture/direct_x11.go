//go:build linux

package capture

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/grabdesk/grabdesk/internal/pixbuf"
)

// Direct grabs pixels straight from the X server's root window. It serves
// plain X11 sessions and XWayland; native Wayland surfaces are invisible to
// it, which is why the orchestrator never selects it under Wayland.
type Direct struct {
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo
	mu     sync.Mutex
}

// NewDirect connects to the X server.
func NewDirect() (*Direct, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &Direct{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
	}, nil
}

// Close releases the X connection.
func (d *Direct) Close() error {
	d.conn.Close()
	return nil
}

// Name returns the backend name.
func (d *Direct) Name() string {
	return "x11"
}

// CaptureRect grabs a rectangle of the root window in physical pixels.
func (d *Direct) CaptureRect(rect image.Rectangle) (*pixbuf.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil, fmt.Errorf("invalid capture rectangle %v", rect)
	}

	reply, err := xproto.GetImage(
		d.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(d.root),
		int16(rect.Min.X), int16(rect.Min.Y),
		uint16(rect.Dx()), uint16(rect.Dy()),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return pixbuf.New(d.convertImageData(reply.Data, rect.Dx(), rect.Dy())), nil
}

// convertImageData converts X11 image data to RGBA
func (d *Direct) convertImageData(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	depth := int(d.screen.RootDepth)

	if depth == 24 || depth == 32 {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := (y*width + x) * 4
				if i+3 < len(data) {
					// BGRA to RGBA
					img.Set(x, y, color.RGBA{
						R: data[i+2],
						G: data[i+1],
						B: data[i],
						A: 255,
					})
				}
			}
		}
	}

	return img
}
