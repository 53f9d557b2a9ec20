// Package pixbuf holds the pixel buffer type shared by all capture backends:
// an RGBA image stamped with the device pixel ratio it was captured at.
package pixbuf

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/ppm"
)

// Buffer is a captured pixel buffer. DevicePixelRatio relates the buffer's
// physical pixel size to logical (toolkit) coordinates.
type Buffer struct {
	RGBA             *image.RGBA
	DevicePixelRatio float64
}

// New wraps an image in a Buffer with a device pixel ratio of 1.
func New(img image.Image) *Buffer {
	if img == nil {
		return &Buffer{DevicePixelRatio: 1}
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		bounds := img.Bounds()
		rgba = image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	}

	return &Buffer{RGBA: rgba, DevicePixelRatio: 1}
}

// Load reads an image file into a Buffer. PPM files (as produced by grim
// with -t ppm) are decoded explicitly; everything else goes through the
// registered stdlib decoders.
func Load(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	var img image.Image
	if strings.EqualFold(filepath.Ext(path), ".ppm") {
		img, err = ppm.Decode(f)
	} else {
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	return New(img), nil
}

// Size returns the buffer's size in physical pixels.
func (b *Buffer) Size() image.Point {
	if b == nil || b.RGBA == nil {
		return image.Point{}
	}
	return b.RGBA.Bounds().Size()
}

// Empty reports whether the buffer holds no pixels. Backends treat an empty
// result as a failed capture.
func (b *Buffer) Empty() bool {
	sz := b.Size()
	return sz.X <= 0 || sz.Y <= 0
}

// Crop returns a copy of the buffer restricted to rect, which is clamped to
// the buffer bounds. The device pixel ratio is carried over.
func (b *Buffer) Crop(rect image.Rectangle) *Buffer {
	if b == nil || b.RGBA == nil {
		return b
	}

	rect = rect.Intersect(b.RGBA.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), b.RGBA, rect.Min, draw.Src)

	return &Buffer{RGBA: out, DevicePixelRatio: b.DevicePixelRatio}
}

// WritePNG encodes the buffer to a PNG file.
func (b *Buffer) WritePNG(path string) error {
	if b.Empty() {
		return fmt.Errorf("refusing to write empty buffer to %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, b.RGBA); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
