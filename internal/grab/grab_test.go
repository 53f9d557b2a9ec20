//go:build linux

package grab

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grabdesk/grabdesk/internal/desktop"
	"github.com/grabdesk/grabdesk/internal/geometry"
	"github.com/grabdesk/grabdesk/internal/pixbuf"
)

type fakeConfig struct {
	useGrim     bool
	disableWarn bool
}

func (c fakeConfig) UseGrimAdapter() bool      { return c.useGrim }
func (c fakeConfig) DisabledGrimWarning() bool { return c.disableWarn }

type fakeScreens struct {
	screens   []geometry.Screen
	globalDPR float64
}

func (f fakeScreens) Screens() []geometry.Screen { return f.screens }

func (f fakeScreens) Primary() (geometry.Screen, bool) {
	if len(f.screens) == 0 {
		return geometry.Screen{}, false
	}
	return f.screens[0], true
}

func (f fakeScreens) Current() (geometry.Screen, bool) { return f.Primary() }

func (f fakeScreens) GlobalDevicePixelRatio() float64 {
	if f.globalDPR <= 0 {
		return 1
	}
	return f.globalDPR
}

type fakeBackend struct {
	name  string
	buf   *pixbuf.Buffer
	err   error
	calls int
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Capture(context.Context) (*pixbuf.Buffer, error) {
	b.calls++
	return b.buf, b.err
}

type fakeDirect struct {
	rects  []image.Rectangle
	buf    *pixbuf.Buffer
	err    error
	closed bool
}

func (d *fakeDirect) CaptureRect(rect image.Rectangle) (*pixbuf.Buffer, error) {
	d.rects = append(d.rects, rect)
	return d.buf, d.err
}

func (d *fakeDirect) Close() error {
	d.closed = true
	return nil
}

func solidBuffer(w, h int) *pixbuf.Buffer {
	return pixbuf.New(image.NewRGBA(image.Rect(0, 0, w, h)))
}

// testGrabber builds a Grabber with every external dependency replaced. The
// returned log buffer collects JSON log lines for assertion.
func testGrabber(cfg fakeConfig, screens fakeScreens, env desktop.Snapshot) (*Grabber, *bytes.Buffer) {
	logBuf := &bytes.Buffer{}
	g := &Grabber{
		cfg:     cfg,
		screens: screens,
		log:     zerolog.New(logBuf),
		detect:  func() desktop.Snapshot { return env },
		portal:  &fakeBackend{name: "portal", buf: solidBuffer(1920, 1080)},
		grim:    &fakeBackend{name: "grim", buf: solidBuffer(1920, 1080)},
		newDirect: func() (DirectCapturer, error) {
			return &fakeDirect{buf: solidBuffer(1920, 1080)}, nil
		},
	}
	return g, logBuf
}

func singleScreen() fakeScreens {
	return fakeScreens{
		screens:   []geometry.Screen{{Rect: image.Rect(0, 0, 1920, 1080), DevicePixelRatio: 1}},
		globalDPR: 1,
	}
}

func warnCount(logBuf *bytes.Buffer) int {
	return strings.Count(logBuf.String(), `"level":"warn"`)
}

func TestWaylandPortalDesktopsUsePortal(t *testing.T) {
	for _, wm := range []desktop.WindowManager{desktop.WMGnome, desktop.WMKDE, desktop.WMCosmic} {
		t.Run(wm.String(), func(t *testing.T) {
			env := desktop.Snapshot{Wayland: true, WindowManager: wm}
			g, _ := testGrabber(fakeConfig{useGrim: true}, singleScreen(), env)

			buf, ok := g.GrabEntireDesktop()
			require.True(t, ok)
			require.NotNil(t, buf)

			assert.Equal(t, 1, g.portal.(*fakeBackend).calls,
				"portal must be used regardless of the grim preference")
			assert.Zero(t, g.grim.(*fakeBackend).calls)
		})
	}
}

func TestWaylandWlrootsUsesGrimWhenEnabled(t *testing.T) {
	env := desktop.Snapshot{Wayland: true, WindowManager: desktop.WMWlroots}
	g, logBuf := testGrabber(fakeConfig{useGrim: true}, singleScreen(), env)

	_, ok := g.GrabEntireDesktop()
	require.True(t, ok)
	_, ok = g.GrabEntireDesktop()
	require.True(t, ok)

	assert.Equal(t, 2, g.grim.(*fakeBackend).calls)
	assert.Zero(t, g.portal.(*fakeBackend).calls)
	assert.Equal(t, 1, warnCount(logBuf), "grim advisory must be logged exactly once")
}

func TestWaylandWlrootsFallsBackToPortal(t *testing.T) {
	env := desktop.Snapshot{Wayland: true, WindowManager: desktop.WMWlroots}
	g, logBuf := testGrabber(fakeConfig{}, singleScreen(), env)

	_, ok := g.GrabEntireDesktop()
	require.True(t, ok)
	_, ok = g.GrabEntireDesktop()
	require.True(t, ok)

	assert.Equal(t, 2, g.portal.(*fakeBackend).calls)
	assert.Zero(t, g.grim.(*fakeBackend).calls)
	assert.Equal(t, 1, warnCount(logBuf), "portal advisory must be logged exactly once")
}

func TestWaylandAdvisoriesSuppressed(t *testing.T) {
	env := desktop.Snapshot{Wayland: true, WindowManager: desktop.WMWlroots}
	g, logBuf := testGrabber(fakeConfig{useGrim: true, disableWarn: true}, singleScreen(), env)

	_, ok := g.GrabEntireDesktop()
	require.True(t, ok)

	assert.Zero(t, warnCount(logBuf))
}

func TestWaylandUnknownEnvironmentFails(t *testing.T) {
	env := desktop.Snapshot{Wayland: true, WindowManager: desktop.WMUnknown}
	g, logBuf := testGrabber(fakeConfig{}, singleScreen(), env)

	buf, ok := g.GrabEntireDesktop()
	assert.False(t, ok)
	assert.Nil(t, buf)

	assert.Zero(t, g.portal.(*fakeBackend).calls)
	assert.Zero(t, g.grim.(*fakeBackend).calls)
	assert.Equal(t, 1, strings.Count(logBuf.String(), `"level":"error"`))
	assert.Contains(t, logBuf.String(), "XDG_CURRENT_DESKTOP")
}

func TestWaylandBackendErrorIsLoggedOnce(t *testing.T) {
	env := desktop.Snapshot{Wayland: true, WindowManager: desktop.WMGnome}
	g, logBuf := testGrabber(fakeConfig{}, singleScreen(), env)
	g.portal = &fakeBackend{name: "portal", err: errors.New("portal request denied")}

	buf, ok := g.GrabEntireDesktop()
	assert.False(t, ok)
	assert.Nil(t, buf)
	assert.Equal(t, 1, strings.Count(logBuf.String(), `"level":"error"`))
}

func TestAdjustDevicePixelRatio(t *testing.T) {
	// One 4K screen at scale factor 2: physical 3840x2160, logical 1920x1080.
	screens := fakeScreens{
		screens:   []geometry.Screen{{Rect: image.Rect(0, 0, 3840, 2160), DevicePixelRatio: 2}},
		globalDPR: 2,
	}
	env := desktop.Snapshot{Wayland: true, WindowManager: desktop.WMGnome}
	g, _ := testGrabber(fakeConfig{}, screens, env)
	resolver := geometry.NewResolver(env, screens)

	t.Run("physicalMatchUsesGlobalRatio", func(t *testing.T) {
		buf := solidBuffer(3840, 2160)
		g.adjustDevicePixelRatio(resolver, buf)
		assert.Equal(t, 2.0, buf.DevicePixelRatio)
	})

	t.Run("logicalMatchLeftUntouched", func(t *testing.T) {
		buf := solidBuffer(1920, 1080)
		buf.DevicePixelRatio = 1
		g.adjustDevicePixelRatio(resolver, buf)
		assert.Equal(t, 1.0, buf.DevicePixelRatio)
	})

	t.Run("mismatchDerivesFromHeights", func(t *testing.T) {
		buf := solidBuffer(2880, 2160)
		g.adjustDevicePixelRatio(resolver, buf)
		assert.Equal(t, 2.0, buf.DevicePixelRatio, "2160 buffer rows over 1080 logical rows")
	})
}

func TestGrabScreenDirect(t *testing.T) {
	screens := fakeScreens{
		screens: []geometry.Screen{
			{Rect: image.Rect(0, 0, 1920, 1080), DevicePixelRatio: 1.5},
		},
	}
	env := desktop.Snapshot{Wayland: false, WindowManager: desktop.WMOther}
	g, _ := testGrabber(fakeConfig{}, screens, env)

	direct := &fakeDirect{buf: solidBuffer(1920, 1080)}
	g.newDirect = func() (DirectCapturer, error) { return direct, nil }

	buf, ok := g.GrabScreen(0)
	require.True(t, ok)
	assert.Equal(t, 1.5, buf.DevicePixelRatio)
	require.Len(t, direct.rects, 1)
	assert.Equal(t, image.Rect(0, 0, 1920, 1080), direct.rects[0])
	assert.True(t, direct.closed)
}

func TestGrabScreenOutOfRange(t *testing.T) {
	g, logBuf := testGrabber(fakeConfig{}, singleScreen(), desktop.Snapshot{})

	buf, ok := g.GrabScreen(3)
	assert.False(t, ok)
	assert.Nil(t, buf)
	assert.Equal(t, 1, strings.Count(logBuf.String(), `"level":"error"`))

	buf, ok = g.GrabScreen(-1)
	assert.False(t, ok)
	assert.Nil(t, buf)
}

func TestGrabScreenWaylandCropsDesktop(t *testing.T) {
	screens := fakeScreens{
		screens: []geometry.Screen{
			{Rect: image.Rect(0, 0, 1920, 1080), DevicePixelRatio: 1},
			{Rect: image.Rect(1920, 0, 3840, 1080), DevicePixelRatio: 1},
		},
		globalDPR: 1,
	}
	env := desktop.Snapshot{Wayland: true, WindowManager: desktop.WMGnome}
	g, _ := testGrabber(fakeConfig{}, screens, env)
	g.portal = &fakeBackend{name: "portal", buf: solidBuffer(3840, 1080)}

	buf, ok := g.GrabScreen(1)
	require.True(t, ok)
	assert.Equal(t, image.Pt(1920, 1080), buf.Size())
}

func TestGrabCompositeNegativeOffsets(t *testing.T) {
	// Secondary screen sits left of the primary; the grab rectangle must
	// start at the negated primary origin so it is not clipped.
	screens := fakeScreens{
		screens: []geometry.Screen{
			{Rect: image.Rect(1920, 0, 3840, 1080), DevicePixelRatio: 1},
			{Rect: image.Rect(0, 0, 1920, 1080), DevicePixelRatio: 1},
		},
		globalDPR: 1,
	}
	env := desktop.Snapshot{Wayland: false, WindowManager: desktop.WMOther}
	g, _ := testGrabber(fakeConfig{}, screens, env)

	direct := &fakeDirect{buf: solidBuffer(3840, 1080)}
	g.newDirect = func() (DirectCapturer, error) { return direct, nil }

	buf, ok := g.GrabEntireDesktop()
	require.True(t, ok)
	assert.Equal(t, 1.0, buf.DevicePixelRatio)

	require.Len(t, direct.rects, 1)
	assert.Equal(t, image.Rect(-1920, 0, 1920, 1080), direct.rects[0])
}

func TestGrabCompositeEmptyBufferFails(t *testing.T) {
	env := desktop.Snapshot{Wayland: false, WindowManager: desktop.WMOther}
	g, logBuf := testGrabber(fakeConfig{}, singleScreen(), env)
	g.newDirect = func() (DirectCapturer, error) {
		return &fakeDirect{buf: &pixbuf.Buffer{}}, nil
	}

	buf, ok := g.GrabEntireDesktop()
	assert.False(t, ok)
	assert.Nil(t, buf)
	assert.Equal(t, 1, strings.Count(logBuf.String(), `"level":"error"`))
}
