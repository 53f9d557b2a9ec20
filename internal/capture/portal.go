//go:build linux

package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/grabdesk/grabdesk/internal/pixbuf"
)

// Portal D-Bus constants
const (
	portalService   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenshotIface = "org.freedesktop.portal.Screenshot"
	requestIface    = "org.freedesktop.portal.Request"
)

// The portal replies asynchronously and nothing in the protocol bounds the
// compositor's response time, so the wait is bounded here instead.
const portalTimeout = 30 * time.Second

// Portal captures the desktop through the org.freedesktop.portal.Screenshot
// request/response protocol on the session bus. This is the default Wayland
// backend: it needs no compositor-specific tooling, only a running
// xdg-desktop-portal with a screenshot implementation behind it.
type Portal struct {
	connect func() (*dbus.Conn, error)
	timeout time.Duration
}

// NewPortal creates the portal backend.
func NewPortal() *Portal {
	return &Portal{
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
		timeout: portalTimeout,
	}
}

// Name returns the backend name.
func (p *Portal) Name() string {
	return "portal"
}

// screenshotOptions are the named options of the Screenshot call, serialized
// into the variant map the bus expects at the call boundary.
type screenshotOptions struct {
	HandleToken string
	Interactive bool
}

func (o screenshotOptions) variantMap() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(o.HandleToken),
		"interactive":  dbus.MakeVariant(o.Interactive),
	}
}

// Capture runs one Screenshot request. The response signal subscription is
// set up before the method call so a fast compositor cannot answer into the
// void, and the per-request object is closed whatever the outcome so no
// request handle leaks compositor-side.
func (p *Portal) Capture(ctx context.Context) (*pixbuf.Buffer, error) {
	conn, err := p.connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	var registered bool
	err = conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, portalService).Store(&registered)
	if err != nil || !registered {
		return nil, fmt.Errorf("%w: could not locate the `org.freedesktop.portal.Desktop` service", ErrServiceUnavailable)
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	expectedPath := requestPath(conn.Names()[0], token)

	// Subscribe before issuing the call to avoid losing a fast response.
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember("Response"),
	); err != nil {
		return nil, fmt.Errorf("failed to subscribe to portal responses: %w", err)
	}
	defer conn.RemoveMatchSignal(
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember("Response"),
	)

	signals := make(chan *dbus.Signal, 10)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	options := screenshotOptions{HandleToken: token, Interactive: false}
	var handle dbus.ObjectPath
	err = conn.Object(portalService, portalPath).
		Call(screenshotIface+".Screenshot", 0, "", options.variantMap()).
		Store(&handle)
	if err != nil {
		return nil, fmt.Errorf("Screenshot call failed: %w", err)
	}

	// Older portals may hand back a request path that differs from the
	// token-derived one; accept responses on either.
	defer conn.Object(portalService, handle).Call(requestIface+".Close", 0)

	timeout := time.After(p.timeout)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("%w: no response from the desktop portal", ErrTimeout)
		case sig, ok := <-signals:
			if !ok {
				return nil, fmt.Errorf("%w: session bus closed while waiting for the portal", ErrProtocolFailure)
			}
			if sig.Name != requestIface+".Response" {
				continue
			}
			if sig.Path != expectedPath && sig.Path != handle {
				continue
			}

			status, results, err := parseResponseSignal(sig.Body)
			if err != nil {
				return nil, err
			}
			return handleScreenshotResponse(status, results)
		}
	}
}

// requestPath derives the well-known request object path from the caller's
// unique bus name and the handle token: the leading colon is stripped and
// dots become underscores.
func requestPath(sender, token string) dbus.ObjectPath {
	sanitized := strings.ReplaceAll(strings.TrimPrefix(sender, ":"), ".", "_")
	return dbus.ObjectPath("/org/freedesktop/portal/desktop/request/" + sanitized + "/" + token)
}

// parseResponseSignal unpacks the (uint32, map[string]variant) body of a
// Response signal.
func parseResponseSignal(body []interface{}) (uint32, map[string]dbus.Variant, error) {
	if len(body) < 2 {
		return 0, nil, fmt.Errorf("%w: malformed portal response", ErrProtocolFailure)
	}
	status, ok := body[0].(uint32)
	if !ok {
		return 0, nil, fmt.Errorf("%w: unexpected portal response status type %T", ErrProtocolFailure, body[0])
	}
	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return 0, nil, fmt.Errorf("%w: unexpected portal response results type %T", ErrProtocolFailure, body[1])
	}
	return status, results, nil
}

// handleScreenshotResponse turns a completed portal response into a pixel
// buffer. Status 0 is success; the uri result names a local file which is
// loaded and then removed.
func handleScreenshotResponse(status uint32, results map[string]dbus.Variant) (*pixbuf.Buffer, error) {
	if status != 0 {
		return nil, fmt.Errorf("%w: portal request denied (status %d)", ErrProtocolFailure, status)
	}

	rawURI, _ := results["uri"].Value().(string)
	localPath, err := uriToLocalFile(rawURI)
	if err != nil {
		return nil, err
	}

	buf, err := pixbuf.Load(localPath)
	os.Remove(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load portal screenshot: %w", err)
	}
	if buf.Empty() {
		return nil, fmt.Errorf("%w: portal produced an empty image", ErrProtocolFailure)
	}
	return buf, nil
}

// uriToLocalFile resolves the portal's uri result to a filesystem path. It
// is parsed as a URI, not treated as a raw path, so percent-encoded
// non-ASCII filenames survive.
func uriToLocalFile(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: portal response carried no uri", ErrProtocolFailure)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: unparseable portal uri %q", ErrProtocolFailure, raw)
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return "", fmt.Errorf("%w: unsupported portal uri scheme %q", ErrProtocolFailure, u.Scheme)
	}
	if u.Path == "" {
		return "", fmt.Errorf("%w: portal uri %q has no path", ErrProtocolFailure, raw)
	}
	return u.Path, nil
}
