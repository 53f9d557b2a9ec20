// Package desktop identifies the display environment a grab runs under:
// whether the session is Wayland, and which window manager family owns it.
package desktop

import (
	"os"
	"strings"
)

// WindowManager is the detected window manager family.
type WindowManager int

const (
	WMUnknown WindowManager = iota
	WMGnome
	WMKDE
	WMCosmic
	WMQtile
	WMWlroots
	WMHyprland
	WMOther
)

// String returns the window manager family name.
func (wm WindowManager) String() string {
	switch wm {
	case WMGnome:
		return "gnome"
	case WMKDE:
		return "kde"
	case WMCosmic:
		return "cosmic"
	case WMQtile:
		return "qtile"
	case WMWlroots:
		return "wlroots"
	case WMHyprland:
		return "hyprland"
	case WMOther:
		return "other"
	default:
		return "unknown"
	}
}

// Snapshot is the environment state at the start of a grab. It is queried
// fresh per grab and treated as immutable for its duration.
type Snapshot struct {
	Wayland       bool
	WindowManager WindowManager
}

// Detect queries the process environment for the current session state.
func Detect() Snapshot {
	return DetectFrom(os.Getenv)
}

// DetectFrom builds a Snapshot from the given environment lookup.
func DetectFrom(getenv func(string) string) Snapshot {
	return Snapshot{
		Wayland:       waylandDetected(getenv),
		WindowManager: windowManager(getenv),
	}
}

func waylandDetected(getenv func(string) string) bool {
	if strings.EqualFold(getenv("XDG_SESSION_TYPE"), "wayland") {
		return true
	}
	return getenv("WAYLAND_DISPLAY") != ""
}

// wlroots-family desktops that identify themselves via XDG_CURRENT_DESKTOP.
var wlrootsDesktops = []string{"sway", "wlroots", "river", "wayfire", "labwc", "hikari"}

func windowManager(getenv func(string) string) WindowManager {
	if getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return WMHyprland
	}

	desktop := getenv("XDG_CURRENT_DESKTOP")
	if desktop == "" {
		desktop = getenv("DESKTOP_SESSION")
	}
	desktop = strings.ToLower(desktop)

	// XDG_CURRENT_DESKTOP may be a colon-separated list, e.g. "ubuntu:GNOME".
	switch {
	case strings.Contains(desktop, "gnome"):
		return WMGnome
	case strings.Contains(desktop, "kde"):
		return WMKDE
	case strings.Contains(desktop, "cosmic"):
		return WMCosmic
	case strings.Contains(desktop, "qtile"):
		return WMQtile
	case strings.Contains(desktop, "hyprland"):
		return WMHyprland
	}

	for _, name := range wlrootsDesktops {
		if strings.Contains(desktop, name) {
			return WMWlroots
		}
	}
	if getenv("SWAYSOCK") != "" {
		return WMWlroots
	}

	if desktop == "" {
		return WMUnknown
	}
	return WMOther
}
