package visualization

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNoBrowser is returned when there is no display to open a page on.
var ErrNoBrowser = errors.New("no browser available")

// OpenBrowser opens target, a URL or a local file, in the default browser.
// $BROWSER overrides the platform opener; BROWSER=none disables opening.
func OpenBrowser(target string) error {
	cmd, err := browserCommand(runtime.GOOS, os.Getenv, pageURL(target))
	if err != nil {
		return err
	}
	return cmd.Start()
}

// pageURL turns a local path into a file:// URL and leaves URLs alone.
func pageURL(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return target
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// browserCommand picks the opener for goos.
func browserCommand(goos string, getenv func(string) string, target string) (*exec.Cmd, error) {
	if b := strings.TrimSpace(getenv("BROWSER")); b != "" {
		if b == "none" {
			return nil, ErrNoBrowser
		}
		return exec.Command(b, target), nil
	}

	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		if getenv("DISPLAY") == "" && getenv("WAYLAND_DISPLAY") == "" {
			return nil, fmt.Errorf("%w: no DISPLAY or WAYLAND_DISPLAY set", ErrNoBrowser)
		}
		return exec.Command("xdg-open", target), nil
	case "darwin":
		return exec.Command("open", target), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", "", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
