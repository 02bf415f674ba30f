package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// goos is a seam for tests.
var goos = func() string { return runtime.GOOS }

// OpenBrowser launches the system browser at url so the user can approve the
// authorization request. The launcher process is started and not waited on.
func OpenBrowser(url string) error {
	var name string
	var args []string

	switch os := goos(); os {
	case "darwin":
		name = "open"
	case "linux":
		name = "xdg-open"
	case "windows":
		name, args = "cmd", []string{"/c", "start"}
	default:
		return fmt.Errorf("no known browser launcher for %s", os)
	}

	if err := exec.Command(name, append(args, url)...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
