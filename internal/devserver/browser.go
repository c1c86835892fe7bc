package devserver

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// OpenBrowser opens the system browser at target. Callers treat
// failures as best-effort: a browser that will not open never blocks a
// successful start.
func OpenBrowser(target string) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("browser target is empty")
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	return cmd.Start()
}
