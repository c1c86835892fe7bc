// Package runtimeid classifies how the CLI binary itself was launched:
// through the Node interpreter, through Bun, or as a compiled binary.
// The classification decides how the dev server child process must be
// re-invoked.
package runtimeid

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

type Kind string

const (
	KindNode   Kind = "node"
	KindBun    Kind = "bun"
	KindBinary Kind = "binary"
)

type Platform string

const (
	PlatformPosix   Platform = "posix"
	PlatformWindows Platform = "windows"
)

// Identity describes the interpreter or binary currently executing the
// CLI. Immutable once computed.
type Identity struct {
	Kind       Kind
	ExecPath   string
	ScriptPath string
	Platform   Platform
}

// ProcessInfo is a snapshot of the invocation of the current process.
// Identify is a pure function of it, which keeps classification
// exhaustively testable without touching real process state.
type ProcessInfo struct {
	ExecPath string
	Argv     []string
	// UserAgent is the launcher user-agent string (npm_config_user_agent)
	// set when the CLI is started through a package-manager shim. It
	// carries a "bun/" or "node/" token regardless of the executable's
	// filename.
	UserAgent string
	Platform  string
}

// CurrentProcess snapshots the running process for Identify.
func CurrentProcess() ProcessInfo {
	execPath, err := os.Executable()
	if err != nil {
		execPath = os.Args[0]
	}
	return ProcessInfo{
		ExecPath:  execPath,
		Argv:      os.Args,
		UserAgent: os.Getenv("npm_config_user_agent"),
		Platform:  runtime.GOOS,
	}
}

// Identify classifies the current invocation. It performs at most one
// filesystem existence check (for the candidate script path) and has no
// other side effects. Calling it twice with the same snapshot yields
// the same Identity.
func Identify(proc ProcessInfo) (Identity, error) {
	execPath := proc.ExecPath
	if strings.TrimSpace(execPath) == "" {
		return Identity{}, fmt.Errorf("cannot determine the current executable path")
	}

	id := Identity{ExecPath: execPath, Platform: platformFamily(proc.Platform)}

	if hasBunUserAgent(proc.UserAgent) || execNameLooksLikeBun(execPath) {
		id.Kind = KindBun
		if len(proc.Argv) > 1 && pathExists(proc.Argv[1]) {
			id.ScriptPath = proc.Argv[1]
		}
		return id, nil
	}

	if len(proc.Argv) > 1 {
		if pathExists(proc.Argv[1]) {
			id.Kind = KindNode
			id.ScriptPath = proc.Argv[1]
			return id, nil
		}
		// A second argument that does not resolve on disk is either a
		// sub-command of a compiled binary or a virtual in-binary path.
		if hasNodeUserAgent(proc.UserAgent) {
			id.Kind = KindNode
			return id, nil
		}
		id.Kind = KindBinary
		return id, nil
	}

	if hasNodeUserAgent(proc.UserAgent) {
		id.Kind = KindNode
		return id, nil
	}
	id.Kind = KindBinary
	return id, nil
}

func platformFamily(goos string) Platform {
	if goos == "windows" {
		return PlatformWindows
	}
	return PlatformPosix
}

func hasBunUserAgent(ua string) bool {
	return strings.Contains(strings.ToLower(ua), "bun/")
}

func hasNodeUserAgent(ua string) bool {
	ua = strings.ToLower(ua)
	return strings.Contains(ua, "node/") || strings.Contains(ua, "npm/")
}

// execNameLooksLikeBun matches executable names such as "bun",
// "bun1.2", "Bun.exe". The check is a case-insensitive substring so a
// versioned install still classifies correctly.
func execNameLooksLikeBun(execPath string) bool {
	base := strings.ToLower(filepath.Base(execPath))
	base = strings.TrimSuffix(base, ".exe")
	return strings.Contains(base, "bun")
}

// pathExists treats every stat failure, including permission errors, as
// "does not exist" so a broken check never aborts classification.
func pathExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CanExecute reports whether path names a file the CLI could spawn. It
// never returns an error: not found, permission denied and I/O failures
// all read as false.
func CanExecute(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
