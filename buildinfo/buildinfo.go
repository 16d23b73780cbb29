// Package buildinfo holds the bridge's name and version. Release builds stamp
// the version fields through the linker:
//
//	go build -ldflags "\
//	  -X github.com/dotside-studios/rfid-pos-bridge/buildinfo.Version=1.2.0 \
//	  -X github.com/dotside-studios/rfid-pos-bridge/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/dotside-studios/rfid-pos-bridge/buildinfo.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Name names the executable, the autostart launcher and log lines.
	Name = "rfid-pos-bridge"

	// DisplayName appears in the tray tooltip and the mDNS service name.
	DisplayName = "RFID POS Bridge"

	Description = "Types RFID card numbers into the focused application"

	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// FullVersion is Version, followed by the commit in parentheses when known.
func FullVersion() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}

// BuildInfo is the text printed by --version.
func BuildInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Name, FullVersion())
	fmt.Fprintf(&b, "  %s\n", Description)
	fmt.Fprintf(&b, "  %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if BuildTime != "" {
		fmt.Fprintf(&b, "\n  built %s", BuildTime)
	}
	return b.String()
}
