//go:build windows

package autostart

import (
	"strings"

	"golang.org/x/sys/windows"
)

func startupDir() (string, error) {
	return windows.KnownFolderPath(windows.FOLDERID_Startup, 0)
}

func launcherFile(name string) string {
	return name + ".cmd"
}

// launcherContent is a batch file that starts the bridge detached so no
// console window stays open.
func launcherContent(e Entry) string {
	parts := []string{quote(e.Exec)}
	for _, a := range e.Args {
		parts = append(parts, quote(a))
	}
	return "@echo off\r\nstart \"\" " + strings.Join(parts, " ") + "\r\n"
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t&()^") {
		return `"` + s + `"`
	}
	return s
}
