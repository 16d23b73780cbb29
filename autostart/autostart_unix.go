//go:build !windows && !darwin

package autostart

import (
	"os"
	"path/filepath"
	"strings"
)

// startupDir is the XDG autostart directory.
func startupDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "autostart"), nil
}

func launcherFile(name string) string {
	return name + ".desktop"
}

func launcherContent(e Entry) string {
	parts := []string{quote(e.Exec)}
	for _, a := range e.Args {
		parts = append(parts, quote(a))
	}
	name := e.DisplayName
	if name == "" {
		name = e.Name
	}
	return "[Desktop Entry]\n" +
		"Type=Application\n" +
		"Name=" + name + "\n" +
		"Exec=" + strings.Join(parts, " ") + "\n" +
		"X-GNOME-Autostart-enabled=true\n"
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'\\$`") {
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`").Replace(s) + `"`
	}
	return s
}
