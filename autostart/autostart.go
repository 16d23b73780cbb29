// Package autostart manages the launcher file that starts the bridge when
// the user logs in.
package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Entry describes the program to launch at login.
type Entry struct {
	// Name identifies the launcher file, e.g. "rfid-pos-bridge".
	Name string
	// DisplayName is shown by desktop environments that list login items.
	DisplayName string
	// Exec is the absolute path of the executable.
	Exec string
	// Args are passed to Exec.
	Args []string

	// Dir overrides the platform startup directory. Used by tests.
	Dir string
}

// Path returns the launcher file location.
func (e Entry) Path() (string, error) {
	dir := e.Dir
	if dir == "" {
		d, err := startupDir()
		if err != nil {
			return "", fmt.Errorf("locate startup folder: %w", err)
		}
		dir = d
	}
	return filepath.Join(dir, launcherFile(e.Name)), nil
}

// Install writes the launcher file, replacing any previous one.
func (e Entry) Install() error {
	if e.Exec == "" {
		return errors.New("autostart: empty executable path")
	}
	path, err := e.Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create startup folder: %w", err)
	}
	if err := os.WriteFile(path, []byte(launcherContent(e)), 0o644); err != nil {
		return fmt.Errorf("write launcher: %w", err)
	}
	return nil
}

// Remove deletes the launcher file. A missing file is not an error.
func (e Entry) Remove() error {
	path, err := e.Path()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove launcher: %w", err)
	}
	return nil
}

// IsInstalled reports whether the launcher file exists.
func (e Entry) IsInstalled() bool {
	path, err := e.Path()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Toggle installs the launcher if it is missing and removes it otherwise,
// returning the new state.
func (e Entry) Toggle() (bool, error) {
	if e.IsInstalled() {
		return false, e.Remove()
	}
	if err := e.Install(); err != nil {
		return false, err
	}
	return true, nil
}
