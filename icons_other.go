//go:build !windows

package main

import "image/color"

func trayIcon(c color.RGBA) []byte {
	return circlePNG(c)
}
