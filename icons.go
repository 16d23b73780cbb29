package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/vector"

	"github.com/dotside-studios/rfid-pos-bridge/bridge"
)

const iconSize = 32

// Tray colours: red while stopped or looking for a reader, yellow while
// waiting for a card, green while a card is on the reader.
var (
	colorStopped = color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff}
	colorWaiting = color.RGBA{R: 0xf9, G: 0xa8, B: 0x25, A: 0xff}
	colorCard    = color.RGBA{R: 0x38, G: 0x8e, B: 0x3c, A: 0xff}
)

var (
	iconDataStopped   = trayIcon(colorStopped)
	iconDataWaiting   = trayIcon(colorWaiting)
	iconDataConnected = trayIcon(colorCard)
)

// iconFor returns the tray icon of a worker state.
func iconFor(s bridge.State) []byte {
	switch s {
	case bridge.WaitingForCard:
		return iconDataWaiting
	case bridge.CardPresent:
		return iconDataConnected
	default:
		return iconDataStopped
	}
}

// circlePNG draws an anti-aliased filled circle.
func circlePNG(c color.RGBA) []byte {
	const (
		r = iconSize/2 - 1
		k = 0.5523 * r // cubic approximation of a quarter circle
	)
	cx, cy := float32(iconSize)/2, float32(iconSize)/2

	z := vector.NewRasterizer(iconSize, iconSize)
	z.MoveTo(cx+r, cy)
	z.CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	z.CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	z.CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	z.CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	z.ClosePath()

	dst := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
