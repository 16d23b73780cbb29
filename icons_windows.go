//go:build windows

package main

import (
	"bytes"
	"encoding/binary"
	"image/color"
)

// trayIcon wraps the PNG in a single-image ICO container, the only format
// the Windows tray accepts.
func trayIcon(c color.RGBA) []byte {
	img := circlePNG(c)

	var buf bytes.Buffer
	// ICONDIR
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	binary.Write(&buf, binary.LittleEndian, uint16(32)) // bpp
	binary.Write(&buf, binary.LittleEndian, uint32(len(img)))
	binary.Write(&buf, binary.LittleEndian, uint32(6+16))
	buf.Write(img)
	return buf.Bytes()
}
