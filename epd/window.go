// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"image"
)

// Layout describes how a family addresses its display RAM.
type Layout struct {
	// Panel size in pixels.
	Width  int
	Height int
	// PixelsPerByte is the horizontal packing factor of a plane buffer.
	PixelsPerByte int

	// WindowCommand is followed by the big-endian start/end X and Y
	// coordinates and WindowTrailer.
	WindowCommand byte
	WindowTrailer byte

	// Planes is the number of color planes the controller accepts, 1 or 2.
	Planes int
	// Pixel data of the first and second plane is written under these
	// commands.
	RAMCommand1 byte
	RAMCommand2 byte
}

// SetWindow restricts the following RAM writes to the w×h pixel rectangle at
// (x, y).
func SetWindow(ctrl Controller, l *Layout, x, y, w, h int) {
	xEnd := x + w - 1
	yEnd := y + h - 1

	ctrl.SendCommand(l.WindowCommand)
	ctrl.SendData([]byte{
		byte(x >> 8), byte(x),
		byte(xEnd >> 8), byte(xEnd),
		byte(y >> 8), byte(y),
		byte(yEnd >> 8), byte(yEnd),
		l.WindowTrailer,
	})
}

// Transfer is the part of a requested rectangle that is actually sent.
type Transfer struct {
	// Window is the clipped, on-panel destination in pixels.
	Window image.Rectangle
	// Offset is how far clipping moved the window origin into the request,
	// in pixels.
	Offset image.Point
	// Stride is the number of bytes per row of the caller's buffer, which is
	// laid out for the unclipped, byte-aligned request.
	Stride int
}

// Plan aligns the request (x, y, w, h) to byte boundaries and clips it
// against the panel. It returns false when nothing remains to be sent.
func Plan(l *Layout, x, y, w, h int) (Transfer, bool) {
	ppb := l.PixelsPerByte
	if ppb <= 0 || w <= 0 || h <= 0 || l.Width <= 0 || l.Height <= 0 {
		return Transfer{}, false
	}

	wb := (w + ppb - 1) / ppb
	// Floor to the byte boundary, also for negative x.
	m := x % ppb
	if m < 0 {
		m += ppb
	}
	x -= m
	w = wb * ppb

	x1 := max(x, 0)
	y1 := max(y, 0)
	w1 := min(w, l.Width-x)
	h1 := min(h, l.Height-y)

	dx := x1 - x
	dy := y1 - y
	w1 -= dx
	h1 -= dy

	if w1 <= 0 || h1 <= 0 {
		return Transfer{}, false
	}

	return Transfer{
		Window: image.Rect(x1, y1, x1+w1, y1+h1),
		Offset: image.Pt(dx, dy),
		Stride: wb,
	}, true
}

// need returns the minimum buffer length the transfer reads from.
func (t *Transfer) need(ppb int) int {
	cols := t.Window.Dx() / ppb
	return (t.Offset.Y+t.Window.Dy()-1)*t.Stride + t.Offset.X/ppb + cols
}

// WriteImage sends the part of the w×h rectangle at (x, y) that is on the
// panel. plane1 and the optional plane2 hold the whole byte-aligned request;
// clipping only selects which of their bytes are transmitted. plane2 is
// ignored by single plane layouts. A request that lies entirely outside the
// panel sends nothing.
func WriteImage(ctrl Controller, l *Layout, plane1, plane2 []byte, x, y, w, h int) error {
	t, ok := Plan(l, x, y, w, h)
	if !ok {
		return nil
	}
	if l.Planes < 2 {
		plane2 = nil
	}

	need := t.need(l.PixelsPerByte)
	if len(plane1) < need || (plane2 != nil && len(plane2) < need) {
		return ErrShortBuffer
	}

	SetWindow(ctrl, l, t.Window.Min.X, t.Window.Min.Y, t.Window.Dx(), t.Window.Dy())

	ctrl.SendCommand(l.RAMCommand1)
	sendPlane(ctrl, &t, l.PixelsPerByte, plane1)

	if plane2 != nil {
		ctrl.SendCommand(l.RAMCommand2)
		sendPlane(ctrl, &t, l.PixelsPerByte, plane2)
	}

	return nil
}

// sendPlane streams the rows of t from buf. Byte (col, row) of the window is
// buf[col + dx/ppb + (row+dy)*stride].
func sendPlane(ctrl Controller, t *Transfer, ppb int, buf []byte) {
	cols := t.Window.Dx() / ppb
	skip := t.Offset.X / ppb

	for row := 0; row < t.Window.Dy(); row++ {
		start := skip + (row+t.Offset.Y)*t.Stride
		ctrl.SendData(buf[start : start+cols])
	}
}
