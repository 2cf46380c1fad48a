// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare4in37g

import (
	"image"
	"image/color"
)

// Color is one of the four colors the panel shows. The value is the 2-bit
// code sent to the controller.
type Color uint8

// Panel colors.
const (
	Black Color = iota
	White
	Yellow
	Red
)

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	switch c {
	case Black:
		return 0, 0, 0, 0xffff
	case White:
		return 0xffff, 0xffff, 0xffff, 0xffff
	case Yellow:
		return 0xffff, 0xffff, 0, 0xffff
	case Red:
		return 0xffff, 0, 0, 0xffff
	}
	return 0, 0, 0, 0
}

func (c Color) String() string {
	switch c {
	case Black:
		return "Black"
	case White:
		return "White"
	case Yellow:
		return "Yellow"
	case Red:
		return "Red"
	}
	return "Color(invalid)"
}

// Palette lists the panel colors indexed by their code.
var Palette = color.Palette{Black, White, Yellow, Red}

// ColorModel converts any color to the closest panel Color.
var ColorModel = color.ModelFunc(convert)

func convert(c color.Color) color.Color {
	if pc, ok := c.(Color); ok {
		return pc
	}
	return Color(Palette.Index(c))
}

// Image is an in-memory image packed the way the controller expects it: four
// pixels per byte, the left-most pixel in the two most significant bits.
type Image struct {
	// Pix holds the packed pixels; row y starts at Pix[(y-Rect.Min.Y)*Stride].
	Pix []byte
	// Stride is the number of bytes per row.
	Stride int
	Rect   image.Rectangle
}

// NewImage returns an image covering r, filled with White.
func NewImage(r image.Rectangle) *Image {
	stride := (r.Dx() + pixelsPerByte - 1) / pixelsPerByte
	img := &Image{
		Pix:    make([]byte, stride*r.Dy()),
		Stride: stride,
		Rect:   r,
	}
	img.Fill(White)
	return img
}

// Fill sets every pixel to c.
func (i *Image) Fill(c Color) {
	v := byte(c & 0x03)
	packed := v<<6 | v<<4 | v<<2 | v
	for j := range i.Pix {
		i.Pix[j] = packed
	}
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return ColorModel
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.Rect
}

// At implements image.Image. Points outside the image are White.
func (i *Image) At(x, y int) color.Color {
	return i.ColorIndexAt(x, y)
}

// ColorIndexAt returns the color at (x, y), White outside the image.
func (i *Image) ColorIndexAt(x, y int) Color {
	if !(image.Point{x, y}.In(i.Rect)) {
		return White
	}
	off, shift := i.offset(x, y)
	return Color(i.Pix[off]>>shift) & 0x03
}

// Set implements draw.Image.
func (i *Image) Set(x, y int, c color.Color) {
	i.SetColorIndex(x, y, convert(c).(Color))
}

// SetColorIndex sets (x, y) to c. Points outside the image are ignored.
func (i *Image) SetColorIndex(x, y int, c Color) {
	if !(image.Point{x, y}.In(i.Rect)) {
		return
	}
	off, shift := i.offset(x, y)
	i.Pix[off] = i.Pix[off]&^(0x03<<shift) | byte(c&0x03)<<shift
}

func (i *Image) offset(x, y int) (int, uint) {
	dx := x - i.Rect.Min.X
	off := (y-i.Rect.Min.Y)*i.Stride + dx/pixelsPerByte
	shift := uint(6 - 2*(dx%pixelsPerByte))
	return off, shift
}

// Plane returns the packed bytes of r, laid out as a buffer for WriteImage.
// r.Min.X should be a multiple of four; pixels of r outside the image are
// White.
func (i *Image) Plane(r image.Rectangle) []byte {
	sub := NewImage(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			sub.SetColorIndex(x-r.Min.X, y-r.Min.Y, i.ColorIndexAt(x, y))
		}
	}
	return sub.Pix
}
