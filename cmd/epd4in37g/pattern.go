// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/GermanBionicSystems/epaper/waveshare4in37g"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// barColors are drawn left to right along the bottom of the test pattern.
var barColors = []color.Color{
	waveshare4in37g.Black,
	waveshare4in37g.White,
	waveshare4in37g.Yellow,
	waveshare4in37g.Red,
}

// testPattern renders a framed text with the panel temperature above one bar
// per panel color, rotated by rotate degrees and fitted back into w×h.
func testPattern(w, h int, text string, celsius int8, rotate float64) (image.Image, error) {
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()

	bar := float64(w) / float64(len(barColors))
	for i, c := range barColors {
		dc.SetColor(c)
		dc.DrawRectangle(float64(i)*bar, float64(h)*3/4, bar, float64(h)/4)
		dc.Fill()
	}

	dc.SetColor(waveshare4in37g.Black)
	dc.SetLineWidth(4)
	dc.DrawRectangle(2, 2, float64(w-4), float64(h)*3/4-4)
	dc.Stroke()

	big, err := fontFace(float64(h) / 8)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(big)
	dc.SetColor(waveshare4in37g.Red)
	dc.DrawStringWrapped(text, float64(w)/2, float64(h)*3/10, 0.5, 0.5, float64(w)-40, 1.2, gg.AlignCenter)

	small, err := fontFace(float64(h) / 16)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(small)
	dc.SetColor(waveshare4in37g.Black)
	dc.DrawStringAnchored(fmt.Sprintf("%d°C", celsius), float64(w)/2, float64(h)*6/10, 0.5, 0.5)

	img := dc.Image()
	if rotate == 0 {
		return img, nil
	}
	rot := imaging.Rotate(img, rotate, color.White)
	fit := imaging.Fit(rot, w, h, imaging.NearestNeighbor)
	return imaging.PasteCenter(imaging.New(w, h, color.White), fit), nil
}

func fontFace(size float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}
