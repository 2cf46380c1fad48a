// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/GermanBionicSystems/epaper/waveshare4in37g"
)

func TestTestPattern(t *testing.T) {
	const w, h = 512, 368

	img, err := testPattern(w, h, "test", 20, 0)
	if err != nil {
		t.Fatalf("testPattern() failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("Bounds() = %v, want %dx%d", b, w, h)
	}

	y := h * 7 / 8
	for i, want := range barColors {
		x := w*i/len(barColors) + w/(2*len(barColors))
		got := waveshare4in37g.ColorModel.Convert(img.At(x, y))
		if got != want {
			t.Errorf("bar %d at (%d, %d) = %v, want %v", i, x, y, got, want)
		}
	}
}

func TestTestPatternRotated(t *testing.T) {
	img, err := testPattern(512, 368, "test", 20, 90)
	if err != nil {
		t.Fatalf("testPattern() failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 512 || b.Dy() != 368 {
		t.Errorf("Bounds() = %v, want 512x368", b)
	}
	// The rotated pattern is centered on white.
	if got := waveshare4in37g.ColorModel.Convert(img.At(0, 0)); got != waveshare4in37g.White {
		t.Errorf("corner = %v, want White", got)
	}
}
