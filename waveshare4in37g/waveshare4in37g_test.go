// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare4in37g

import (
	"bytes"
	"errors"
	"image"
	"log/slog"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/epd/epdtest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

func newTestDev(t *testing.T, opts Opts) (*Dev, *epdtest.Transport) {
	t.Helper()
	tr := &epdtest.Transport{}
	dev, err := NewTransport(tr, &opts)
	if err != nil {
		t.Fatalf("NewTransport() failed: %v", err)
	}
	return dev, tr
}

func TestNew(t *testing.T) {
	dev, err := New(&spitest.Playback{}, &gpiotest.Pin{}, &gpiotest.Pin{}, &gpiotest.Pin{}, &gpiotest.Pin{}, &EPD4in37g)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if diff := cmp.Diff(dev.String(), "epd.Dev{playback, (0), Width: 512, Height: 368}"); diff != "" {
		t.Errorf("String() difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(dev.Bounds(), image.Rect(0, 0, 512, 368)); diff != "" {
		t.Errorf("Bounds() difference (-got +want):\n%s", diff)
	}
}

func TestNewTransportInvalid(t *testing.T) {
	for _, opts := range []Opts{
		{},
		{Width: 512},
		{Width: 510, Height: 368},
	} {
		if _, err := NewTransport(&epdtest.Transport{}, &opts); err == nil {
			t.Errorf("NewTransport(%+v) succeeded, want error", opts)
		}
	}
}

func TestDevInit(t *testing.T) {
	dev, tr := newTestDev(t, EPD4in37g)

	if err := dev.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if tr.Resets != 1 {
		t.Errorf("Resets = %d, want 1", tr.Resets)
	}
	if len(tr.Records) != len(initSequence(&EPD4in37g)) {
		t.Errorf("Init() sent %d commands, want %d", len(tr.Records), len(initSequence(&EPD4in37g)))
	}
}

func TestDevWriteImage(t *testing.T) {
	for _, tc := range []struct {
		name   string
		r      image.Rectangle
		plane1 []byte
		want   []epdtest.Record
	}{
		{
			name:   "unaligned origin",
			r:      image.Rect(2, 0, 10, 2),
			plane1: []byte{1, 2, 3, 4},
			want: []epdtest.Record{
				{Cmd: 0x83, Data: []byte{0, 0, 0, 7, 0, 0, 0, 1, 1}},
				{Cmd: 0x10, Data: []byte{1, 2, 3, 4}},
			},
		},
		{
			name:   "window bytes",
			r:      image.Rect(300, 10, 350, 30),
			plane1: make([]byte, 13*20),
			want: []epdtest.Record{
				{Cmd: 0x83, Data: []byte{1, 44, 1, 95, 0, 10, 0, 29, 1}},
				{Cmd: 0x10, Data: make([]byte, 13*20)},
			},
		},
		{
			name: "off panel",
			r:    image.Rect(600, 0, 616, 16),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev, tr := newTestDev(t, EPD4in37g)

			if err := dev.WriteImage(tc.plane1, []byte{0xff}, tc.r); err != nil {
				t.Fatalf("WriteImage() failed: %v", err)
			}

			if diff := cmp.Diff(tr.Records, tc.want, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("WriteImage() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestDevWriteImageShortBuffer(t *testing.T) {
	dev, _ := newTestDev(t, EPD4in37g)

	err := dev.WriteImage([]byte{1}, nil, image.Rect(0, 0, 8, 8))
	if !errors.Is(err, epd.ErrShortBuffer) {
		t.Errorf("WriteImage() error = %v, want %v", err, epd.ErrShortBuffer)
	}
}

func TestDevSleep(t *testing.T) {
	dev, tr := newTestDev(t, EPD4in37g)

	if err := dev.Sleep(); err != nil {
		t.Fatalf("Sleep() failed: %v", err)
	}
	want := []epdtest.Record{
		{Cmd: 0x02, Data: []byte{0x00}},
		{Cmd: 0x07, Data: []byte{0xa5}},
	}
	if diff := cmp.Diff(tr.Records, want); diff != "" {
		t.Errorf("Sleep() difference (-got +want):\n%s", diff)
	}

	// Panel operations need a fresh Init.
	tr.Records = nil
	for name, fn := range map[string]func() error{
		"Clear":            dev.Clear,
		"Refresh":          dev.Refresh,
		"ForceTemperature": func() error { return dev.ForceTemperature(20) },
		"ReadTemperature":  func() error { _, err := dev.ReadTemperature(); return err },
		"WriteImage":       func() error { return dev.WriteImage(make([]byte, 2), nil, image.Rect(0, 0, 8, 1)) },
		"Draw":             func() error { return dev.Draw(dev.Bounds(), image.White, image.Point{}) },
	} {
		if err := fn(); !errors.Is(err, epd.ErrAsleep) {
			t.Errorf("%s() after Sleep error = %v, want %v", name, err, epd.ErrAsleep)
		}
	}
	if len(tr.Records) != 0 {
		t.Errorf("commands sent while asleep: %v", tr.Records)
	}

	if err := dev.Sleep(); err != nil {
		t.Errorf("second Sleep() failed: %v", err)
	}
	if err := dev.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := dev.Refresh(); err != nil {
		t.Errorf("Refresh() after Init failed: %v", err)
	}
}

func TestDevStrictTimeout(t *testing.T) {
	opts := EPD4in37g
	opts.Strict = true
	dev, tr := newTestDev(t, opts)
	tr.StayBusy = true

	err := dev.Refresh()
	if !errors.Is(err, epd.ErrBusyTimeout) {
		t.Fatalf("Refresh() error = %v, want %v", err, epd.ErrBusyTimeout)
	}
	// Power on was sent, then the sequence stopped.
	if diff := cmp.Diff(tr.Commands(), []byte{0x04}); diff != "" {
		t.Errorf("commands difference (-got +want):\n%s", diff)
	}
}

func TestDevLenientTimeout(t *testing.T) {
	dev, tr := newTestDev(t, EPD4in37g)
	tr.StayBusy = true

	if err := dev.Refresh(); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if diff := cmp.Diff(tr.Commands(), []byte{0x04, 0x40, 0x12, 0x02}); diff != "" {
		t.Errorf("commands difference (-got +want):\n%s", diff)
	}
}

func TestDevTemperature(t *testing.T) {
	dev, tr := newTestDev(t, EPD4in37g)
	tr.Reads = []byte{0x16}

	if err := dev.ForceTemperature(-5); err != nil {
		t.Fatalf("ForceTemperature() failed: %v", err)
	}
	want := []epdtest.Record{
		{Cmd: 0xe0, Data: []byte{0x02}},
		{Cmd: 0xe5, Data: []byte{0xfb}},
	}
	if diff := cmp.Diff(tr.Records, want); diff != "" {
		t.Errorf("ForceTemperature() difference (-got +want):\n%s", diff)
	}

	// The sensor keeps reporting the measured value.
	v, err := dev.ReadTemperature()
	if err != nil {
		t.Fatalf("ReadTemperature() failed: %v", err)
	}
	if v != 22 {
		t.Errorf("ReadTemperature() = %d, want 22", v)
	}
}

func TestDevDraw(t *testing.T) {
	dev, tr := newTestDev(t, EPD4in37g)

	if err := dev.Draw(image.Rect(2, 1, 6, 2), &image.Uniform{C: Red}, image.Point{}); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}

	want := []epdtest.Record{
		{Cmd: 0x83, Data: []byte{0, 0, 0, 7, 0, 1, 0, 1, 1}},
		{Cmd: 0x10, Data: []byte{0x5f, 0xf5}},
		{Cmd: 0x04},
		{Cmd: 0x40},
		{Cmd: 0x12, Data: []byte{0x00}},
		{Cmd: 0x02, Data: []byte{0x00}},
	}
	if diff := cmp.Diff(tr.Records, want, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Draw() difference (-got +want):\n%s", diff)
	}

	// A second draw keeps the pixels drawn before.
	tr.Records = nil
	if err := dev.Draw(image.Rect(0, 1, 1, 2), &image.Uniform{C: Black}, image.Point{}); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}
	if diff := cmp.Diff(tr.Records[1], epdtest.Record{Cmd: 0x10, Data: []byte{0x1f}}); diff != "" {
		t.Errorf("Draw() data difference (-got +want):\n%s", diff)
	}
}

func TestDevDrawOffPanel(t *testing.T) {
	dev, tr := newTestDev(t, EPD4in37g)

	if err := dev.Draw(image.Rect(600, 0, 700, 10), image.Black, image.Point{}); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}
	if tr.Calls != 0 {
		t.Errorf("Draw() made %d transport calls, want 0", tr.Calls)
	}
}

func TestDevClearResetsBuffer(t *testing.T) {
	dev, _ := newTestDev(t, EPD4in37g)
	dev.buffer.SetColorIndex(0, 0, Red)

	if err := dev.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if got := dev.buffer.ColorIndexAt(0, 0); got != White {
		t.Errorf("buffer after Clear() = %v, want White", got)
	}
}

func TestDescriptor(t *testing.T) {
	r, err := epd.NewRegistry(&Descriptor)
	if err != nil {
		t.Fatalf("NewRegistry() failed: %v", err)
	}

	tr := &epdtest.Transport{}
	m, err := r.Open("epd4in37g", tr, &epd.Opts{Strict: true})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	dev, ok := m.(*Dev)
	if !ok {
		t.Fatalf("Open() returned %T, want *Dev", m)
	}
	if !dev.opts.Strict {
		t.Error("Open() dropped Strict option")
	}
	if diff := cmp.Diff(dev.Bounds(), Descriptor.Bounds()); diff != "" {
		t.Errorf("Bounds() difference (-got +want):\n%s", diff)
	}
	if !Descriptor.MultiColor || Descriptor.RAMCommand1 != 0x10 || Descriptor.RAMCommand2 != 0x10 {
		t.Errorf("Descriptor = %+v", Descriptor)
	}
}

func TestDevDrawAfterWriteImage(t *testing.T) {
	dev, tr := newTestDev(t, EPD4in37g)

	if err := dev.WriteImage([]byte{0xff}, nil, image.Rect(0, 0, 4, 1)); err != nil {
		t.Fatalf("WriteImage() failed: %v", err)
	}
	tr.Records = nil
	if err := dev.Draw(image.Rect(1, 0, 2, 1), &image.Uniform{C: Black}, image.Point{}); err != nil {
		t.Fatalf("Draw() failed: %v", err)
	}

	// The red pixels around the black one are resent unchanged.
	if diff := cmp.Diff(tr.Records[1], epdtest.Record{Cmd: 0x10, Data: []byte{0xcf}}); diff != "" {
		t.Errorf("Draw() data difference (-got +want):\n%s", diff)
	}
}

func TestDevWriteImageUpdatesBuffer(t *testing.T) {
	dev, _ := newTestDev(t, EPD4in37g)

	// Only the right half of the request is on the panel.
	if err := dev.WriteImage([]byte{0x00, 0xff, 0x00, 0xb1}, nil, image.Rect(-4, 0, 4, 2)); err != nil {
		t.Fatalf("WriteImage() failed: %v", err)
	}

	want := [][]Color{
		{Red, Red, Red, Red, White},
		{Yellow, Red, Black, White, White},
	}
	for y, row := range want {
		for x, c := range row {
			if got := dev.buffer.ColorIndexAt(x, y); got != c {
				t.Errorf("buffer (%d, %d) = %v, want %v", x, y, got, c)
			}
		}
	}
}

func TestDevWriteImageErrorKeepsBuffer(t *testing.T) {
	dev, _ := newTestDev(t, EPD4in37g)

	if err := dev.WriteImage([]byte{0x00}, nil, image.Rect(0, 0, 8, 1)); !errors.Is(err, epd.ErrShortBuffer) {
		t.Fatalf("WriteImage() error = %v, want %v", err, epd.ErrShortBuffer)
	}
	if got := dev.buffer.ColorIndexAt(0, 0); got != White {
		t.Errorf("buffer (0, 0) = %v, want White", got)
	}
}

func TestDevWriteImageLogsArea(t *testing.T) {
	var buf bytes.Buffer
	opts := EPD4in37g
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	dev, _ := newTestDev(t, opts)

	if err := dev.WriteImage(nil, nil, image.Rect(600, 0, 616, 16)); err != nil {
		t.Fatalf("WriteImage() failed: %v", err)
	}
	if err := dev.WriteImage(make([]byte, 2), nil, image.Rect(0, 0, 8, 1)); err != nil {
		t.Fatalf("WriteImage() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), buf.String())
	}
	for i, want := range []string{"empty=true", "empty=false"} {
		if !strings.Contains(lines[i], `msg="update area"`) || !strings.Contains(lines[i], want) {
			t.Errorf("log line %d = %q, want update area with %s", i, lines[i], want)
		}
	}
}
