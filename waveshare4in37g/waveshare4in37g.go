// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare4in37g

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"

	"github.com/GermanBionicSystems/epaper/epd"
	"golang.org/x/image/draw"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3/rpi"
)

// busyLevel is the level of the busy pin while the controller works.
const busyLevel = gpio.Low

// Opts defines the structure of the display configuration.
type Opts struct {
	Width  int
	Height int

	// Logger receives debug output and busy timeout warnings. Nil discards
	// them.
	Logger *slog.Logger
	// Strict makes busy timeouts fail the operation with an error matching
	// epd.ErrBusyTimeout instead of being logged.
	Strict bool
}

// EPD4in37g contains the display configuration for the Waveshare 4.37 (G).
var EPD4in37g = Opts{
	Width:  512,
	Height: 368,
}

// Descriptor describes the panel for an epd.Registry.
var Descriptor = epd.Descriptor{
	ID:          "epd4in37g",
	Width:       EPD4in37g.Width,
	Height:      EPD4in37g.Height,
	MultiColor:  true,
	RAMCommand1: dataStartTransmission,
	RAMCommand2: dataStartTransmission,
	Open: func(t epd.Transport, o *epd.Opts) (epd.Model, error) {
		opts := EPD4in37g
		if o != nil {
			opts.Logger = o.Logger
			opts.Strict = o.Strict
		}
		dev, err := NewTransport(t, &opts)
		if err != nil {
			return nil, err
		}
		return dev, nil
	},
}

// Dev defines the handler which is used to access the display.
type Dev struct {
	mu sync.Mutex

	t      epd.Transport
	opts   Opts
	layout epd.Layout
	log    *slog.Logger

	// buffer mirrors what Draw has written to the controller RAM.
	buffer *Image
	asleep bool
}

// New creates new handler which is used to access the display.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}

	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, err
	}

	return NewTransport(epd.NewSPITransport(c, dc, cs, rst, busy), opts)
}

// NewHat creates new handler which is used to access the display. Default
// Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

// NewTransport creates a handler talking to the controller through t.
func NewTransport(t epd.Transport, opts *Opts) (*Dev, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("waveshare4in37g: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.Width%pixelsPerByte != 0 {
		return nil, fmt.Errorf("waveshare4in37g: width %d is not a multiple of %d", opts.Width, pixelsPerByte)
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Dev{
		t:    t,
		opts: *opts,
		layout: epd.Layout{
			Width:         opts.Width,
			Height:        opts.Height,
			PixelsPerByte: pixelsPerByte,
			WindowCommand: partialWindow,
			WindowTrailer: partialWindowScan,
			Planes:        1,
			RAMCommand1:   dataStartTransmission,
			RAMCommand2:   dataStartTransmission,
		},
		log:    log,
		buffer: NewImage(image.Rect(0, 0, opts.Width, opts.Height)),
	}, nil
}

// run executes fn on a fresh sequencer and returns its first error.
func (d *Dev) run(fn func(s *epd.Sequencer)) error {
	if d.asleep {
		return epd.ErrAsleep
	}
	s := epd.NewSequencer(d.t, busyLevel, &epd.Opts{Logger: d.log, Strict: d.opts.Strict})
	fn(s)
	return s.Err()
}

// Init resets the controller and sends the panel configuration. It also wakes
// the controller from deep sleep.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.t.Reset(gpio.High, resetPulse); err != nil {
		return err
	}
	d.asleep = false

	return d.run(func(s *epd.Sequencer) {
		initDisplay(s, &d.opts)
	})
}

// Clear drives every pixel through all four colors and leaves the panel
// white. It takes five full refreshes.
func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.run(func(s *epd.Sequencer) {
		clearDisplay(s, &d.opts, d.log)
	})
	if err == nil {
		d.buffer.Fill(White)
	}
	return err
}

// WriteImage transfers plane1 into the controller RAM at r. plane1 is packed
// for r with its left edge rounded down to a multiple of four pixels; parts
// of r outside the panel are not sent. The panel has a single plane so plane2
// is ignored. Call Refresh to show the result.
func (d *Dev) WriteImage(plane1, plane2 []byte, r image.Rectangle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.writeImage(plane1, plane2, r)
}

func (d *Dev) writeImage(plane1, plane2 []byte, r image.Rectangle) error {
	t, ok := epd.Plan(&d.layout, r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	d.log.Debug("update area", "rect", r, "window", t.Window, "offset", t.Offset, "empty", !ok)

	var err error
	if rerr := d.run(func(s *epd.Sequencer) {
		err = epd.WriteImage(s, &d.layout, plane1, plane2, r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	}); rerr != nil {
		return rerr
	}
	if err != nil {
		return err
	}
	if ok {
		d.mirror(&t, plane1)
	}
	return nil
}

// mirror records in the buffer the pixels t sent from plane.
func (d *Dev) mirror(t *epd.Transfer, plane []byte) {
	skip := t.Offset.X / pixelsPerByte
	for row := 0; row < t.Window.Dy(); row++ {
		line := plane[skip+(row+t.Offset.Y)*t.Stride:]
		for x := 0; x < t.Window.Dx(); x++ {
			c := Color(line[x/pixelsPerByte]>>uint(6-2*(x%pixelsPerByte))) & 0x03
			d.buffer.SetColorIndex(t.Window.Min.X+x, t.Window.Min.Y+row, c)
		}
	}
}

// Refresh shows the controller RAM on the panel and waits for the update to
// finish.
func (d *Dev) Refresh() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.run(func(s *epd.Sequencer) {
		refresh(s, d.log)
	})
}

// Sleep powers the panel off and puts the controller in deep sleep. Init must
// be called before any further operation.
func (d *Dev) Sleep() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.asleep {
		return nil
	}
	err := d.run(func(s *epd.Sequencer) {
		sleep(s)
	})
	if err == nil {
		d.asleep = true
	}
	return err
}

// ReadTemperature returns the controller's temperature sensor reading in
// degrees Celsius.
func (d *Dev) ReadTemperature() (int8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var v int8
	err := d.run(func(s *epd.Sequencer) {
		v = readTemperature(s)
	})
	return v, err
}

// ForceTemperature makes the controller pick the waveform for celsius instead
// of the measured temperature until the next Init.
func (d *Dev) ForceTemperature(celsius int8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.run(func(s *epd.Sequencer) {
		forceTemperature(s, celsius)
	})
}

// ColorModel returns the four color panel model.
func (d *Dev) ColorModel() color.Model {
	return ColorModel
}

// Bounds returns the bounds for the configured display.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

// Draw draws the given image to the display. Colors are mapped to the closest
// panel color. Only the destination area, widened to whole bytes, is uploaded,
// then the panel is refreshed.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.asleep {
		return epd.ErrAsleep
	}

	area := dstRect.Intersect(d.Bounds())
	if area.Empty() {
		return nil
	}
	draw.Draw(d.buffer, dstRect, src, srcPts, draw.Src)

	area.Min.X -= area.Min.X % pixelsPerByte
	if rem := area.Max.X % pixelsPerByte; rem != 0 {
		area.Max.X += pixelsPerByte - rem
	}

	if err := d.writeImage(d.buffer.Plane(area), nil, area); err != nil {
		return err
	}

	return d.run(func(s *epd.Sequencer) {
		refresh(s, d.log)
	})
}

// Halt puts the display in deep sleep.
func (d *Dev) Halt() error {
	return d.Sleep()
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("epd.Dev{%v, Width: %d, Height: %d}", d.t, d.opts.Width, d.opts.Height)
}

var _ display.Drawer = &Dev{}
var _ conn.Resource = &Dev{}
var _ epd.Model = &Dev{}
