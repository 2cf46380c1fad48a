// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package virtualpanel emulates a Waveshare 4.37" (G) e-paper controller.
//
// A Panel implements epd.Transport. It decodes the command stream the driver
// sends into controller RAM and, on every refresh, renders the new frame to a
// terminal using ANSI 256 color codes.
//
// Useful to work on drawing code without a panel at hand, and to check the
// driver end to end.
package virtualpanel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/gpio"
)

// Commands understood by the emulator.
const (
	powerOff          byte = 0x02
	powerOn           byte = 0x04
	deepSleep         byte = 0x07
	dataStart         byte = 0x10
	displayRefresh    byte = 0x12
	temperatureSensor byte = 0x40
	resolution        byte = 0x61
	partialWindow     byte = 0x83
	cascadeSetting    byte = 0xE0
	forceTemperature  byte = 0xE5
)

const (
	deepSleepCheck = 0xA5
	pixelsPerByte  = 4
)

// ErrDeepSleep is returned for traffic sent while the controller sleeps.
var ErrDeepSleep = errors.New("virtualpanel: controller in deep sleep")

// DefaultColors maps the 2-bit pixel codes to what the panel shows.
var DefaultColors = []color.NRGBA{
	color.NRGBA{0x00, 0x00, 0x00, 0xff},
	color.NRGBA{0xff, 0xff, 0xff, 0xff},
	color.NRGBA{0xff, 0xd7, 0x00, 0xff},
	color.NRGBA{0xd7, 0x00, 0x00, 0xff},
}

// Opts represents the options available for the emulated panel.
type Opts struct {
	Width  int
	Height int

	// Temperature is what the on-chip sensor reports, in degrees Celsius.
	Temperature int8
	// Colors maps pixel codes to colors. Defaults to DefaultColors.
	Colors []color.NRGBA
	// Scale is the size in panel pixels of one terminal cell. Defaults to 1.
	Scale int
	// W receives the rendered frames. Nil uses a colorable stdout; use
	// io.Discard to disable rendering.
	W       io.Writer
	Palette *ansi256.Palette

	_ struct{}
}

// Panel is an emulated controller and panel.
type Panel struct {
	mu sync.Mutex

	w       io.Writer
	opts    Opts
	palette ansi256.Palette
	stride  int

	ram   []byte
	frame *image.Paletted
	buf   bytes.Buffer

	cmd     byte
	hasCmd  bool
	args    []byte
	regs    map[byte][]byte
	window  image.Rectangle
	cursor  int
	powered bool
	asleep  bool
	forced  *int8

	refreshes int
}

// New returns a Panel in its power-on reset state: RAM and frame are white
// and the window covers the whole panel.
func New(opts *Opts) (*Panel, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width%pixelsPerByte != 0 {
		return nil, fmt.Errorf("virtualpanel: invalid size %dx%d", opts.Width, opts.Height)
	}
	o := *opts
	if o.Colors == nil {
		o.Colors = DefaultColors
	}
	if len(o.Colors) < 4 {
		return nil, fmt.Errorf("virtualpanel: need 4 colors, got %d", len(o.Colors))
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	p := o.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := o.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}

	pal := make(color.Palette, 4)
	for i := range pal {
		pal[i] = o.Colors[i]
	}

	stride := o.Width / pixelsPerByte
	d := &Panel{
		w:       w,
		opts:    o,
		palette: *p,
		stride:  stride,
		ram:     make([]byte, stride*o.Height),
		frame:   image.NewPaletted(image.Rect(0, 0, o.Width, o.Height), pal),
	}
	d.reset()
	for i := range d.frame.Pix {
		d.frame.Pix[i] = 1
	}
	return d, nil
}

func (d *Panel) String() string {
	return fmt.Sprintf("virtualpanel(%dx%d)", d.opts.Width, d.opts.Height)
}

// reset restores the state a hardware reset leaves the controller in. The
// displayed frame is kept, as on a real panel.
func (d *Panel) reset() {
	for i := range d.ram {
		d.ram[i] = 0x55
	}
	d.hasCmd = false
	d.args = nil
	d.regs = map[byte][]byte{}
	d.window = image.Rect(0, 0, d.opts.Width, d.opts.Height)
	d.cursor = 0
	d.powered = false
	d.asleep = false
	d.forced = nil
}

// Reset implements epd.Transport.
func (d *Panel) Reset(gpio.Level, time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reset()
	return nil
}

// WriteCommand implements epd.Transport.
func (d *Panel) WriteCommand(c byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.asleep {
		return ErrDeepSleep
	}
	d.cmd = c
	d.hasCmd = true
	d.args = nil

	switch c {
	case powerOn:
		d.powered = true
	case dataStart:
		d.cursor = 0
	case displayRefresh:
		if !d.powered {
			return errors.New("virtualpanel: refresh while powered off")
		}
		return d.refresh()
	}
	return nil
}

// WriteData implements epd.Transport.
func (d *Panel) WriteData(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.asleep {
		return ErrDeepSleep
	}
	if !d.hasCmd {
		return errors.New("virtualpanel: data without command")
	}

	if d.cmd == dataStart {
		for _, b := range p {
			d.writeRAM(b)
		}
		return nil
	}

	d.args = append(d.args, p...)
	d.regs[d.cmd] = d.args

	switch d.cmd {
	case powerOff:
		d.powered = false
	case deepSleep:
		if len(d.args) == 1 && d.args[0] == deepSleepCheck {
			d.powered = false
			d.asleep = true
		}
	case partialWindow:
		if len(d.args) == 9 {
			d.setWindow(d.args)
		}
	case resolution:
		if len(d.args) == 4 {
			w := int(d.args[0])<<8 | int(d.args[1])
			h := int(d.args[2])<<8 | int(d.args[3])
			if w != d.opts.Width || h != d.opts.Height {
				return fmt.Errorf("virtualpanel: resolution %dx%d does not match panel %dx%d", w, h, d.opts.Width, d.opts.Height)
			}
		}
	case forceTemperature:
		if c := d.regs[cascadeSetting]; len(c) == 1 && c[0]&0x02 != 0 && len(d.args) == 1 {
			v := int8(d.args[0])
			d.forced = &v
		}
	}
	return nil
}

// ReadData implements epd.Transport. Only the temperature sensor can be
// read.
func (d *Panel) ReadData() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.asleep {
		return 0, ErrDeepSleep
	}
	if !d.hasCmd || d.cmd != temperatureSensor {
		return 0, fmt.Errorf("virtualpanel: read after command %#02x", d.cmd)
	}
	return byte(d.opts.Temperature), nil
}

// WaitUntilIdle implements epd.Transport. The emulated controller is never
// busy.
func (d *Panel) WaitUntilIdle(gpio.Level, time.Duration) (bool, error) {
	return true, nil
}

// Delay implements epd.Transport. It returns immediately.
func (d *Panel) Delay(time.Duration) {
}

// setWindow decodes the partial window arguments. The end coordinates are
// inclusive and the horizontal ones are rounded to whole bytes.
func (d *Panel) setWindow(a []byte) {
	x0 := int(a[0])<<8 | int(a[1])
	x1 := int(a[2])<<8 | int(a[3])
	y0 := int(a[4])<<8 | int(a[5])
	y1 := int(a[6])<<8 | int(a[7])

	x0 -= x0 % pixelsPerByte
	x1 += pixelsPerByte - x1%pixelsPerByte
	r := image.Rect(x0, y0, x1, y1+1).Intersect(image.Rect(0, 0, d.opts.Width, d.opts.Height))
	d.window = r
	d.cursor = 0
}

// writeRAM stores b at the cursor and advances it through the window row by
// row. Bytes past the end of the window are dropped.
func (d *Panel) writeRAM(b byte) {
	cols := d.window.Dx() / pixelsPerByte
	if cols == 0 || d.cursor >= cols*d.window.Dy() {
		return
	}
	col := d.cursor % cols
	row := d.cursor / cols
	d.ram[(d.window.Min.Y+row)*d.stride+d.window.Min.X/pixelsPerByte+col] = b
	d.cursor++
}

func (d *Panel) refresh() error {
	for y := 0; y < d.opts.Height; y++ {
		for x := 0; x < d.opts.Width; x++ {
			b := d.ram[y*d.stride+x/pixelsPerByte]
			d.frame.Pix[y*d.frame.Stride+x] = (b >> uint(6-2*(x%pixelsPerByte))) & 0x03
		}
	}
	d.refreshes++
	// A refresh ends the partial transfer.
	d.window = image.Rect(0, 0, d.opts.Width, d.opts.Height)
	d.cursor = 0
	return d.render()
}

// render writes the frame to the terminal, one block per Scale×Scale cell.
func (d *Panel) render() error {
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	_, _ = d.buf.WriteString("\033[0m")
	s := d.opts.Scale
	for y := 0; y < d.opts.Height; y += s {
		for x := 0; x < d.opts.Width; x += s {
			_, _ = io.WriteString(&d.buf, d.palette.Block(d.opts.Colors[d.frame.ColorIndexAt(x, y)]))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Frame returns a copy of the image last shown on the panel. Pixel values
// are the controller color codes.
func (d *Panel) Frame() *image.Paletted {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := *d.frame
	f.Pix = append([]uint8(nil), d.frame.Pix...)
	return &f
}

// Refreshes returns how many times the panel has been refreshed.
func (d *Panel) Refreshes() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.refreshes
}

// Register returns a copy of the arguments last written after command c.
func (d *Panel) Register(c byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]byte(nil), d.regs[c]...)
}

// ForcedTemperature returns the temperature the waveform selection is pinned
// to, if any.
func (d *Panel) ForcedTemperature() (int8, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.forced == nil {
		return 0, false
	}
	return *d.forced, true
}

// Asleep reports whether the controller is in deep sleep.
func (d *Panel) Asleep() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.asleep
}

var _ epd.Transport = &Panel{}
var _ fmt.Stringer = &Panel{}
