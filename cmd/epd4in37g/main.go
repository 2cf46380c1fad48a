// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// epd4in37g drives a Waveshare 4.37" (G) e-paper panel, or an emulation of
// it rendered in the terminal.
//
// Actions run in order after the panel is initialized:
//
//	clear      run the full clearing cycle
//	draw       draw a test pattern
//	refresh    refresh the panel from its RAM
//	temp       print the panel temperature
//	force=N    pin the waveform selection to N degrees Celsius
//	sleep      enter deep sleep
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/virtualpanel"
	"github.com/GermanBionicSystems/epaper/waveshare4in37g"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// models lists the panels the tool knows about.
var models = []*epd.Descriptor{
	&waveshare4in37g.Descriptor,
}

func openHardware(cfg *config) (epd.Transport, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}

	p, err := spireg.Open(cfg.SPI)
	if err != nil {
		return nil, nil, err
	}
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, nil, err
	}

	names := []string{cfg.Pins.DC, cfg.Pins.CS, cfg.Pins.RST, cfg.Pins.Busy}
	var lines [4]gpio.PinIO
	for i, n := range names {
		if n == "" {
			continue
		}
		if lines[i] = gpioreg.ByName(n); lines[i] == nil {
			p.Close()
			return nil, nil, fmt.Errorf("unknown GPIO %q", n)
		}
	}
	dc, cs, rst, busy := lines[0], lines[1], lines[2], lines[3]
	if dc == nil || rst == nil || busy == nil {
		p.Close()
		return nil, nil, errors.New("dc, rst and busy pins are required")
	}
	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		p.Close()
		return nil, nil, err
	}

	var csOut gpio.PinOut
	if cs != nil {
		csOut = cs
	}
	return epd.NewSPITransport(c, dc, csOut, rst, busy), p.Close, nil
}

func openVirtual(cfg *config, d *epd.Descriptor, log *slog.Logger) (epd.Transport, func() error, error) {
	var w io.Writer = colorable.NewColorableStdout()
	if fd := os.Stdout.Fd(); !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		log.Info("stdout is not a terminal, frames are not rendered")
		w = io.Discard
	}
	p, err := virtualpanel.New(&virtualpanel.Opts{
		Width:       d.Width,
		Height:      d.Height,
		Temperature: cfg.Temperature,
		Scale:       cfg.Scale,
		W:           w,
	})
	if err != nil {
		return nil, nil, err
	}
	return p, func() error { return nil }, nil
}

func runAction(m epd.Model, cfg *config, action string) error {
	name, arg, _ := strings.Cut(action, "=")
	switch name {
	case "clear":
		return m.Clear()
	case "refresh":
		return m.Refresh()
	case "sleep":
		return m.Sleep()
	case "temp":
		v, err := m.ReadTemperature()
		if err != nil {
			return err
		}
		fmt.Printf("%d°C\n", v)
		return nil
	case "force":
		v, err := strconv.ParseInt(arg, 10, 8)
		if err != nil {
			return fmt.Errorf("force: %w", err)
		}
		return m.ForceTemperature(int8(v))
	case "draw":
		d, ok := m.(display.Drawer)
		if !ok {
			return fmt.Errorf("draw: %T is not a display.Drawer", m)
		}
		v, err := m.ReadTemperature()
		if err != nil {
			return err
		}
		b := d.Bounds()
		img, err := testPattern(b.Dx(), b.Dy(), cfg.Text, v, cfg.Rotate)
		if err != nil {
			return err
		}
		return d.Draw(b, img, image.Point{})
	}
	return fmt.Errorf("unknown action %q", action)
}

func mainImpl() error {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] action...\n\nactions: clear draw refresh temp force=N sleep\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	cfg, actions, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		flag.Usage()
		return errors.New("no action given")
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	reg, err := epd.NewRegistry(models...)
	if err != nil {
		return err
	}
	desc, ok := reg.Lookup(cfg.Model)
	if !ok {
		return fmt.Errorf("unknown model %q, expected one of %s", cfg.Model, strings.Join(reg.IDs(), ", "))
	}

	var t epd.Transport
	var closer func() error
	if cfg.Virtual {
		t, closer, err = openVirtual(&cfg, &desc, log)
	} else {
		t, closer, err = openHardware(&cfg)
	}
	if err != nil {
		return err
	}

	m, err := desc.Open(t, &epd.Opts{Logger: log, Strict: cfg.Strict})
	if err != nil {
		closer()
		return err
	}
	log.Info("opened panel", "model", desc.String(), "transport", t)
	return runAll(m, &cfg, actions, closer, log)
}

// runAll initializes m and runs actions in order, then calls closer. The
// first error wins.
func runAll(m epd.Model, cfg *config, actions []string, closer func() error, log *slog.Logger) (err error) {
	defer func() {
		if cerr := closer(); err == nil {
			err = cerr
		}
	}()

	if err := m.Init(); err != nil {
		return err
	}
	for _, a := range actions {
		log.Debug("running", "action", a)
		if err := runAction(m, cfg, a); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "epd4in37g: %s.\n", err)
		os.Exit(1)
	}
}
