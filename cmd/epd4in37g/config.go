// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// pins names the GPIO lines used by the panel, as known to gpioreg.
type pins struct {
	DC   string `yaml:"dc"`
	CS   string `yaml:"cs"`
	RST  string `yaml:"rst"`
	Busy string `yaml:"busy"`
}

// config is the tool configuration. It is read from an optional YAML file;
// flags set on the command line take precedence.
type config struct {
	Model    string     `yaml:"model"`
	SPI      string     `yaml:"spi"`
	Pins     pins       `yaml:"pins"`
	Strict   bool       `yaml:"strict"`
	LogLevel slog.Level `yaml:"log_level"`

	Virtual     bool `yaml:"virtual"`
	Scale       int  `yaml:"scale"`
	Temperature int8 `yaml:"temperature"`

	Text   string  `yaml:"text"`
	Rotate float64 `yaml:"rotate"`
}

// defaultConfig matches the Waveshare HAT on a Raspberry Pi.
func defaultConfig() config {
	return config{
		Model: "epd4in37g",
		Pins: pins{
			DC:   "GPIO25",
			CS:   "GPIO8",
			RST:  "GPIO17",
			Busy: "GPIO24",
		},
		LogLevel:    slog.LevelInfo,
		Scale:       8,
		Temperature: 20,
		Text:        "Hello from periph!",
	}
}

// loadConfig reads the YAML file at path over cfg.
func loadConfig(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// flagValues holds the command line flags before they are merged.
type flagValues struct {
	config   string
	model    string
	spi      string
	dc       string
	cs       string
	rst      string
	busy     string
	strict   bool
	logLevel string
	virtual  bool
	scale    int
	temp     int
	text     string
	rotate   float64
}

func (f *flagValues) register(fs *flag.FlagSet) {
	def := defaultConfig()
	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.StringVar(&f.model, "model", def.Model, "panel model")
	fs.StringVar(&f.spi, "spi", "", "SPI port name, empty for the first one")
	fs.StringVar(&f.dc, "dc", def.Pins.DC, "data/command GPIO")
	fs.StringVar(&f.cs, "cs", def.Pins.CS, "chip select GPIO")
	fs.StringVar(&f.rst, "rst", def.Pins.RST, "reset GPIO")
	fs.StringVar(&f.busy, "busy", def.Pins.Busy, "busy GPIO")
	fs.BoolVar(&f.strict, "strict", false, "fail on busy timeouts instead of logging them")
	fs.StringVar(&f.logLevel, "log-level", def.LogLevel.String(), "log level: debug, info, warn or error")
	fs.BoolVar(&f.virtual, "virtual", false, "use an emulated panel rendered in the terminal")
	fs.IntVar(&f.scale, "scale", def.Scale, "panel pixels per terminal cell of the emulated panel")
	fs.IntVar(&f.temp, "temp", int(def.Temperature), "temperature reported by the emulated panel")
	fs.StringVar(&f.text, "text", def.Text, "text of the test pattern")
	fs.Float64Var(&f.rotate, "rotate", 0, "test pattern rotation in degrees")
}

// apply copies the flags explicitly set in fs into cfg.
func (f *flagValues) apply(fs *flag.FlagSet, cfg *config) error {
	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "model":
			cfg.Model = f.model
		case "spi":
			cfg.SPI = f.spi
		case "dc":
			cfg.Pins.DC = f.dc
		case "cs":
			cfg.Pins.CS = f.cs
		case "rst":
			cfg.Pins.RST = f.rst
		case "busy":
			cfg.Pins.Busy = f.busy
		case "strict":
			cfg.Strict = f.strict
		case "log-level":
			err = cfg.LogLevel.UnmarshalText([]byte(f.logLevel))
		case "virtual":
			cfg.Virtual = f.virtual
		case "scale":
			cfg.Scale = f.scale
		case "temp":
			if f.temp < -128 || f.temp > 127 {
				err = fmt.Errorf("-temp %d out of range", f.temp)
				return
			}
			cfg.Temperature = int8(f.temp)
		case "text":
			cfg.Text = f.text
		case "rotate":
			cfg.Rotate = f.rotate
		}
	})
	return err
}

// parseConfig parses args and returns the merged configuration and the
// remaining arguments.
func parseConfig(fs *flag.FlagSet, args []string) (config, []string, error) {
	var f flagValues
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return config{}, nil, err
	}

	cfg := defaultConfig()
	if f.config != "" {
		if err := loadConfig(f.config, &cfg); err != nil {
			return config{}, nil, err
		}
	}
	if err := f.apply(fs, &cfg); err != nil {
		return config{}, nil, err
	}
	return cfg, fs.Args(), nil
}
