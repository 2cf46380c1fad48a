// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"errors"
	"fmt"
	"image"
	"sort"
)

// Model is the set of operations every controller family provides.
type Model interface {
	// Init resets the controller and loads its configuration. It is required
	// once after power up and after Sleep.
	Init() error
	// Clear runs the family's full-panel clearing choreography.
	Clear() error
	// WriteImage transfers the part of r that is on the panel. The planes are
	// packed for the byte-aligned r; plane2 may be nil.
	WriteImage(plane1, plane2 []byte, r image.Rectangle) error
	// Refresh shows the RAM content on the panel.
	Refresh() error
	// Sleep powers the panel down and enters deep sleep.
	Sleep() error
	// ReadTemperature returns the on-chip sensor reading in degrees Celsius.
	ReadTemperature() (int8, error)
	// ForceTemperature makes the controller select the waveform for celsius
	// instead of the measured temperature.
	ForceTemperature(celsius int8) error
}

// Descriptor is the static description of a panel model.
type Descriptor struct {
	// ID identifies the model in a Registry.
	ID     string
	Width  int
	Height int
	// MultiColor is set for panels with three or more colors.
	MultiColor bool

	// Command bytes the first and second color plane are written under.
	RAMCommand1 byte
	RAMCommand2 byte

	// Open returns a Model talking to the controller through t.
	Open func(t Transport, opts *Opts) (Model, error)
}

// Bounds returns the panel area in pixels.
func (d *Descriptor) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.Width, d.Height)
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (%dx%d)", d.ID, d.Width, d.Height)
}

// Registry maps model IDs to descriptors. It is immutable once built and safe
// for concurrent lookups.
type Registry struct {
	byID map[string]Descriptor
	ids  []string
}

// NewRegistry builds a registry holding copies of descs.
func NewRegistry(descs ...*Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		switch {
		case d.ID == "":
			return nil, errors.New("epd: descriptor without ID")
		case d.Width <= 0 || d.Height <= 0:
			return nil, fmt.Errorf("epd: %s: invalid geometry %dx%d", d.ID, d.Width, d.Height)
		case d.Open == nil:
			return nil, fmt.Errorf("epd: %s: descriptor without Open", d.ID)
		}
		if _, ok := r.byID[d.ID]; ok {
			return nil, fmt.Errorf("epd: duplicate model %q", d.ID)
		}
		r.byID[d.ID] = *d
		r.ids = append(r.ids, d.ID)
	}
	sort.Strings(r.ids)
	return r, nil
}

// Lookup returns the descriptor registered as id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// IDs returns the registered model IDs in sorted order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Open opens the model registered as id on t.
func (r *Registry) Open(id string, t Transport, opts *Opts) (Model, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("epd: unknown model %q, expected one of %v", id, r.ids)
	}
	return d.Open(t, opts)
}
