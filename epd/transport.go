// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// Transport is the byte level link to a controller. Implementations must be
// synchronous: when a method returns the bytes are on the wire.
type Transport interface {
	// Reset pulses the reset line level, !level, level holding each state for
	// d.
	Reset(level gpio.Level, d time.Duration) error
	// WriteCommand sends one command byte with the data/command line low.
	WriteCommand(c byte) error
	// WriteData sends payload bytes with the data/command line high.
	WriteData(p []byte) error
	// ReadData clocks one byte in from the controller.
	ReadData() (byte, error)
	// WaitUntilIdle blocks while the busy line reads busy, for at most
	// timeout. It returns false when the line was still busy at the deadline.
	WaitUntilIdle(busy gpio.Level, timeout time.Duration) (bool, error)
	// Delay blocks for d.
	Delay(d time.Duration)
}

// defaultMaxTxSize is used when the connection does not implement
// conn.Limits.
const defaultMaxTxSize = 4096

// SPITransport implements Transport on top of a periph SPI connection and the
// auxiliary GPIO lines of a typical e-paper HAT.
type SPITransport struct {
	c conn.Conn

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	maxTxSize    int
	pollInterval time.Duration
}

// NewSPITransport returns a transport using c for the byte stream. cs may be
// nil when the SPI port drives chip select itself.
func NewSPITransport(c conn.Conn, dc, cs, rst gpio.PinOut, busy gpio.PinIn) *SPITransport {
	maxTxSize := 0
	if limits, ok := c.(conn.Limits); ok {
		maxTxSize = limits.MaxTxSize()
	}
	if maxTxSize == 0 {
		maxTxSize = defaultMaxTxSize
	}
	return &SPITransport{
		c:            c,
		dc:           dc,
		cs:           cs,
		rst:          rst,
		busy:         busy,
		maxTxSize:    maxTxSize,
		pollInterval: 10 * time.Millisecond,
	}
}

// pinHandler latches the first error of a multi-step pin and bus sequence.
type pinHandler struct {
	t   *SPITransport
	err error
}

func (ph *pinHandler) out(p gpio.PinOut, l gpio.Level) {
	if ph.err != nil || p == nil {
		return
	}
	if err := p.Out(l); err != nil {
		ph.err = fmt.Errorf("epd: %s.Out(%s): %w", p, l, err)
	}
}

func (ph *pinHandler) tx(w, r []byte) {
	if ph.err != nil {
		return
	}
	if err := ph.t.c.Tx(w, r); err != nil {
		ph.err = fmt.Errorf("epd: spi transfer: %w", err)
	}
}

// Reset implements Transport.
func (t *SPITransport) Reset(level gpio.Level, d time.Duration) error {
	ph := pinHandler{t: t}

	ph.out(t.rst, level)
	time.Sleep(d)
	ph.out(t.rst, !level)
	time.Sleep(d)
	ph.out(t.rst, level)
	time.Sleep(d)

	return ph.err
}

// WriteCommand implements Transport.
func (t *SPITransport) WriteCommand(c byte) error {
	ph := pinHandler{t: t}

	ph.out(t.dc, gpio.Low)
	ph.out(t.cs, gpio.Low)
	ph.tx([]byte{c}, nil)
	ph.out(t.cs, gpio.High)

	return ph.err
}

// WriteData implements Transport. Payloads larger than the connection's
// transfer limit are split.
func (t *SPITransport) WriteData(p []byte) error {
	if len(p) == 0 {
		return nil
	}

	ph := pinHandler{t: t}

	ph.out(t.dc, gpio.High)
	ph.out(t.cs, gpio.Low)
	for len(p) > 0 {
		n := len(p)
		if n > t.maxTxSize {
			n = t.maxTxSize
		}
		ph.tx(p[:n], nil)
		p = p[n:]
	}
	ph.out(t.cs, gpio.High)

	return ph.err
}

// ReadData implements Transport.
func (t *SPITransport) ReadData() (byte, error) {
	ph := pinHandler{t: t}
	r := make([]byte, 1)

	ph.out(t.dc, gpio.High)
	ph.out(t.cs, gpio.Low)
	ph.tx(nil, r)
	ph.out(t.cs, gpio.High)

	return r[0], ph.err
}

// WaitUntilIdle implements Transport by polling the busy pin.
func (t *SPITransport) WaitUntilIdle(busy gpio.Level, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for t.busy.Read() == busy {
		if !time.Now().Before(deadline) {
			return false, nil
		}
		time.Sleep(t.pollInterval)
	}
	return true, nil
}

// Delay implements Transport.
func (t *SPITransport) Delay(d time.Duration) {
	time.Sleep(d)
}

func (t *SPITransport) String() string {
	return fmt.Sprintf("%s, %s", t.c, t.dc)
}

var _ Transport = &SPITransport{}
