// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epdtest implements a recording epd.Transport for tests.
package epdtest

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Record is one command byte and the data bytes written after it.
type Record struct {
	Cmd  byte
	Data []byte
}

// Transport records everything written to it.
type Transport struct {
	// Records holds the command stream in order.
	Records []Record
	// Waits and Delays hold the requested durations in order.
	Waits  []time.Duration
	Delays []time.Duration
	Resets int
	// Calls counts every method invocation.
	Calls int

	// Reads is consumed by ReadData; 0 is returned once it is empty.
	Reads []byte
	// StayBusy makes every WaitUntilIdle time out.
	StayBusy bool
	// Err, if set, is returned by every write.
	Err error
}

// Reset implements epd.Transport.
func (t *Transport) Reset(gpio.Level, time.Duration) error {
	t.Calls++
	t.Resets++
	return t.Err
}

// WriteCommand implements epd.Transport.
func (t *Transport) WriteCommand(c byte) error {
	t.Calls++
	if t.Err != nil {
		return t.Err
	}
	t.Records = append(t.Records, Record{Cmd: c})
	return nil
}

// WriteData implements epd.Transport.
func (t *Transport) WriteData(p []byte) error {
	t.Calls++
	if t.Err != nil {
		return t.Err
	}
	if len(t.Records) == 0 {
		return errors.New("epdtest: data written before any command")
	}
	cur := &t.Records[len(t.Records)-1]
	cur.Data = append(cur.Data, p...)
	return nil
}

// ReadData implements epd.Transport.
func (t *Transport) ReadData() (byte, error) {
	t.Calls++
	if len(t.Reads) == 0 {
		return 0, nil
	}
	b := t.Reads[0]
	t.Reads = t.Reads[1:]
	return b, nil
}

// WaitUntilIdle implements epd.Transport.
func (t *Transport) WaitUntilIdle(_ gpio.Level, timeout time.Duration) (bool, error) {
	t.Calls++
	t.Waits = append(t.Waits, timeout)
	return !t.StayBusy, nil
}

// Delay implements epd.Transport.
func (t *Transport) Delay(d time.Duration) {
	t.Calls++
	t.Delays = append(t.Delays, d)
}

// Commands returns the command bytes of Records in order.
func (t *Transport) Commands() []byte {
	var out []byte
	for _, r := range t.Records {
		out = append(out, r.Cmd)
	}
	return out
}
