// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"io"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Controller is the ordered command stream shared by all families. Command
// bytes must precede their data bytes; nothing is buffered or reordered.
type Controller interface {
	SendCommand(c byte)
	SendByte(b byte)
	SendData(p []byte)
	ReadData() byte
	// WaitUntilIdle waits for the busy line; op names the step for logs and
	// errors.
	WaitUntilIdle(op string, timeout time.Duration)
	Delay(d time.Duration)
}

// Opts configures the behaviour shared by every family.
type Opts struct {
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
	// Strict turns busy timeouts into a *TimeoutError that aborts the rest of
	// the operation. By default a timeout is logged and the sequence goes on.
	Strict bool
}

// Sequencer forwards a Controller stream to a Transport. The first error is
// latched: every later call is a no-op and Err returns it.
type Sequencer struct {
	t      Transport
	busy   gpio.Level
	log    *slog.Logger
	strict bool
	err    error
}

// NewSequencer returns a Sequencer writing to t. busy is the level of the busy
// line while the controller is working.
func NewSequencer(t Transport, busy gpio.Level, opts *Opts) *Sequencer {
	s := &Sequencer{t: t, busy: busy}
	if opts != nil {
		s.log = opts.Logger
		s.strict = opts.Strict
	}
	if s.log == nil {
		s.log = discardLogger()
	}
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Err returns the first error encountered.
func (s *Sequencer) Err() error {
	return s.err
}

// Logger returns the logger diagnostics should go to.
func (s *Sequencer) Logger() *slog.Logger {
	return s.log
}

// SendCommand implements Controller.
func (s *Sequencer) SendCommand(c byte) {
	if s.err != nil {
		return
	}
	s.err = s.t.WriteCommand(c)
}

// SendByte implements Controller.
func (s *Sequencer) SendByte(b byte) {
	s.SendData([]byte{b})
}

// SendData implements Controller.
func (s *Sequencer) SendData(p []byte) {
	if s.err != nil {
		return
	}
	s.err = s.t.WriteData(p)
}

// ReadData implements Controller. It returns 0 once an error is latched.
func (s *Sequencer) ReadData() byte {
	if s.err != nil {
		return 0
	}
	b, err := s.t.ReadData()
	if err != nil {
		s.err = err
		return 0
	}
	return b
}

// WaitUntilIdle implements Controller.
func (s *Sequencer) WaitUntilIdle(op string, timeout time.Duration) {
	if s.err != nil {
		return
	}
	ready, err := s.t.WaitUntilIdle(s.busy, timeout)
	if err != nil {
		s.err = err
		return
	}
	if ready {
		return
	}
	if s.strict {
		s.err = &TimeoutError{Op: op, Timeout: timeout}
		return
	}
	s.log.Warn("busy timeout, continuing", "op", op, "timeout", timeout)
}

// Delay implements Controller.
func (s *Sequencer) Delay(d time.Duration) {
	if s.err != nil {
		return
	}
	s.t.Delay(d)
}

var _ Controller = &Sequencer{}
