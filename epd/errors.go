// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBusyTimeout is matched by errors.Is for every *TimeoutError.
	ErrBusyTimeout = errors.New("epd: busy line did not deassert in time")

	// ErrAsleep is returned for panel operations issued after Sleep and before
	// the next Init.
	ErrAsleep = errors.New("epd: controller is in deep sleep, call Init first")

	// ErrShortBuffer is returned when a plane buffer is smaller than the
	// byte-aligned rectangle it is supposed to describe.
	ErrShortBuffer = errors.New("epd: plane buffer too small for rectangle")
)

// TimeoutError reports a busy wait that exceeded its budget. It is only
// surfaced when the sequencer runs in strict mode.
type TimeoutError struct {
	// Op is the name of the step that was waiting, e.g. "power on".
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("epd: %s: busy after %v", e.Op, e.Timeout)
}

// Is reports whether target is ErrBusyTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrBusyTimeout
}
