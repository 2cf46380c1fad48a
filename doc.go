// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epaper is a container for e-paper panel drivers.
//
// Package epd holds what all controller families share: the transport,
// window addressing and clipped image transfer. Each family lives in its own
// package, starting with waveshare4in37g. virtualpanel emulates a panel in the
// terminal.
package epaper
