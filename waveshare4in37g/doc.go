// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package waveshare4in37g controls the Waveshare 4.37 inch (G) e-paper
// display, a 512×368 panel showing black, white, yellow and red.
//
// Pixels are stored with 2 bits each, four pixels per byte, in a single
// plane. Every refresh powers the panel on and off again; a refresh takes
// around 20 seconds at room temperature.
//
// Product page:
//
// https://www.waveshare.com/wiki/4.37inch_e-Paper_Module_(G)_Manual
package waveshare4in37g
