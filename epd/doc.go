// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epd contains the parts of an e-paper driver that are shared between
// controller families: the byte transport, an ordered command sequencer, the
// partial-window addressing and the packed image transfer.
//
// A controller family (see waveshare4in37g) supplies its command codes through
// a Layout and its own power and refresh choreography, and publishes itself as
// a Descriptor. Callers that manage several panel types build a Registry from
// the descriptors they support and open models through it.
//
// Pixel buffers are packed row-major, PixelsPerByte horizontal pixels per byte
// with the left-most pixel in the most significant bits. The driver only reads
// a buffer for the duration of a call.
package epd
