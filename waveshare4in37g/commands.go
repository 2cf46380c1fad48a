// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare4in37g

import "time"

// Commands
const (
	panelSetting           byte = 0x00
	powerSetting           byte = 0x01
	powerOffCmd            byte = 0x02
	powerOffSequence       byte = 0x03
	powerOnCmd             byte = 0x04
	boosterSoftStart1      byte = 0x05
	boosterSoftStart2      byte = 0x06
	deepSleep              byte = 0x07
	boosterSoftStart3      byte = 0x08
	dataStartTransmission  byte = 0x10
	displayRefresh         byte = 0x12
	pllControl             byte = 0x30
	temperatureSensor      byte = 0x40
	vcomDataInterval       byte = 0x50
	tconSetting            byte = 0x60
	resolutionSetting      byte = 0x61
	partialWindow          byte = 0x83
	commandHeader          byte = 0xAA
	cascadeSetting         byte = 0xE0
	powerSaving            byte = 0xE3
	forceTemperatureSelect byte = 0xE5
)

const (
	// deepSleepCheck must follow deepSleep or the command is ignored.
	deepSleepCheck byte = 0xA5
	// cascadeTemperatureOverride makes the controller use the value written
	// with forceTemperatureSelect.
	cascadeTemperatureOverride byte = 0x02
	// partialWindowScan limits RAM writes to the window.
	partialWindowScan byte = 0x01
)

const (
	resetPulse     = 20 * time.Millisecond
	busyTimeout    = 100 * time.Millisecond
	refreshSettle  = 100 * time.Millisecond
	refreshTimeout = 30 * time.Second
)

// pixelsPerByte is the number of 2-bit pixels in a byte.
const pixelsPerByte = 4
