// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare4in37g

import (
	"bytes"
	"encoding/binary"
	"log/slog"

	"github.com/GermanBionicSystems/epaper/epd"
)

type command struct {
	cmd  byte
	data []byte
}

// initSequence returns the vendor configuration, sent after a hardware reset.
func initSequence(opts *Opts) []command {
	res := make([]byte, 4)
	binary.BigEndian.PutUint16(res[0:], uint16(opts.Width))
	binary.BigEndian.PutUint16(res[2:], uint16(opts.Height))

	return []command{
		{commandHeader, []byte{0x49, 0x55, 0x20, 0x08, 0x09, 0x18}},
		{powerSetting, []byte{0x3F}},
		{panelSetting, []byte{0x4F, 0x69}},
		{boosterSoftStart1, []byte{0x40, 0x1F, 0x1F, 0x2C}},
		{boosterSoftStart3, []byte{0x6F, 0x1F, 0x1F, 0x22}},
		{boosterSoftStart2, []byte{0x6F, 0x1F, 0x17, 0x17}},
		{powerOffSequence, []byte{0x00, 0x54, 0x00, 0x44}},
		{vcomDataInterval, []byte{0x3F}},
		{tconSetting, []byte{0x02, 0x00}},
		// Required by version 2 of the controller.
		{pllControl, []byte{0x08}},
		{resolutionSetting, res},
		{powerSaving, []byte{0x2F}},
		// Undocumented command used in vendor example code.
		{0x84, []byte{0x01}},
	}
}

func initDisplay(ctrl epd.Controller, opts *Opts) {
	for _, c := range initSequence(opts) {
		ctrl.SendCommand(c.cmd)
		ctrl.SendData(c.data)
	}
}

func powerOn(ctrl epd.Controller) {
	ctrl.SendCommand(powerOnCmd)
	ctrl.WaitUntilIdle("power on", busyTimeout)
}

func powerOff(ctrl epd.Controller) {
	ctrl.SendCommand(powerOffCmd)
	ctrl.SendByte(0x00)
	ctrl.WaitUntilIdle("power off", busyTimeout)
}

func readTemperature(ctrl epd.Controller) int8 {
	ctrl.SendCommand(temperatureSensor)
	ctrl.WaitUntilIdle("read temperature", busyTimeout)
	return int8(ctrl.ReadData())
}

// forceTemperature switches the controller to the waveform table of the given
// temperature. Reading the sensor afterwards still reports the measured value.
func forceTemperature(ctrl epd.Controller, celsius int8) {
	ctrl.SendCommand(cascadeSetting)
	ctrl.SendByte(cascadeTemperatureOverride)
	ctrl.SendCommand(forceTemperatureSelect)
	ctrl.SendByte(byte(celsius))
}

// refresh transfers the RAM content to the panel. The panel is powered on for
// the update and off again afterwards.
func refresh(ctrl epd.Controller, log *slog.Logger) {
	log.Debug("refresh begin")
	powerOn(ctrl)
	log.Debug("panel temperature", "celsius", readTemperature(ctrl))

	ctrl.SendCommand(displayRefresh)
	ctrl.SendByte(0x00)
	ctrl.Delay(refreshSettle)
	ctrl.WaitUntilIdle("refresh", refreshTimeout)

	powerOff(ctrl)
	log.Debug("refresh end")
}

// fillRAM writes color to every pixel of the panel.
func fillRAM(ctrl epd.Controller, color Color, opts *Opts) {
	v := byte(color & 0x03)
	row := bytes.Repeat([]byte{v<<6 | v<<4 | v<<2 | v}, (opts.Width+pixelsPerByte-1)/pixelsPerByte)

	ctrl.SendCommand(dataStartTransmission)
	for y := 0; y < opts.Height; y++ {
		ctrl.SendData(row)
	}
}

// clearSequence removes ghosting by driving every pixel through all colors,
// ending on white.
var clearSequence = [...]Color{White, Black, Yellow, Red, White}

func clearDisplay(ctrl epd.Controller, opts *Opts, log *slog.Logger) {
	for _, c := range clearSequence {
		powerOn(ctrl)
		fillRAM(ctrl, c, opts)
		refresh(ctrl, log)
	}
}

func sleep(ctrl epd.Controller) {
	powerOff(ctrl)
	ctrl.SendCommand(deepSleep)
	ctrl.SendByte(deepSleepCheck)
}
