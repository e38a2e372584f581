// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cp2102 = Device{Name: "/dev/ttyUSB0", IsUSB: true, VID: 0x10C4, PID: 0xEA60, Description: "CP2102 USB to UART Bridge Controller"}
	ch340  = Device{Name: "/dev/ttyUSB1", IsUSB: true, VID: 0x1A86, PID: 0x7523}
	esp32s = Device{Name: "/dev/ttyACM0", IsUSB: true, VID: 0x303A, PID: 0x1001}
	// An unknown id, but the manufacturer gives it away.
	wchClone  = Device{Name: "/dev/ttyUSB2", IsUSB: true, VID: 0x1A86, PID: 0x55D4, Manufacturer: "wch.cn"}
	usbSerial = Device{Name: "COM7", Description: "USB Serial Device"}
	onboard   = Device{Name: "/dev/ttyS0", Description: "ttyS0"}
	bluetooth = Device{Name: "/dev/cu.Bluetooth-Incoming-Port"}
)

func Test_FindSerialPort(t *testing.T) {
	tests := []struct {
		name    string
		devices []Device
		port    string
	}{
		{name: "empty"},
		{name: "no candidates", devices: []Device{onboard, bluetooth}},
		{name: "exact", devices: []Device{onboard, cp2102}, port: cp2102.Name},
		{name: "each known bridge", devices: []Device{esp32s}, port: esp32s.Name},
		{name: "first exact wins", devices: []Device{ch340, cp2102}, port: ch340.Name},
		{name: "exact after heuristic", devices: []Device{wchClone, cp2102}, port: cp2102.Name},
		{name: "exact after two heuristics", devices: []Device{usbSerial, wchClone, onboard, esp32s}, port: esp32s.Name},
		{name: "first heuristic wins", devices: []Device{onboard, usbSerial, wchClone}, port: usbSerial.Name},
		{name: "heuristic from manufacturer", devices: []Device{onboard, wchClone}, port: wchClone.Name},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			port, ok := FindSerialPort(test.devices)
			assert.Equal(t, test.port != "", ok)
			assert.Equal(t, test.port, port)
		})
	}
}

func Test_FindSerialPortMissingIDs(t *testing.T) {
	// A product id alone is not a match, even if it's a known one.
	noVendor := Device{Name: "/dev/ttyUSB3", PID: 0xEA60}
	noProduct := Device{Name: "/dev/ttyUSB4", VID: 0x10C4}
	port, ok := FindSerialPort([]Device{noVendor, noProduct})
	assert.False(t, ok)
	assert.Empty(t, port)
}

func Test_FindSerialPortMarkersAreCaseSensitive(t *testing.T) {
	port, ok := FindSerialPort([]Device{{Name: "/dev/ttyS1", Description: "usb-ish"}})
	assert.False(t, ok)
	assert.Empty(t, port)
}

func Test_Classify(t *testing.T) {
	assert.Equal(t, MatchExact, Classify(cp2102))
	assert.Equal(t, MatchHeuristic, Classify(wchClone))
	assert.Equal(t, MatchHeuristic, Classify(usbSerial))
	assert.Equal(t, MatchNone, Classify(onboard))
}

func Test_LookupBridge(t *testing.T) {
	b, ok := LookupBridge(ch340)
	require.True(t, ok)
	assert.Equal(t, "CH340", b.Chip)

	_, ok = LookupBridge(wchClone)
	assert.False(t, ok)
}

func Test_DeviceString(t *testing.T) {
	assert.Equal(t, "/dev/ttyUSB0 (usb: 10C4:EA60)", cp2102.String())
	assert.Equal(t, "COM7", usbSerial.String())
	assert.Empty(t, usbSerial.USBID())
}
