// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package target

import (
	"fmt"
	"strings"
)

// Device describes one serial device as reported by the operating system at
// the time of the enumeration.
type Device struct {
	Name         string `mapstructure:"name" yaml:"name" json:"name"`
	IsUSB        bool   `mapstructure:"usb" yaml:"usb" json:"usb"`
	VID          uint16 `mapstructure:"vid" yaml:"vid" json:"vid"`
	PID          uint16 `mapstructure:"pid" yaml:"pid" json:"pid"`
	SerialNumber string `mapstructure:"serialNumber" yaml:"serialNumber,omitempty" json:"serialNumber,omitempty"`
	Description  string `mapstructure:"description" yaml:"description,omitempty" json:"description,omitempty"`
	Manufacturer string `mapstructure:"manufacturer" yaml:"manufacturer,omitempty" json:"manufacturer,omitempty"`
}

// HasUSBID reports whether both the vendor and the product id are known.
// A zero id counts as missing.
func (d Device) HasUSBID() bool {
	return d.VID != 0 && d.PID != 0
}

func (d Device) USBID() string {
	if !d.HasUSBID() {
		return ""
	}
	return fmt.Sprintf("%04X:%04X", d.VID, d.PID)
}

func (d Device) String() string {
	if id := d.USBID(); id != "" {
		return fmt.Sprintf("%s (usb: %s)", d.Name, id)
	}
	return d.Name
}

// Bridge is a USB-to-serial bridge chip, identified by its vendor and product id.
type Bridge struct {
	VID  uint16
	PID  uint16
	Chip string
}

// KnownBridges lists the bridge chips found on the boards we flash.
var KnownBridges = []Bridge{
	{VID: 0x10C4, PID: 0xEA60, Chip: "CP210x"},
	{VID: 0x1A86, PID: 0x7523, Chip: "CH340"},
	{VID: 0x0403, PID: 0x6001, Chip: "FTDI"},
	{VID: 0x303A, PID: 0x1001, Chip: "ESP32-Sx USB-JTAG/Serial"},
}

// markers are searched for in the free-text description and manufacturer
// of devices without a known USB id.
var markers = []string{"USB", "Silicon Labs", "FTDI", "wch.cn", "CP210", "CH340"}

// LookupBridge returns the known bridge chip of the device, if any.
func LookupBridge(d Device) (Bridge, bool) {
	if !d.HasUSBID() {
		return Bridge{}, false
	}
	for _, b := range KnownBridges {
		if b.VID == d.VID && b.PID == d.PID {
			return b, true
		}
	}
	return Bridge{}, false
}

func hasMarker(d Device) bool {
	text := d.Description + " " + d.Manufacturer
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

type Match string

const (
	MatchExact     Match = "exact"
	MatchHeuristic Match = "heuristic"
	MatchNone      Match = "none"
)

// Classify tells how FindSerialPort would consider the device on its own.
func Classify(d Device) Match {
	if _, ok := LookupBridge(d); ok {
		return MatchExact
	}
	if hasMarker(d) {
		return MatchHeuristic
	}
	return MatchNone
}

// FindSerialPort picks the serial port to flash over.
//
// The first device with a known bridge id wins and ends the scan. Otherwise
// the first device whose description or manufacturer carries one of the
// markers is used. A heuristic match never ends the scan, so a later exact
// match still takes precedence.
func FindSerialPort(devices []Device) (string, bool) {
	preferred, fallback := "", ""
	for _, d := range devices {
		if _, ok := LookupBridge(d); ok {
			preferred = d.Name
			break
		}
		if fallback == "" && hasMarker(d) {
			fallback = d.Name
		}
	}
	if preferred != "" {
		return preferred, true
	}
	if fallback != "" {
		return fallback, true
	}
	return "", false
}
