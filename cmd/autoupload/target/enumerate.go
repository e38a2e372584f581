// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package target

import (
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Enumerate lists the serial devices currently attached to the host.
// It's a variable so tests can replace the operating system.
var Enumerate = func() ([]Device, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return enumerateNames(err)
	}

	var res []Device
	for _, p := range ports {
		if p == nil {
			continue
		}
		res = append(res, fromPortDetails(p))
	}
	return res, nil
}

var portNames = serial.GetPortsList

// enumerateNames is used on hosts where the detailed enumeration isn't
// supported. The devices then only carry their path.
func enumerateNames(detailedErr error) ([]Device, error) {
	names, err := portNames()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w (detailed: %v)", err, detailedErr)
	}
	res := make([]Device, 0, len(names))
	for _, name := range names {
		res = append(res, Device{Name: name})
	}
	return res, nil
}

func fromPortDetails(p *enumerator.PortDetails) Device {
	d := Device{
		Name:         p.Name,
		IsUSB:        p.IsUSB,
		SerialNumber: p.SerialNumber,
		Description:  p.Product,
	}
	if p.IsUSB {
		d.VID = parseUSBID(p.VID)
		d.PID = parseUSBID(p.PID)
		d.Manufacturer = usbManufacturer(p.Name)
	}
	return d
}

// parseUSBID parses the hexadecimal id reported by the enumerator.
// Malformed ids are returned as 0, which means absent.
func parseUSBID(s string) uint16 {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}
