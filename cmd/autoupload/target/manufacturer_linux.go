// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

//go:build linux

package target

import (
	"os"
	"path/filepath"
	"strings"
)

const sysClassTTY = "/sys/class/tty"

// usbManufacturer reads the manufacturer string of the USB device behind the
// given tty. The interface directory sits one level below the USB device.
func usbManufacturer(port string) string {
	device, err := filepath.EvalSymlinks(filepath.Join(sysClassTTY, filepath.Base(port), "device"))
	if err != nil {
		return ""
	}
	for dir := device; dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		b, err := os.ReadFile(filepath.Join(dir, "manufacturer"))
		if err == nil {
			return strings.TrimSpace(string(b))
		}
		if _, err := os.Stat(filepath.Join(dir, "idVendor")); err == nil {
			// Reached the USB device without finding a manufacturer.
			return ""
		}
	}
	return ""
}
