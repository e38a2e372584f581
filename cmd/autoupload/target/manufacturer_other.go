// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

//go:build !linux

package target

// The serial enumerator doesn't report manufacturers outside Linux.
func usbManufacturer(port string) string {
	return ""
}
