// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package target

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func Test_parseUSBID(t *testing.T) {
	tests := []struct {
		in  string
		out uint16
	}{
		{in: "10C4", out: 0x10C4},
		{in: "ea60", out: 0xEA60},
		{in: "0x0403", out: 0x0403},
		{in: " 303a ", out: 0x303A},
		{in: ""},
		{in: "zz"},
		{in: "12345"},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			assert.Equal(t, test.out, parseUSBID(test.in))
		})
	}
}

func Test_fromPortDetails(t *testing.T) {
	d := fromPortDetails(&enumerator.PortDetails{
		Name:         "COM5",
		IsUSB:        true,
		VID:          "1A86",
		PID:          "7523",
		SerialNumber: "5&1b3",
		Product:      "USB-SERIAL CH340 (COM5)",
	})
	assert.Equal(t, "COM5", d.Name)
	assert.True(t, d.IsUSB)
	assert.Equal(t, uint16(0x1A86), d.VID)
	assert.Equal(t, uint16(0x7523), d.PID)
	assert.Equal(t, "USB-SERIAL CH340 (COM5)", d.Description)
	assert.Equal(t, MatchExact, Classify(d))

	// Ids of non-USB ports are never trusted.
	d = fromPortDetails(&enumerator.PortDetails{Name: "/dev/ttyS0", VID: "10C4", PID: "EA60"})
	assert.False(t, d.HasUSBID())
}

func Test_enumerateNames(t *testing.T) {
	old := portNames
	t.Cleanup(func() { portNames = old })

	detailedErr := errors.New("detailed listing unsupported")

	portNames = func() ([]string, error) {
		return []string{"/dev/ttyUSB0", "/dev/ttyS0"}, nil
	}
	devices, err := enumerateNames(detailedErr)
	require.NoError(t, err)
	assert.Equal(t, []Device{{Name: "/dev/ttyUSB0"}, {Name: "/dev/ttyS0"}}, devices)

	namesErr := errors.New("permission denied")
	portNames = func() ([]string, error) {
		return nil, namesErr
	}
	_, err = enumerateNames(detailedErr)
	require.Error(t, err)
	assert.ErrorIs(t, err, namesErr)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Contains(t, err.Error(), "detailed listing unsupported")
}
