// Copyright (C) 2021 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toitlang/autoupload/cmd/autoupload/target"
)

func PortsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List the serial ports and how they are classified",
		Long: "List the attached serial ports. Ports with a known USB bridge id are\n" +
			"'exact' matches, ports whose description names a USB-serial vendor are\n" +
			"'heuristic' matches. The port 'autoupload select' would use is marked.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return err
			}

			enc, err := parseOutputFlag(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			devices, err := target.Enumerate()
			if err != nil {
				return err
			}

			list := newPortList(devices, all)
			if len(list.Ports) == 0 {
				return fmt.Errorf("no serial ports detected. Have you installed the driver to the ESP32 you have connected?")
			}
			return enc.Encode(list)
		},
	}

	cmd.Flags().Bool("all", false, "if set, will show all available ports")
	cmd.Flags().StringP("output", "o", "short", "output format: short, json or yaml")
	return cmd
}

type portEntry struct {
	target.Device `yaml:",inline"`
	Match         target.Match `yaml:"match" json:"match"`
	Chip          string       `yaml:"chip,omitempty" json:"chip,omitempty"`
	Selected      bool         `yaml:"selected" json:"selected"`
}

func (p portEntry) Short() string {
	var sb strings.Builder
	if p.Selected {
		sb.WriteString("* ")
	} else {
		sb.WriteString("  ")
	}
	sb.WriteString(p.Name)
	sb.WriteString("\t")
	sb.WriteString(string(p.Match))
	if id := p.USBID(); id != "" {
		sb.WriteString("\t" + id)
	}
	if p.Chip != "" {
		sb.WriteString("\t" + p.Chip)
	}
	if desc := strings.TrimSpace(p.Description + " " + p.Manufacturer); desc != "" {
		sb.WriteString("\t" + desc)
	}
	return sb.String()
}

type portList struct {
	Ports []portEntry `yaml:"ports" json:"ports"`
}

func (l portList) Elements() []Short {
	res := make([]Short, len(l.Ports))
	for i, p := range l.Ports {
		res[i] = p
	}
	return res
}

// newPortList classifies the devices. The selection always sees every device;
// the path filter only trims the listing.
func newPortList(devices []target.Device, all bool) portList {
	selected, _ := target.FindSerialPort(devices)

	shown := devices
	if !all {
		shown = filterPorts(devices)
	}

	var res portList
	for _, d := range shown {
		entry := portEntry{
			Device:   d,
			Match:    target.Classify(d),
			Selected: d.Name != "" && d.Name == selected,
		}
		if b, ok := target.LookupBridge(d); ok {
			entry.Chip = b.Chip
		}
		res.Ports = append(res.Ports, entry)
	}
	return res
}

func filterPorts(devices []target.Device) []target.Device {
	switch runtime.GOOS {
	case "darwin":
		return darwinFilterPorts(devices)
	case "linux":
		return linuxFilterPorts(devices)
	default:
		return devices
	}
}

func darwinFilterPorts(devices []target.Device) []target.Device {
	existing := map[string]struct{}{}
	for _, d := range devices {
		existing[d.Name] = struct{}{}
	}
	var res []target.Device
	for _, d := range devices {
		path := d.Name
		if strings.HasPrefix(path, "/dev/cu") && !strings.Contains(path, "Bluetooth") {
			res = append(res, d)
		} else if strings.HasPrefix(path, "/dev/tty") && !strings.Contains(path, "Bluetooth") {
			candidate := "/dev/cu" + strings.TrimPrefix(path, "/dev/tty")
			if _, exists := existing[candidate]; !exists {
				res = append(res, d)
			}
		}
	}
	return res
}

func linuxFilterPorts(devices []target.Device) []target.Device {
	var res []target.Device
	for _, d := range devices {
		if d.IsUSB || (strings.Contains(d.Name, "tty") && (strings.Contains(d.Name, "USB") || strings.Contains(d.Name, "ACM"))) {
			res = append(res, d)
		}
	}
	return res
}
