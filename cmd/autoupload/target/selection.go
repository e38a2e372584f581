// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package target

import (
	"fmt"
	"strconv"
)

type Transport string

const (
	TransportSerial Transport = "serial"
	TransportOTA    Transport = "ota"
)

const (
	ProtocolEsptool = "esptool"
	ProtocolEspota  = "espota"
)

// Build configuration keys written by Apply.
const (
	KeyUploadProtocol = "UPLOAD_PROTOCOL"
	KeyUploadPort     = "UPLOAD_PORT"
	KeyUploadSpeed    = "UPLOAD_SPEED"
	KeyUploadFlags    = "UPLOAD_FLAGS"
)

const (
	FlagAuth = "--auth"
	FlagPort = "--port"
)

// Selection is the upload transport chosen for one build. Port is the serial
// device path, or the network host for OTA.
type Selection struct {
	Transport Transport `mapstructure:"transport" yaml:"transport" json:"transport"`
	Protocol  string    `mapstructure:"protocol" yaml:"protocol" json:"protocol"`
	Port      string    `mapstructure:"port" yaml:"port" json:"port"`
	Speed     uint      `mapstructure:"speed" yaml:"speed,omitempty" json:"speed,omitempty"`
	Flags     []string  `mapstructure:"flags" yaml:"flags,omitempty" json:"flags,omitempty"`
}

// Select decides how to upload. A serial device found by FindSerialPort
// always wins; otherwise the firmware goes over the air to the configured
// host.
func Select(devices []Device, sources ...OptionSource) Selection {
	if port, ok := FindSerialPort(devices); ok {
		return Selection{
			Transport: TransportSerial,
			Protocol:  ProtocolEsptool,
			Port:      port,
			Speed:     lookupUint(OptionUploadSpeed, 32, sources),
		}
	}

	res := Selection{
		Transport: TransportOTA,
		Protocol:  ProtocolEspota,
		Port:      ResolveOption(OptionOTAHost, DefaultOTAHost, sources...),
	}
	if auth, ok := LookupOption(OptionOTAAuth, sources...); ok {
		res.Flags = append(res.Flags, FlagAuth, auth)
	}
	if port := lookupUint(OptionOTAPort, 16, sources); port != 0 {
		res.Flags = append(res.Flags, FlagPort, strconv.FormatUint(uint64(port), 10))
	}
	return res
}

// lookupUint treats malformed numbers like missing options.
func lookupUint(name string, bits int, sources []OptionSource) uint {
	v, ok := LookupOption(name, sources...)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, bits)
	if err != nil {
		return 0
	}
	return uint(n)
}

// Apply writes the selection into the build configuration.
func (s Selection) Apply(cfg *BuildConfig) {
	cfg.Replace(KeyUploadProtocol, s.Protocol)
	cfg.Replace(KeyUploadPort, s.Port)
	if s.Speed != 0 {
		cfg.Replace(KeyUploadSpeed, strconv.FormatUint(uint64(s.Speed), 10))
	}
	if len(s.Flags) > 0 {
		cfg.Append(KeyUploadFlags, s.Flags...)
	}
}

// Status is the line printed to the build log.
func (s Selection) Status() string {
	if s.Transport == TransportSerial {
		return fmt.Sprintf("[auto_uploader] Serial port detected: %s -> %s (serial)", s.Port, s.Protocol)
	}
	return fmt.Sprintf("[auto_uploader] No serial port -> OTA (%s) to %s", s.Protocol, s.Port)
}

// BuildConfig is the key/value store of the build tool. Keys keep the order
// they were first written in.
type BuildConfig struct {
	keys   []string
	values map[string][]string
	lists  map[string]bool
}

func NewBuildConfig() *BuildConfig {
	return &BuildConfig{
		values: map[string][]string{},
		lists:  map[string]bool{},
	}
}

func (c *BuildConfig) touch(key string) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
}

// Replace sets key to a single value, dropping what was there.
func (c *BuildConfig) Replace(key string, value string) {
	c.touch(key)
	c.values[key] = []string{value}
	c.lists[key] = false
}

// Append adds values to the list stored under key.
func (c *BuildConfig) Append(key string, values ...string) {
	c.touch(key)
	c.values[key] = append(c.values[key], values...)
	c.lists[key] = true
}

func (c *BuildConfig) Get(key string) string {
	vs := c.values[key]
	if len(vs) == 0 {
		return ""
	}
	return vs[len(vs)-1]
}

func (c *BuildConfig) GetList(key string) []string {
	return append([]string(nil), c.values[key]...)
}

func (c *BuildConfig) IsList(key string) bool {
	return c.lists[key]
}

func (c *BuildConfig) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Map returns the configuration with list keys as slices and all other keys
// as plain strings.
func (c *BuildConfig) Map() map[string]interface{} {
	res := make(map[string]interface{}, len(c.keys))
	for _, k := range c.keys {
		if c.lists[k] {
			res[k] = c.GetList(k)
		} else {
			res[k] = c.Get(k)
		}
	}
	return res
}
