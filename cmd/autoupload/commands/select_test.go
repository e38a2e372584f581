// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toitlang/autoupload/cmd/autoupload/directory"
	"github.com/toitlang/autoupload/cmd/autoupload/target"
)

const testProjectIni = `
; PlatformIO Project Configuration File
[platformio]
default_envs = ph-o2

[env]
framework = arduino
monitor_speed = 115200

[env:ph-o2]
platform = espressif32
board = esp32dev
lib_deps =
    bblanchon/ArduinoJson @ ^6.21.3
    knolleary/PubSubClient
build_flags =
    -DCORE_DEBUG_LEVEL=3
custom_ota_host = ph-o2.local ; office sensor
custom_ota_auth = s3cret

[env:bench]
platform = espressif32
`

// setupTest isolates the user config and the project, and replaces the
// serial enumeration with the given devices.
func setupTest(t *testing.T, devices []target.Device, enumErr error) string {
	dir := t.TempDir()
	t.Setenv(directory.UserConfigPathEnv, filepath.Join(dir, "user", "config.yaml"))
	t.Setenv(directory.ProjectConfigEnv, "")
	t.Setenv(directory.ProjectDirEnv, "")
	t.Setenv(directory.BuildEnvEnv, "")

	project := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(project, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(project, directory.ProjectConfigFile), []byte(testProjectIni), 0644))

	old := target.Enumerate
	target.Enumerate = func() ([]target.Device, error) {
		return devices, enumErr
	}
	t.Cleanup(func() { target.Enumerate = old })
	return project
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := AutoUploadCmd(false)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(SetInfo(context.Background(), Info{Version: "v0.0.1", Date: "today"}))
	return stdout.String(), stderr.String(), err
}

var testBridge = target.Device{Name: "/dev/ttyUSB0", IsUSB: true, VID: 0x10C4, PID: 0xEA60}

func Test_SelectSerial(t *testing.T) {
	project := setupTest(t, []target.Device{{Name: "/dev/ttyS0"}, testBridge}, nil)

	stdout, stderr, err := runCmd(t, "select", "--project-dir", project, "--env", "ph-o2", "--upload-speed", "921600")
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_PROTOCOL=esptool\nUPLOAD_PORT=/dev/ttyUSB0\nUPLOAD_SPEED=921600\n", stdout)
	assert.Contains(t, stderr, "[auto_uploader] Serial port detected: /dev/ttyUSB0 -> esptool (serial)")
}

func Test_SelectOTAFromProject(t *testing.T) {
	project := setupTest(t, nil, nil)

	stdout, stderr, err := runCmd(t, "select", "--project-dir", project, "--env", "ph-o2")
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_PROTOCOL=espota\nUPLOAD_PORT=ph-o2.local\nUPLOAD_FLAGS='--auth s3cret'\n", stdout)
	assert.Contains(t, stderr, "[auto_uploader] No serial port -> OTA (espota) to ph-o2.local")
}

func Test_SelectOTADefaults(t *testing.T) {
	project := setupTest(t, []target.Device{{Name: "/dev/ttyS0"}}, nil)

	stdout, _, err := runCmd(t, "select", "--project-dir", project, "--env", "bench")
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_PROTOCOL=espota\nUPLOAD_PORT=ph-remote.local\n", stdout)
}

func Test_SelectBuildOptionsWin(t *testing.T) {
	project := setupTest(t, nil, nil)

	stdout, _, err := runCmd(t, "select", "--project-dir", project, "--env", "ph-o2",
		"--option", "custom_ota_host=10.0.0.7",
		"--option", "custom_ota_port=3232",
		"-o", "json")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, map[string]interface{}{
		"UPLOAD_PROTOCOL": "espota",
		"UPLOAD_PORT":     "10.0.0.7",
		"UPLOAD_FLAGS":    []interface{}{"--auth", "s3cret", "--port", "3232"},
	}, got)
}

func Test_SelectEnumerationFailure(t *testing.T) {
	project := setupTest(t, nil, errors.New("no permission"))

	stdout, stderr, err := runCmd(t, "select", "--project-dir", project)
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_PROTOCOL=espota\nUPLOAD_PORT=ph-remote.local\n", stdout)
	assert.Contains(t, stderr, "serial enumeration failed")
}

func Test_SelectMissingProject(t *testing.T) {
	setupTest(t, nil, nil)

	stdout, _, err := runCmd(t, "select", "--project-dir", t.TempDir(), "--env", "ph-o2")
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_PROTOCOL=espota\nUPLOAD_PORT=ph-remote.local\n", stdout)
}

func Test_SelectUnreadableProject(t *testing.T) {
	project := setupTest(t, nil, nil)
	require.NoError(t, os.WriteFile(filepath.Join(project, directory.ProjectConfigFile), []byte("[env:ph-o2\ncustom_ota_host = ph-o2.local\n"), 0644))

	stdout, stderr, err := runCmd(t, "select", "--project-dir", project, "--env", "ph-o2")
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_PROTOCOL=espota\nUPLOAD_PORT=ph-remote.local\n", stdout)
	assert.Contains(t, stderr, "project config unreadable")
}

func Test_SelectUserDefaults(t *testing.T) {
	project := setupTest(t, nil, nil)

	_, _, err := runCmd(t, "config", "ota", "set", "--host", "home.local", "--port", "8266")
	require.NoError(t, err)

	stdout, _, err := runCmd(t, "select", "--project-dir", project, "--env", "bench", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "UPLOAD_PROTOCOL: espota\nUPLOAD_PORT: home.local\nUPLOAD_FLAGS:\n- --port\n- \"8266\"\n", stdout)
}

func Test_SelectBadOutput(t *testing.T) {
	project := setupTest(t, nil, nil)

	_, _, err := runCmd(t, "select", "--project-dir", project, "-o", "xml")
	assert.Error(t, err)
}
