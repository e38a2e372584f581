// Copyright (C) 2021 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package directory

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

const (
	// UserConfigPathEnv if set, will load the user config from that path.
	UserConfigPathEnv = "AUTOUPLOAD_USER_CONFIG_PATH"

	// BuildEnvEnv is the name of the active build environment, as exported
	// by the build tool to its hooks.
	BuildEnvEnv = "PIOENV"
	// ProjectDirEnv is the project root, as exported by the build tool.
	ProjectDirEnv = "PROJECT_DIR"
	// ProjectConfigEnv if set, overrides the project configuration file.
	ProjectConfigEnv = "PLATFORMIO_PROJECT_CONFIG"

	ProjectConfigFile = "platformio.ini"
)

func GetUserConfigPath() (string, error) {
	if path, ok := os.LookupEnv(UserConfigPathEnv); ok {
		return path, nil
	}

	homedir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homedir, ".config", "autoupload", "config.yaml"), nil
}

func GetUserConfig() (*viper.Viper, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config path: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigType("yaml")
	cfg.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := cfg.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read user config: %w", err)
		}
	}
	return cfg, nil
}

// GetBuildEnv returns the build environment named by the build tool, or ""
// when not run from a build.
func GetBuildEnv() string {
	return os.Getenv(BuildEnvEnv)
}

// GetProjectDir returns the project root: the build tool's PROJECT_DIR, or
// the working directory.
func GetProjectDir() (string, error) {
	if dir, ok := os.LookupEnv(ProjectDirEnv); ok && dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// GetProjectConfigPath returns the project configuration file inside dir,
// unless PLATFORMIO_PROJECT_CONFIG points elsewhere.
func GetProjectConfigPath(dir string) string {
	if path, ok := os.LookupEnv(ProjectConfigEnv); ok && path != "" {
		return path
	}
	return filepath.Join(dir, ProjectConfigFile)
}

// projectConfigOptions parse the project file the way the build tool does:
// indented lines continue the previous value (lib_deps, build_flags), inline
// comments need a space before them, and option names are case insensitive.
var projectConfigOptions = ini.LoadOptions{
	AllowPythonMultilineValues: true,
	SpaceBeforeInlineComment:   true,
	InsensitiveKeys:            true,
}

// GetProjectConfig reads the ini-style project configuration at path.
func GetProjectConfig(path string) (*ini.File, error) {
	if stat, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to find project config: %w", err)
	} else if stat.IsDir() {
		return nil, fmt.Errorf("the project config '%s' is a directory", path)
	}

	cfg, err := ParseProjectConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project config '%s': %w", path, err)
	}
	return cfg, nil
}

// ParseProjectConfig parses a project configuration from a file name or the
// raw bytes of one.
func ParseProjectConfig(source interface{}) (*ini.File, error) {
	return ini.LoadSources(projectConfigOptions, source)
}

func WriteConfig(cfg *viper.Viper) error {
	file := cfg.ConfigFileUsed()
	dir := filepath.Dir(file)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmpFile := filepath.Join(filepath.Dir(file), ".config.tmp.yaml")
	if err := cfg.WriteConfigAs(tmpFile); err != nil {
		return err
	}
	defer os.Remove(tmpFile)

	return os.Rename(tmpFile, file)
}

func Executable(str string) string {
	if runtime.GOOS == "windows" {
		return str + ".exe"
	}
	return str
}
