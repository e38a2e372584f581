// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package target

import (
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

const (
	OptionOTAHost     = "custom_ota_host"
	OptionOTAAuth     = "custom_ota_auth"
	OptionOTAPort     = "custom_ota_port"
	OptionUploadSpeed = "custom_upload_speed"

	DefaultOTAHost = "ph-remote.local"
)

// OptionSource is one place a build option can come from.
type OptionSource interface {
	Lookup(name string) (string, bool)
}

// ResolveOption returns the value of the first source that has the option,
// or def if none has it. Empty values count as absent.
func ResolveOption(name string, def string, sources ...OptionSource) string {
	if v, ok := LookupOption(name, sources...); ok {
		return v
	}
	return def
}

// LookupOption is ResolveOption for options without a default.
func LookupOption(name string, sources ...OptionSource) (string, bool) {
	for _, s := range sources {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// BuildOptions are the options handed to us directly by the build tool.
type BuildOptions map[string]string

func (o BuildOptions) Lookup(name string) (string, bool) {
	v := strings.TrimSpace(o[name])
	return v, v != ""
}

// ProjectSection looks options up in the project configuration, starting in
// the section of the active build environment. Like the build tool, it then
// follows the environment's 'extends' list and ends in the shared [env]
// section.
type ProjectSection struct {
	cfg *ini.File
	env string
}

// NewProjectSection returns a source for the given environment. A nil config
// (no or unreadable project file) never has any option.
func NewProjectSection(cfg *ini.File, env string) *ProjectSection {
	return &ProjectSection{
		cfg: cfg,
		env: env,
	}
}

const (
	envSection = "env"
	extendsKey = "extends"
	envPrefix  = "env:"
)

func (p *ProjectSection) Lookup(name string) (string, bool) {
	if p == nil || p.cfg == nil {
		return "", false
	}
	var sections []string
	if p.env != "" {
		sections = p.chain(sectionName(p.env), map[string]bool{})
	}
	sections = append(sections, envSection)

	for _, section := range sections {
		if v, ok := p.get(section, name); ok {
			return v, true
		}
	}
	return "", false
}

// chain returns the section followed by everything it extends, depth first.
func (p *ProjectSection) chain(section string, seen map[string]bool) []string {
	if seen[section] || section == envSection {
		return nil
	}
	seen[section] = true
	res := []string{section}
	extends, ok := p.get(section, extendsKey)
	if !ok {
		return res
	}
	for _, parent := range strings.Split(extends, ",") {
		parent = strings.TrimSpace(parent)
		if parent == "" {
			continue
		}
		res = append(res, p.chain(sectionName(parent), seen)...)
	}
	return res
}

// get only looks at the keys of the section itself. Sections with dots in
// their name are not children of each other.
func (p *ProjectSection) get(section string, name string) (string, bool) {
	sec, err := p.cfg.GetSection(section)
	if err != nil {
		return "", false
	}
	raw, ok := sec.KeysHash()[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	v := strings.TrimSpace(raw)
	return v, v != ""
}

func sectionName(env string) string {
	if env == envSection || strings.HasPrefix(env, envPrefix) {
		return env
	}
	return envPrefix + env
}

// userDefaultKeys maps build options to their keys in the user config.
var userDefaultKeys = map[string]string{
	OptionOTAHost:     "ota.host",
	OptionOTAAuth:     "ota.auth",
	OptionOTAPort:     "ota.port",
	OptionUploadSpeed: "upload.speed",
}

// UserDefaultKey returns the user config key backing a build option.
func UserDefaultKey(option string) (string, bool) {
	k, ok := userDefaultKeys[option]
	return k, ok
}

// UserDefaults are the per-user fallbacks stored with 'autoupload config'.
type UserDefaults struct {
	cfg *viper.Viper
}

func NewUserDefaults(cfg *viper.Viper) *UserDefaults {
	return &UserDefaults{cfg: cfg}
}

func (u *UserDefaults) Lookup(name string) (string, bool) {
	if u == nil || u.cfg == nil {
		return "", false
	}
	key, ok := userDefaultKeys[name]
	if !ok || !u.cfg.IsSet(key) {
		return "", false
	}
	v := strings.TrimSpace(u.cfg.GetString(key))
	return v, v != ""
}
