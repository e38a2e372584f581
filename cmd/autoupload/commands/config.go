// Copyright (C) 2021 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/toitlang/autoupload/cmd/autoupload/directory"
	"github.com/toitlang/autoupload/cmd/autoupload/target"
)

const (
	OTACfgKey = "ota"
)

type otaDefaults struct {
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Auth string `mapstructure:"auth" yaml:"auth" json:"auth"`
	Port uint   `mapstructure:"port" yaml:"port" json:"port"`
}

func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configure autoupload",
		Long:  "Configure the per-user defaults of the autoupload command line tool.",
	}

	cmd.AddCommand(
		ConfigOTACmd(),
		ConfigToolsCmd(),
	)
	return cmd
}

func ConfigOTACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ota",
		Short: "Configure the default over-the-air upload target",
		Long: `Sets the defaults used for over-the-air uploads.

They are only used when neither the build tool (--option) nor the
project's environment section sets 'custom_ota_host', 'custom_ota_auth'
or 'custom_ota_port'.`,
		Args: cobra.NoArgs,
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Sets the default OTA host, auth token and port",
		Long: `Sets the default OTA host, auth token and port.

Values not given as flags are asked for interactively when running in
a terminal.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			current, err := loadOTADefaults(cfg)
			if err != nil {
				return err
			}

			changed := cmd.Flags().Changed("host") || cmd.Flags().Changed("auth") || cmd.Flags().Changed("port")
			if !changed {
				if !isTerminal() {
					return fmt.Errorf("nothing to set. Use --host, --auth or --port")
				}
				updated, err := promptOTADefaults(current)
				if err != nil {
					return err
				}
				saveOTADefaults(cfg, updated)
				return directory.WriteConfig(cfg)
			}

			if cmd.Flags().Changed("host") {
				if current.Host, err = cmd.Flags().GetString("host"); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("auth") {
				if current.Auth, err = cmd.Flags().GetString("auth"); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("port") {
				if current.Port, err = cmd.Flags().GetUint("port"); err != nil {
					return err
				}
				if current.Port > 65535 {
					return fmt.Errorf("invalid OTA port %d", current.Port)
				}
			}
			saveOTADefaults(cfg, current)
			return directory.WriteConfig(cfg)
		},
	}
	setCmd.Flags().String("host", "", "default OTA host name or address")
	setCmd.Flags().String("auth", "", "default OTA auth token, empty to disable")
	setCmd.Flags().Uint("port", 0, "default OTA port, 0 to use the uploader's")
	cmd.AddCommand(setCmd)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Shows the stored OTA defaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := directory.GetUserConfig()
				if err != nil {
					return err
				}
				defaults, err := loadOTADefaults(cfg)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				host := defaults.Host
				if host == "" {
					host = target.DefaultOTAHost + " (built-in)"
				}
				fmt.Fprintf(w, "Host:\t%s\n", host)
				fmt.Fprintf(w, "Auth:\t%s\n", maskSecret(defaults.Auth))
				if defaults.Port != 0 {
					fmt.Fprintf(w, "Port:\t%d\n", defaults.Port)
				} else {
					fmt.Fprintln(w, "Port:\t(uploader default)")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Deletes the stored OTA defaults",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				cfg, err := directory.GetUserConfig()
				if err != nil {
					return err
				}
				cfg.Set(OTACfgKey, map[string]interface{}{})
				return directory.WriteConfig(cfg)
			},
		},
	)
	return cmd
}

func ConfigToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Configure the uploaders used by 'autoupload upload'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}

			changed := false
			for _, key := range []string{EsptoolToolsCfgKey, EspotaToolsCfgKey, PythonToolsCfgKey} {
				if !cmd.Flags().Changed(key) {
					continue
				}
				v, err := cmd.Flags().GetString(key)
				if err != nil {
					return err
				}
				cfg.Set(ToolsCfgKey+"."+key, v)
				changed = true
			}
			if !changed {
				w := cmd.OutOrStdout()
				for _, key := range []string{EsptoolToolsCfgKey, EspotaToolsCfgKey, PythonToolsCfgKey} {
					v := cfg.GetString(ToolsCfgKey + "." + key)
					if v == "" {
						v = "(default)"
					}
					fmt.Fprintf(w, "%s:\t%s\n", key, v)
				}
				return nil
			}
			return directory.WriteConfig(cfg)
		},
	}
	cmd.Flags().String(EsptoolToolsCfgKey, "", "path to esptool")
	cmd.Flags().String(EspotaToolsCfgKey, "", "path to espota.py")
	cmd.Flags().String(PythonToolsCfgKey, "", "python interpreter for .py uploaders")
	return cmd
}

// loadOTADefaults decodes weakly, so hand-edited configs may store the port
// as a string.
func loadOTADefaults(cfg *viper.Viper) (otaDefaults, error) {
	var res otaDefaults
	if !cfg.IsSet(OTACfgKey) {
		return res, nil
	}
	if err := mapstructure.WeakDecode(cfg.GetStringMap(OTACfgKey), &res); err != nil {
		return res, fmt.Errorf("failed to decode the OTA defaults: %w", err)
	}
	return res, nil
}

func saveOTADefaults(cfg *viper.Viper, defaults otaDefaults) {
	m := map[string]interface{}{}
	if defaults.Host != "" {
		m["host"] = defaults.Host
	}
	if defaults.Auth != "" {
		m["auth"] = defaults.Auth
	}
	if defaults.Port != 0 {
		m["port"] = defaults.Port
	}
	cfg.Set(OTACfgKey, m)
}

func promptOTADefaults(current otaDefaults) (otaDefaults, error) {
	res := current

	hostDefault := current.Host
	if hostDefault == "" {
		hostDefault = target.DefaultOTAHost
	}
	hostPrompt := promptui.Prompt{
		Label:   "OTA host",
		Default: hostDefault,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" || strings.ContainsAny(s, " \t") {
				return fmt.Errorf("invalid host name")
			}
			return nil
		},
	}
	host, err := hostPrompt.Run()
	if err != nil {
		return current, err
	}
	res.Host = strings.TrimSpace(host)

	authPrompt := promptui.Prompt{
		Label: "OTA auth token (empty for none)",
		Mask:  '*',
	}
	auth, err := authPrompt.Run()
	if err != nil {
		return current, err
	}
	res.Auth = auth

	portDefault := ""
	if current.Port != 0 {
		portDefault = strconv.FormatUint(uint64(current.Port), 10)
	}
	portPrompt := promptui.Prompt{
		Label:   "OTA port (empty for the uploader's default)",
		Default: portDefault,
		Validate: func(s string) error {
			if s == "" {
				return nil
			}
			_, err := strconv.ParseUint(s, 10, 16)
			return err
		},
	}
	port, err := portPrompt.Run()
	if err != nil {
		return current, err
	}
	res.Port = 0
	if port != "" {
		p, _ := strconv.ParseUint(port, 10, 16)
		res.Port = uint(p)
	}
	return res, nil
}
