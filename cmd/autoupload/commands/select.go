// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/toitlang/autoupload/cmd/autoupload/directory"
	"github.com/toitlang/autoupload/cmd/autoupload/target"
	"go.uber.org/zap"
)

func SelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select the upload transport for the current build",
		Long: "Select the upload transport for the current build and print the resulting\n" +
			"build configuration (UPLOAD_PROTOCOL, UPLOAD_PORT, UPLOAD_SPEED, UPLOAD_FLAGS).\n\n" +
			"This is meant to run as a pre-upload hook. It never fails because of the\n" +
			"attached devices or the project configuration: when nothing usable is\n" +
			"found it falls back to uploading over the air to '" + target.DefaultOTAHost + "'.\n\n" +
			"Build options are looked up in --option, then in the project's\n" +
			"[env:<name>] section (following 'extends' and [env]), then in the\n" +
			"defaults stored with 'autoupload config ota'.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := parseOutputFlag(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			sel, err := resolveSelection(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), sel.Status())

			buildCfg := target.NewBuildConfig()
			sel.Apply(buildCfg)
			return enc.Encode(buildConfigOutput{cfg: buildCfg})
		},
	}

	addSelectionFlags(cmd.Flags())
	cmd.Flags().StringP("output", "o", "env", "output format: env, json or yaml")
	return cmd
}

func addSelectionFlags(flags *pflag.FlagSet) {
	flags.StringP("env", "e", directory.GetBuildEnv(), "build environment whose project section is consulted")
	flags.String("project-dir", "", "project directory holding "+directory.ProjectConfigFile+" (default $"+directory.ProjectDirEnv+" or the working directory)")
	flags.StringToString("option", nil, "build option given by the build tool, as name=value (repeatable)")
	flags.Uint("upload-speed", 0, "baud rate for serial uploads, 0 keeps the build's own")
}

// resolveSelection enumerates the devices and reads the option sources named
// by the selection flags. Only malformed flags are errors.
func resolveSelection(cmd *cobra.Command) (target.Selection, error) {
	logger := GetLogger(cmd.Context())

	sources, err := optionSources(cmd, logger)
	if err != nil {
		return target.Selection{}, err
	}

	devices, err := target.Enumerate()
	if err != nil {
		logger.Warn("serial enumeration failed, assuming no devices", zap.Error(err))
		devices = nil
	}
	for _, d := range devices {
		logger.Debug("found serial device",
			zap.String("port", d.Name),
			zap.String("usb", d.USBID()),
			zap.String("description", d.Description),
			zap.String("manufacturer", d.Manufacturer),
			zap.String("match", string(target.Classify(d))))
	}

	sel := target.Select(devices, sources...)
	logger.Debug("selected upload transport",
		zap.String("transport", string(sel.Transport)),
		zap.String("protocol", sel.Protocol),
		zap.String("port", sel.Port))
	return sel, nil
}

func optionSources(cmd *cobra.Command, logger *zap.Logger) ([]target.OptionSource, error) {
	env, err := cmd.Flags().GetString("env")
	if err != nil {
		return nil, err
	}

	projectDir, err := cmd.Flags().GetString("project-dir")
	if err != nil {
		return nil, err
	}

	options, err := cmd.Flags().GetStringToString("option")
	if err != nil {
		return nil, err
	}
	buildOptions := target.BuildOptions{}
	for k, v := range options {
		buildOptions[k] = v
	}

	if cmd.Flags().Changed("upload-speed") {
		speed, err := cmd.Flags().GetUint("upload-speed")
		if err != nil {
			return nil, err
		}
		if speed != 0 {
			buildOptions[target.OptionUploadSpeed] = strconv.FormatUint(uint64(speed), 10)
		}
	}

	if projectDir == "" {
		if projectDir, err = directory.GetProjectDir(); err != nil {
			logger.Debug("no project directory", zap.Error(err))
		}
	}

	var project *target.ProjectSection
	if projectDir != "" {
		path := directory.GetProjectConfigPath(projectDir)
		projectCfg, err := directory.GetProjectConfig(path)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no project config", zap.String("path", path))
		} else if err != nil {
			logger.Warn("project config unreadable, ignoring its options", zap.String("path", path), zap.Error(err))
		}
		project = target.NewProjectSection(projectCfg, env)
	}

	userCfg, err := directory.GetUserConfig()
	if err != nil {
		logger.Debug("user config unavailable", zap.Error(err))
	}

	return []target.OptionSource{
		buildOptions,
		project,
		target.NewUserDefaults(userCfg),
	}, nil
}
