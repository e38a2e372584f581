// Copyright (C) 2021 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/spf13/cobra"
	"github.com/toitlang/autoupload/cmd/autoupload/directory"
	"github.com/toitlang/autoupload/cmd/autoupload/target"
	"go.uber.org/zap"
)

const (
	ToolsCfgKey        = "tools"
	EsptoolToolsCfgKey = "esptool"
	EspotaToolsCfgKey  = "espota"
	PythonToolsCfgKey  = "python"

	defaultAppOffset = "0x10000"
)

type uploadOptions struct {
	Chip     string
	Offset   string
	Firmware string
}

func UploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <firmware.bin>",
		Short: "Upload a firmware image over the selected transport",
		Long: "Select the upload transport like 'autoupload select' and upload the given\n" +
			"application image with it: esptool for serial ports, espota over the air.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := GetLogger(ctx)

			firmware := args[0]
			if stat, err := os.Stat(firmware); err != nil {
				return fmt.Errorf("failed to find firmware image: %w", err)
			} else if stat.IsDir() {
				return fmt.Errorf("the firmware image '%s' is a directory", firmware)
			}

			chip, err := cmd.Flags().GetString("chip")
			if err != nil {
				return err
			}

			offset, err := cmd.Flags().GetString("offset")
			if err != nil {
				return err
			}

			dryRun, err := cmd.Flags().GetBool("dry-run")
			if err != nil {
				return err
			}

			sel, err := resolveSelection(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), sel.Status())

			tool, err := uploaderCommand(cmd, sel)
			if err != nil {
				return err
			}
			argv := append(tool, uploaderArgs(sel, uploadOptions{
				Chip:     chip,
				Offset:   offset,
				Firmware: firmware,
			})...)

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), shellescape.QuoteCommand(argv))
				return nil
			}

			logger.Debug("running uploader", zap.Strings("argv", argv))
			if sel.Transport == target.TransportSerial {
				fmt.Fprintf(cmd.OutOrStdout(), "Flashing device over serial on port '%s' ...\n", sel.Port)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Flashing device over the air on '%s' ...\n", sel.Port)
			}
			uploadCmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
			uploadCmd.Stderr = os.Stderr
			uploadCmd.Stdout = os.Stdout
			return uploadCmd.Run()
		},
	}

	addSelectionFlags(cmd.Flags())
	cmd.Flags().StringP("chip", "c", "auto", "chip of the target device, for serial uploads")
	cmd.Flags().String("offset", defaultAppOffset, "flash offset of the application image, for serial uploads")
	cmd.Flags().String("esptool", "", "path to esptool (default from 'tools.esptool' in the user config, else esptool on the PATH)")
	cmd.Flags().String("espota", "", "path to espota.py (default from 'tools.espota' in the user config, else espota.py on the PATH)")
	cmd.Flags().Bool("dry-run", false, "print the upload command instead of running it")
	return cmd
}

// uploaderArgs returns the arguments for the uploader the selection names.
func uploaderArgs(sel target.Selection, opts uploadOptions) []string {
	if sel.Transport == target.TransportSerial {
		args := []string{"--chip", opts.Chip, "--port", sel.Port}
		if sel.Speed != 0 {
			args = append(args, "--baud", strconv.FormatUint(uint64(sel.Speed), 10))
		}
		args = append(args,
			"--before", "default_reset", "--after", "hard_reset",
			"write_flash", "-z", opts.Offset, opts.Firmware)
		return append(args, sel.Flags...)
	}

	args := []string{"-i", sel.Port}
	args = append(args, sel.Flags...)
	return append(args, "-r", "-f", opts.Firmware)
}

// uploaderCommand returns the command line that starts the uploader. Python
// scripts are run through the configured interpreter.
func uploaderCommand(cmd *cobra.Command, sel target.Selection) ([]string, error) {
	flag, key, def := "espota", EspotaToolsCfgKey, "espota.py"
	if sel.Transport == target.TransportSerial {
		flag, key, def = "esptool", EsptoolToolsCfgKey, directory.Executable("esptool")
	}

	path, err := cmd.Flags().GetString(flag)
	if err != nil {
		return nil, err
	}

	python := "python3"
	if cfg, err := directory.GetUserConfig(); err == nil {
		if path == "" {
			path = cfg.GetString(ToolsCfgKey + "." + key)
		}
		if p := cfg.GetString(ToolsCfgKey + "." + PythonToolsCfgKey); p != "" {
			python = p
		}
	}
	if path == "" {
		path = def
	}

	if strings.HasSuffix(path, ".py") {
		return []string{python, path}, nil
	}
	return []string{path}, nil
}
