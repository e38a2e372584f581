// Copyright (C) 2021 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type ctxKey string

const (
	ctxKeyInfo   ctxKey = "info"
	ctxKeyLogger ctxKey = "logger"
)

type Info struct {
	Version string `mapstructure:"version" yaml:"version" json:"version"`
	Date    string `mapstructure:"date" yaml:"date" json:"date"`
}

func SetInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, ctxKeyInfo, info)
}

func GetInfo(ctx context.Context) Info {
	info, _ := ctx.Value(ctxKeyInfo).(Info)
	return info
}

func SetLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// GetLogger returns the logger of the running command, or a no-op logger.
func GetLogger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(ctxKeyLogger).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}

func AutoUploadCmd(isReleaseBuild bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoupload",
		Short: "Pick serial or over-the-air upload for ESP32 builds",
		Long: "autoupload decides how a firmware build uploads to the board.\n\n" +
			"If a USB-serial bridge (CP210x, CH340, FTDI, ESP32-Sx USB) is attached, the\n" +
			"firmware is flashed over serial with esptool. Otherwise it is sent over the\n" +
			"air with espota to the host configured for the build environment.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(SetLogger(ctx, logger))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			GetLogger(cmd.Context()).Sync()
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "log what autoupload looks at")

	cmd.AddCommand(
		SelectCmd(),
		UploadCmd(),
		PortsCmd(),
		ConfigCmd(),
		VersionCmd(isReleaseBuild),
	)
	return cmd
}
