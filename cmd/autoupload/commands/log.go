// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/toitlang/autoupload/cmd/autoupload/directory"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const LogCfgKey = "log"

type logConfig struct {
	Level      string `mapstructure:"level" yaml:"level" json:"level"`
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	MaxSize    int    `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAge     int    `mapstructure:"maxAge" yaml:"maxAge" json:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress" json:"compress"`
}

func defaultLogConfig() logConfig {
	return logConfig{
		Level:      "warn",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// loadLogConfig never fails: a broken user config must not break the build.
func loadLogConfig() logConfig {
	res := defaultLogConfig()
	cfg, err := directory.GetUserConfig()
	if err != nil || !cfg.IsSet(LogCfgKey) {
		return res
	}
	if err := cfg.UnmarshalKey(LogCfgKey, &res); err != nil {
		return defaultLogConfig()
	}
	return res
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}

	lc := loadLogConfig()
	if verbose {
		lc.Level = "debug"
	}
	return buildLogger(lc, zapcore.AddSync(cmd.ErrOrStderr())), nil
}

func buildLogger(lc logConfig, console zapcore.WriteSyncer) *zap.Logger {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		level = zapcore.WarnLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.TimeKey = ""
	consoleCfg.CallerKey = ""
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), console, level),
	}

	if lc.File != "" {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		rotating := &lumberjack.Logger{
			Filename:   os.ExpandEnv(lc.File),
			MaxSize:    lc.MaxSize,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAge,
			Compress:   lc.Compress,
		}
		// The file always gets the details, whatever the console shows.
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotating), zapcore.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if err != nil {
		logger.Warn("unknown log level, using warn", zap.String("level", lc.Level))
	}
	return logger
}
