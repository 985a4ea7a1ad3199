// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// L is the process-wide logger. It is a zero-value-safe zerolog.Logger
// writing to stderr until InitLogger is called, so early bootstrap code
// (flag parsing, config loading) can log before the data path is known.
var L = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

// InitLogger switches L to its runtime configuration: console output plus
// a rotating file under <dataPath>/dropwatch.log, at the given level.
func InitLogger(dataPath string, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var writers []io.Writer
	writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})

	if dataPath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(dataPath, "dropwatch.log"),
			MaxSize:    64,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}

	L = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
}

// BootstrapFatal prints msg and exits before the runtime logger has been
// initialized, used for errors encountered while parsing flags or config.
func BootstrapFatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
