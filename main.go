package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/screener/screener-go/cmd"
	"github.com/screener/screener-go/internal/conf"
	"github.com/screener/screener-go/internal/logging"
	"github.com/screener/screener-go/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	settings, err := conf.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	if settings.Main.LogFile != "" {
		closeLogs, err := logging.InitFile(settings.Main.LogFile, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file, logging to stdout: %v\n", err)
			logging.Init(level)
		} else {
			defer closeLogs()
		}
	} else {
		logging.Init(level)
	}

	tel := settings.Realtime.Telemetry
	if err := telemetry.InitSentry(tel.SentryOptI, tel.SentryDSN, version); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing error reporting: %v\n", err)
	}
	defer telemetry.Shutdown()

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "command error: %v\n", err)
		os.Exit(1)
	}
}
