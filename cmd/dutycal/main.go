package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"dutycal/internal/config"
	appLog "dutycal/internal/log"
)

const version = "0.1.0"

// flagConfig holds CLI flag values; non-empty values override the file.
type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
	snapshot   bool
}

func main() {
	flags := parseFlags()
	os.Exit(run(flags))
}

func run(flags flagConfig) int {
	appLog.Info("dutycal starting", "version", version)

	conf, err := config.Load(flags.configPath)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				appLog.Warn("config problem", "config_path", flags.configPath, "problem", p)
			}
		}
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Error("invalid log level", err, "log_level", conf.LogLevel)
		return 1
	}
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"rollover", conf.Rollover,
		"groups", len(conf.Groups),
		"builtin_holidays", conf.Holidays.Builtin,
		"ics_count", len(conf.Holidays.ICS),
		"locations", len(conf.Locations),
		"snapshot", conf.Snapshot != nil,
		"once", flags.once,
	)

	a, err := buildApp(conf, time.Now)
	if err != nil {
		appLog.Error("failed to initialize", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(a.summary(ctx)); err != nil {
			appLog.Error("failed to write summary", err)
			return 1
		}
		return 0
	}

	if flags.snapshot {
		if err := a.snapshot(ctx); err != nil {
			appLog.Error("snapshot failed", err)
			return 1
		}
		return 0
	}

	a.rollover(ctx)

	sched, err := newScheduler(ctx, a)
	if err != nil {
		appLog.Error("failed to schedule jobs", err)
		return 1
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
		appLog.Info("scheduler stopped")
	}()

	if err := a.server.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		return 1
	}
	appLog.Info("dutycal exiting")
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/dutycal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Print today's calendar summary as JSON and exit")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Capture the board page to PNG once and exit")

	flag.Parse()

	return cfg
}
