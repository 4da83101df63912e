package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/polyback/config"
)

func main() {
	configPath := flag.String("config", "", "path to app config file (optional)")
	strategyPath := flag.String("strategy", "", "path to strategy YAML file")
	csvPath := flag.String("csv", "", "export closed trades to a CSV file")
	jsonPath := flag.String("json", "", "export the full report to a JSON file")
	saveRun := flag.Bool("db", false, "persist the run to the local database")
	history := flag.Int("history", 0, "print the last N saved runs and exit")
	trades := flag.Bool("trades", false, "print per-trade detail and daily P&L")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *history > 0 {
		if err := printHistory(ctx, cfg, *history); err != nil {
			slog.Error("history failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if *strategyPath == "" {
		slog.Error("missing required -strategy flag")
		flag.Usage()
		os.Exit(2)
	}

	opts := runOptions{
		csvPath:    *csvPath,
		jsonPath:   *jsonPath,
		saveRun:    *saveRun,
		withTrades: *trades,
	}
	if err := runBacktest(ctx, cfg, *strategyPath, opts); err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
