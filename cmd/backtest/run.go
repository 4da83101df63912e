package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polyback/config"
	"github.com/alejandrodnm/polyback/internal/adapters/export"
	"github.com/alejandrodnm/polyback/internal/adapters/notify"
	"github.com/alejandrodnm/polyback/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyback/internal/adapters/storage"
	"github.com/alejandrodnm/polyback/internal/application/backtest"
	"github.com/alejandrodnm/polyback/internal/ports"
)

// runOptions agrupa los flags que controlan la salida de una ejecución.
type runOptions struct {
	csvPath    string
	jsonPath   string
	saveRun    bool
	withTrades bool
}

// runBacktest carga la estrategia, descubre mercados, ejecuta el replay y
// reparte el report entre los sinks configurados.
func runBacktest(ctx context.Context, cfg *config.Config, strategyPath string, opts runOptions) error {
	strategy, err := config.LoadStrategy(strategyPath)
	if err != nil {
		return err
	}

	slog.Info("polyback starting",
		"strategy", strategy.Name,
		"start", strategy.StartDate.Format("2006-01-02"),
		"end", strategy.EndDate.Format("2006-01-02"),
		"interval_min", int(strategy.Interval),
		"bankroll", fmt.Sprintf("%.2f", strategy.InitialBankroll),
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	markets, err := client.ListMarkets(ctx, strategy, cfg.Backtest.MaxMarkets)
	if err != nil {
		return fmt.Errorf("market discovery: %w", err)
	}
	if len(markets) == 0 {
		slog.Warn("no markets matched the strategy filters")
	}

	report, err := backtest.RunWithWorkers(ctx, strategy, markets, client, cfg.Backtest.FetchWorkers)
	if err != nil {
		return err
	}

	sinks := []ports.ResultSink{notify.NewConsole(opts.withTrades)}
	if opts.csvPath != "" {
		sinks = append(sinks, export.NewCSV(opts.csvPath))
	}
	if opts.jsonPath != "" {
		sinks = append(sinks, export.NewJSON(opts.jsonPath))
	}

	for _, sink := range sinks {
		if err := sink.Publish(ctx, report); err != nil {
			slog.Warn("result sink failed", "err", err)
		}
	}

	if opts.saveRun {
		store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.SaveRun(ctx, report)
		if err != nil {
			return err
		}
		slog.Info("run saved", "id", id, "db", cfg.Storage.DSN)
	}
	return nil
}
