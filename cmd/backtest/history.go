package main

import (
	"context"

	"github.com/alejandrodnm/polyback/config"
	"github.com/alejandrodnm/polyback/internal/adapters/notify"
	"github.com/alejandrodnm/polyback/internal/adapters/storage"
)

// printHistory muestra las últimas ejecuciones guardadas en la base local.
func printHistory(ctx context.Context, cfg *config.Config, limit int) error {
	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	notify.NewConsole(false).PrintHistory(runs)
	return nil
}
