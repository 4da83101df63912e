package backtest

// fetch.go: descarga concurrente del histórico de velas por mercado.
//
// La fase de fetch es la única parte paralela del backtest: descargar 500
// históricos en serie tardaría minutos; con el pool se solapan las esperas
// de red y el rate limiter del adapter sigue gobernando el ritmo real.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/polyback/internal/domain"
	"github.com/alejandrodnm/polyback/internal/ports"
)

// fetchSeries descarga las velas de todos los mercados usando un worker
// pool. Un mercado que falla se registra y queda con serie vacía: el
// replay lo contará como analizado pero no generará eventos. Solo la
// cancelación del contexto aborta el fetch completo.
//
// Si workers <= 0 usa runtime.NumCPU() × 2.
func fetchSeries(
	ctx context.Context,
	source ports.CandleSource,
	cfg domain.StrategyConfig,
	markets []domain.MarketSnapshot,
	workers int,
) (map[string][]domain.Candlestick, error) {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	type result struct {
		marketID string
		candles  []domain.Candlestick
	}

	workCh := make(chan domain.MarketSnapshot, len(markets))
	resultCh := make(chan result, len(markets))

	// Worker pool: cada worker toma mercados de workCh y envía series a resultCh.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range workCh {
				candles, err := source.Candlesticks(ctx, m, cfg.Interval, cfg.StartDate, cfg.EndDate)
				if err != nil {
					if ctx.Err() == nil {
						slog.Warn("fetch de velas falló, mercado sin serie",
							"market_id", m.ID,
							"err", err,
						)
					}
					resultCh <- result{marketID: m.ID}
					continue
				}
				resultCh <- result{marketID: m.ID, candles: candles}
			}
		}()
	}

	for _, m := range markets {
		workCh <- m
	}
	close(workCh)

	// Cerrar resultCh cuando todos los workers terminen.
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	series := make(map[string][]domain.Candlestick, len(markets))
	total := 0
	for r := range resultCh {
		series[r.marketID] = r.candles
		total += len(r.candles)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Debug("fetch de históricos completado",
		"markets", len(markets),
		"candles", total,
		"workers", workers,
	)

	return series, nil
}
