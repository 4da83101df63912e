package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
	// maxGammaPages corta la paginación si la API devuelve más páginas de
	// las razonables para una ventana de backtest.
	maxGammaPages = 200
)

// ListMarkets devuelve mercados binarios que cumplen los filtros de la
// estrategia, como máximo limit. Pagina GET /markets de Gamma acotando por
// fecha de resolución en la query y aplicando el resto de filtros en local.
func (c *Client) ListMarkets(ctx context.Context, strategy domain.StrategyConfig, limit int) ([]domain.MarketSnapshot, error) {
	if limit <= 0 {
		return nil, nil
	}

	markets := make([]domain.MarketSnapshot, 0, limit)
	seen := make(map[string]bool, limit)

	for page := 0; page < maxGammaPages && len(markets) < limit; page++ {
		batch, err := c.fetchGammaPage(ctx, strategy, page*gammaPageSize)
		if err != nil {
			return nil, fmt.Errorf("gamma.ListMarkets: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, gm := range batch {
			m, ok := mapGammaMarket(gm)
			if !ok || seen[m.ID] {
				continue
			}
			if !strategy.Markets.Matches(m, strategy.StartDate) {
				continue
			}
			seen[m.ID] = true
			markets = append(markets, m)
			if len(markets) == limit {
				break
			}
		}

		slog.Debug("gamma page fetched",
			"page", page,
			"batch", len(batch),
			"accepted", len(markets),
		)
	}

	slog.Info("market discovery complete",
		"candidates", len(markets),
		"limit", limit,
	)
	return markets, nil
}

// fetchGammaPage obtiene una página de GET /markets ordenada por id para que
// la paginación sea estable entre requests.
func (c *Client) fetchGammaPage(ctx context.Context, strategy domain.StrategyConfig, offset int) (gammaMarketsResponse, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", gammaPageSize))
	q.Set("offset", fmt.Sprintf("%d", offset))
	q.Set("order", "id")
	q.Set("ascending", "true")
	// Sin end_date_min la API devolvería años de mercados ya resueltos
	// antes del rango, que no aportan ni un candle al backtest.
	q.Set("end_date_min", strategy.StartDate.UTC().Format("2006-01-02"))
	if strategy.Markets.MaxHoursToResolution > 0 {
		maxEnd := strategy.StartDate.Add(time.Duration(strategy.Markets.MaxHoursToResolution * float64(time.Hour)))
		q.Set("end_date_max", maxEnd.UTC().Format("2006-01-02"))
	}
	if strategy.Markets.MinLiquidity > 0 {
		q.Set("liquidity_num_min", fmt.Sprintf("%.0f", strategy.Markets.MinLiquidity))
	}

	var resp gammaMarketsResponse
	reqURL := fmt.Sprintf("%s%s?%s", c.gammaBase, gammaMarketsPath, q.Encode())
	if err := c.get(ctx, c.gammaLimiter, reqURL, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
