package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

const historyPath = "/prices-history"

// Candlesticks obtiene la serie de precios del token YES vía el CLOB y la
// agrega en velas del intervalo pedido. Devuelve slice vacío (sin error)
// cuando el mercado no tiene histórico en el rango.
func (c *Client) Candlesticks(ctx context.Context, market domain.MarketSnapshot, interval domain.Interval, start, end time.Time) ([]domain.Candlestick, error) {
	if market.YesTokenID == "" {
		return nil, fmt.Errorf("clob.Candlesticks: market %s has no YES token", market.ID)
	}
	if !interval.Valid() {
		return nil, fmt.Errorf("clob.Candlesticks: invalid interval %d", interval)
	}

	// fidelity es la resolución en minutos de la serie que devuelve la API;
	// la alineamos con el intervalo de las velas.
	url := fmt.Sprintf("%s%s?market=%s&startTs=%d&endTs=%d&fidelity=%d",
		c.clobBase,
		historyPath,
		market.YesTokenID,
		start.Unix(),
		end.Unix(),
		int(interval),
	)

	var resp historyResponse
	if err := c.get(ctx, c.clobLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("clob.Candlesticks: market %s: %w", market.ID, err)
	}

	candles := bucketCandles(resp.History, interval)
	slog.Debug("price history fetched",
		"market", market.ID,
		"points", len(resp.History),
		"candles", len(candles),
	)
	return candles, nil
}
