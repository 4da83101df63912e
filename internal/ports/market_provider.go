package ports

import (
	"context"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// MarketProvider descubre mercados candidatos para un backtest.
type MarketProvider interface {
	// ListMarkets devuelve los mercados que cumplen los filtros de la
	// estrategia dentro de su rango de fechas, como máximo limit.
	// Pagina automáticamente hasta completar el cupo o agotar los
	// resultados de la API.
	ListMarkets(ctx context.Context, strategy domain.StrategyConfig, limit int) ([]domain.MarketSnapshot, error)
}
