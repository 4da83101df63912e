package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// CandleSource obtiene el histórico de precios de un mercado.
type CandleSource interface {
	// Candlesticks devuelve las velas del lado YES del mercado dentro
	// del rango [start, end], ordenadas por timestamp ascendente.
	// Un mercado sin histórico devuelve slice vacío, no error.
	Candlesticks(ctx context.Context, market domain.MarketSnapshot, interval domain.Interval, start, end time.Time) ([]domain.Candlestick, error)
}
