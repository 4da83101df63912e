package ports

import (
	"context"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// ResultSink presenta o exporta el resultado de un backtest.
type ResultSink interface {
	// Publish entrega el report completo al destino (consola, CSV, JSON).
	Publish(ctx context.Context, report *domain.Report) error
}
