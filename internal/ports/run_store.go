package ports

import (
	"context"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// RunStore persiste las ejecuciones de backtest para su consulta posterior.
type RunStore interface {
	// SaveRun persiste el report y sus trades. Devuelve el ID asignado
	// a la ejecución.
	SaveRun(ctx context.Context, report *domain.Report) (string, error)

	// ListRuns devuelve las últimas ejecuciones, la más reciente primero.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
