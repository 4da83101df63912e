package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// csvHeader es la cabecera del fichero de trades. Una fila por trade,
// ventas parciales incluidas.
var csvHeader = []string{
	"position_id", "market_id", "question", "side",
	"entry_time", "entry_price", "exit_time", "exit_price",
	"shares", "pnl", "pnl_pct", "fees", "exit_reason", "final",
}

// CSVSink implementa ports.ResultSink volcando los trades a un CSV.
type CSVSink struct {
	path string
}

// NewCSV crea un sink que escribe en la ruta dada (sobreescribe).
func NewCSV(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Publish escribe el fichero completo. El orden de las filas es el orden
// de cierre del backtest, que es determinista.
func (s *CSVSink) Publish(_ context.Context, report *domain.Report) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("export.CSV: create %q: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("export.CSV: write header: %w", err)
	}

	for _, tr := range report.Trades {
		row := []string{
			strconv.Itoa(tr.PositionID),
			tr.MarketID,
			tr.Question,
			string(tr.Side),
			tr.EntryTime.UTC().Format(time.RFC3339),
			formatFloat(tr.EntryPrice),
			tr.ExitTime.UTC().Format(time.RFC3339),
			formatFloat(tr.ExitPrice),
			formatFloat(tr.Shares),
			formatFloat(tr.PnL),
			formatFloat(tr.PnLPct),
			formatFloat(tr.Fees),
			string(tr.ExitReason),
			strconv.FormatBool(tr.Final),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("export.CSV: write trade %d: %w", tr.PositionID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export.CSV: flush: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
