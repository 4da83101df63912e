package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
	"github.com/google/uuid"
)

// SaveRun persiste el reporte completo de un backtest y devuelve el id
// asignado a la ejecución. El id es un uuid generado aquí: el Report en sí
// es determinista y no lleva identificadores.
func (s *SQLiteStore) SaveRun(ctx context.Context, report *domain.Report) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	cfgJSON, err := json.Marshal(report.Strategy)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: marshal strategy: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, strategy, created_at, start_date, end_date, interval_min,
			 start_capital, end_capital, markets_analyzed, markets_traded,
			 total_trades, win_rate, total_pnl, max_drawdown, sharpe_ratio,
			 config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		report.Strategy.Name,
		now,
		report.Strategy.StartDate.UTC().Format(time.RFC3339),
		report.Strategy.EndDate.UTC().Format(time.RFC3339),
		int(report.Strategy.Interval),
		report.StartingCapital,
		report.EndingCapital,
		report.MarketsAnalyzed,
		report.MarketsTraded,
		report.Metrics.TotalTrades,
		report.Metrics.WinRate,
		report.Metrics.TotalPnL,
		report.Metrics.MaxDrawdown,
		report.Metrics.SharpeRatio,
		string(cfgJSON),
	); err != nil {
		return "", fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_trades
			(run_id, position_id, market_id, question, side, entry_time,
			 entry_price, exit_time, exit_price, shares, pnl, pnl_pct, fees,
			 exit_reason, final)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	for _, tr := range report.Trades {
		final := 0
		if tr.Final {
			final = 1
		}
		if _, err := stmt.ExecContext(ctx,
			id,
			tr.PositionID,
			tr.MarketID,
			tr.Question,
			string(tr.Side),
			tr.EntryTime.UTC().Format(time.RFC3339),
			tr.EntryPrice,
			tr.ExitTime.UTC().Format(time.RFC3339),
			tr.ExitPrice,
			tr.Shares,
			tr.PnL,
			tr.PnLPct,
			tr.Fees,
			string(tr.ExitReason),
			final,
		); err != nil {
			return "", fmt.Errorf("storage.SaveRun: insert trade %d: %w", tr.PositionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return id, nil
}

// ListRuns devuelve los resúmenes de las ejecuciones más recientes,
// la última primero.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	// rowid desempata ejecuciones guardadas dentro del mismo segundo
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, created_at, start_date, end_date,
		       start_capital, end_capital, total_trades, win_rate,
		       total_pnl, max_drawdown, sharpe_ratio
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var createdAt, startDate, endDate string
		if err := rows.Scan(
			&r.ID,
			&r.Strategy,
			&createdAt,
			&startDate,
			&endDate,
			&r.StartCapital,
			&r.EndCapital,
			&r.TotalTrades,
			&r.WinRate,
			&r.TotalPnL,
			&r.MaxDrawdown,
			&r.SharpeRatio,
		); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan row: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.StartDate, _ = time.Parse(time.RFC3339, startDate)
		r.EndDate, _ = time.Parse(time.RFC3339, endDate)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
