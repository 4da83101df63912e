package export_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/polyback/internal/adapters/export"
	"github.com/alejandrodnm/polyback/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeExportReport() *domain.Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Report{
		Strategy: domain.StrategyConfig{
			Name:      "export-fixture",
			StartDate: start,
			EndDate:   start.AddDate(0, 0, 3),
			Interval:  domain.Interval1h,
			Entry: domain.EntryConfig{
				Side:    domain.EntryYes,
				YesBand: domain.PriceBand{Min: 0.40, Max: 0.60},
			},
			Exit: domain.ExitConfig{
				ResolveOnExpiry: true,
				TakeProfitPct:   20,
				Trailing:        &domain.TrailingConfig{ActivationPct: 10, TrailPct: 5},
			},
			Sizing:          domain.SizingConfig{Mode: domain.SizingFixed, Amount: 100},
			InitialBankroll: 10_000,
		},
		StartingCapital: 10_000,
		EndingCapital:   10_020,
		MarketsAnalyzed: 5,
		MarketsTraded:   1,
		Trades: []domain.TradeRecord{
			{
				PositionID: 1,
				MarketID:   "0xaaa",
				Question:   "Will it work, with a comma?",
				Side:       domain.SideYes,
				EntryTime:  start.Add(time.Hour),
				EntryPrice: 0.45,
				ExitTime:   start.Add(6 * time.Hour),
				ExitPrice:  0.54,
				Shares:     222.22,
				PnL:        20,
				PnLPct:     20,
				Fees:       0.5,
				ExitReason: domain.ExitTakeProfit,
				Final:      true,
			},
		},
		Metrics: domain.Metrics{
			TotalTrades: 1,
			Wins:        1,
			WinRate:     100,
			TotalPnL:    20,
			BySide: []domain.SideStats{
				{Side: domain.SideYes, Trades: 1, Wins: 1, WinRate: 100, PnL: 20, AvgPnL: 20},
			},
			ExitBreakdown: []domain.ExitCount{
				{Reason: domain.ExitTakeProfit, Count: 1, PnL: 20},
			},
		},
		EquityCurve: []domain.EquityPoint{
			{Timestamp: start.Add(time.Hour), Equity: 10_000},
			{Timestamp: start.Add(6 * time.Hour), Equity: 10_020},
		},
	}
}

func TestCSVSink_WritesOneRowPerTrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	sink := export.NewCSV(path)

	err := sink.Publish(context.Background(), makeExportReport())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2) // cabecera + 1 trade

	assert.Equal(t, "position_id", rows[0][0])
	assert.Equal(t, "exit_reason", rows[0][12])

	row := rows[1]
	assert.Equal(t, "1", row[0])
	assert.Equal(t, "0xaaa", row[1])
	assert.Equal(t, "Will it work, with a comma?", row[2])
	assert.Equal(t, "YES", row[3])
	assert.Equal(t, "2024-01-01T01:00:00Z", row[4])
	assert.Equal(t, "0.45", row[5])
	assert.Equal(t, "222.22", row[8])
	assert.Equal(t, "TAKE_PROFIT", row[12])
	assert.Equal(t, "true", row[13])
}

func TestCSVSink_EmptyReportStillWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	sink := export.NewCSV(path)

	report := makeExportReport()
	report.Trades = nil

	err := sink.Publish(context.Background(), report)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestJSONSink_WritesFullDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	sink := export.NewJSON(path)

	err := sink.Publish(context.Background(), makeExportReport())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	strategy, ok := doc["strategy"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "export-fixture", strategy["name"])
	assert.Equal(t, float64(60), strategy["interval_min"])

	entry := strategy["entry"].(map[string]any)
	band := entry["yes_band"].(map[string]any)
	assert.InDelta(t, 0.40, band["min"].(float64), 1e-9)
	// la banda NO no está configurada y no debe aparecer
	_, hasNoBand := entry["no_band"]
	assert.False(t, hasNoBand)

	exit := strategy["exit"].(map[string]any)
	trailing := exit["trailing"].(map[string]any)
	assert.InDelta(t, 5, trailing["trail_pct"].(float64), 1e-9)

	metrics := doc["metrics"].(map[string]any)
	assert.InDelta(t, 100, metrics["win_rate"].(float64), 1e-9)

	trades := doc["trades"].([]any)
	require.Len(t, trades, 1)
	trade := trades[0].(map[string]any)
	assert.Equal(t, "TAKE_PROFIT", trade["exit_reason"])

	equity := doc["equity_curve"].([]any)
	assert.Len(t, equity, 2)
}

func TestJSONSink_CreateErrorIsWrapped(t *testing.T) {
	sink := export.NewJSON(filepath.Join(t.TempDir(), "missing", "report.json"))
	err := sink.Publish(context.Background(), makeExportReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.JSON")
}
