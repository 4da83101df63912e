package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/polyback/internal/domain"
)

// Documento JSON del reporte. El dominio no lleva tags de serialización,
// así que el formato externo se define aquí, igual que los DTOs de la API.

type reportDoc struct {
	Strategy        strategyDoc  `json:"strategy"`
	StartingCapital float64      `json:"starting_capital"`
	EndingCapital   float64      `json:"ending_capital"`
	MarketsAnalyzed int          `json:"markets_analyzed"`
	MarketsTraded   int          `json:"markets_traded"`
	Metrics         metricsDoc   `json:"metrics"`
	Trades          []tradeDoc   `json:"trades"`
	EquityCurve     []equityDoc  `json:"equity_curve"`
	DrawdownCurve   []ddDoc      `json:"drawdown_curve"`
	DailyPnL        []dailyDoc   `json:"daily_pnl"`
	Utilization     []utilizeDoc `json:"utilization"`
}

type strategyDoc struct {
	Name            string     `json:"name"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	IntervalMin     int        `json:"interval_min"`
	InitialBankroll float64    `json:"initial_bankroll"`
	Markets         marketsDoc `json:"market_filters"`
	Entry           entryDoc   `json:"entry"`
	Exit            exitDoc    `json:"exit"`
	Sizing          sizingDoc  `json:"sizing"`
	Fees            *feeDoc    `json:"fees,omitempty"`
}

type marketsDoc struct {
	Categories           []string `json:"categories,omitempty"`
	MinLiquidity         float64  `json:"min_liquidity,omitempty"`
	MaxLiquidity         float64  `json:"max_liquidity,omitempty"`
	MinHoursToResolution float64  `json:"min_hours_to_resolution,omitempty"`
	MaxHoursToResolution float64  `json:"max_hours_to_resolution,omitempty"`
}

type entryDoc struct {
	Side            string   `json:"side"`
	YesBand         *bandDoc `json:"yes_band,omitempty"`
	NoBand          *bandDoc `json:"no_band,omitempty"`
	EarliestEntry   string   `json:"earliest_entry,omitempty"`
	LatestEntry     string   `json:"latest_entry,omitempty"`
	MaxTradesPerDay int      `json:"max_trades_per_day,omitempty"`
	CooldownHours   float64  `json:"cooldown_hours,omitempty"`
}

type bandDoc struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type exitDoc struct {
	ResolveOnExpiry bool     `json:"resolve_on_expiry"`
	StopLossPct     float64  `json:"stop_loss_pct,omitempty"`
	TakeProfitPct   float64  `json:"take_profit_pct,omitempty"`
	MaxHoldHours    float64  `json:"max_hold_hours,omitempty"`
	Trailing        *tlgDoc  `json:"trailing,omitempty"`
	PartialTier1    *tierDoc `json:"partial_tier1,omitempty"`
	PartialTier2    *tierDoc `json:"partial_tier2,omitempty"`
}

type tlgDoc struct {
	ActivationPct float64 `json:"activation_pct"`
	TrailPct      float64 `json:"trail_pct"`
}

type tierDoc struct {
	TriggerPct float64 `json:"trigger_pct"`
	SellPct    float64 `json:"sell_pct"`
}

type sizingDoc struct {
	Mode           string  `json:"mode"`
	Amount         float64 `json:"amount,omitempty"`
	Percent        float64 `json:"percent,omitempty"`
	MaxExposurePct float64 `json:"max_exposure_pct,omitempty"`
}

type feeDoc struct {
	Mode  string  `json:"mode"`
	Value float64 `json:"value"`
}

type metricsDoc struct {
	TotalTrades       int          `json:"total_trades"`
	Wins              int          `json:"wins"`
	Losses            int          `json:"losses"`
	BreakEvens        int          `json:"break_evens"`
	WinRate           float64      `json:"win_rate"`
	TotalPnL          float64      `json:"total_pnl"`
	TotalPnLPct       float64      `json:"total_pnl_pct"`
	TotalFees         float64      `json:"total_fees"`
	AvgWin            float64      `json:"avg_win"`
	AvgLoss           float64      `json:"avg_loss"`
	ProfitFactor      float64      `json:"profit_factor"`
	MaxDrawdown       float64      `json:"max_drawdown"`
	SharpeRatio       float64      `json:"sharpe_ratio"`
	BestTrade         float64      `json:"best_trade"`
	WorstTrade        float64      `json:"worst_trade"`
	LongestWinStreak  int          `json:"longest_win_streak"`
	LongestLossStreak int          `json:"longest_loss_streak"`
	AvgHoldHours      float64      `json:"avg_hold_hours"`
	BySide            []sideDoc    `json:"by_side"`
	ExitBreakdown     []exitCntDoc `json:"exit_breakdown"`
}

type sideDoc struct {
	Side    string  `json:"side"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"win_rate"`
	PnL     float64 `json:"pnl"`
	AvgPnL  float64 `json:"avg_pnl"`
}

type exitCntDoc struct {
	Reason string  `json:"reason"`
	Count  int     `json:"count"`
	PnL    float64 `json:"pnl"`
}

type tradeDoc struct {
	PositionID int       `json:"position_id"`
	MarketID   string    `json:"market_id"`
	Question   string    `json:"question"`
	Side       string    `json:"side"`
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitTime   time.Time `json:"exit_time"`
	ExitPrice  float64   `json:"exit_price"`
	Shares     float64   `json:"shares"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
	Fees       float64   `json:"fees"`
	ExitReason string    `json:"exit_reason"`
	Final      bool      `json:"final"`
}

type equityDoc struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

type ddDoc struct {
	Timestamp time.Time `json:"timestamp"`
	Drawdown  float64   `json:"drawdown"`
	Pct       float64   `json:"pct"`
}

type dailyDoc struct {
	Date time.Time `json:"date"`
	PnL  float64   `json:"pnl"`
}

type utilizeDoc struct {
	Timestamp time.Time `json:"timestamp"`
	Pct       float64   `json:"pct"`
}

// JSONSink implementa ports.ResultSink volcando el reporte completo a JSON.
type JSONSink struct {
	path string
}

// NewJSON crea un sink que escribe en la ruta dada (sobreescribe).
func NewJSON(path string) *JSONSink {
	return &JSONSink{path: path}
}

// Publish serializa el reporte completo, indentado para poder leerlo a mano.
func (s *JSONSink) Publish(_ context.Context, report *domain.Report) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("export.JSON: create %q: %w", s.path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toDoc(report)); err != nil {
		return fmt.Errorf("export.JSON: encode: %w", err)
	}
	return nil
}

// toDoc convierte el reporte del dominio al documento externo.
func toDoc(r *domain.Report) reportDoc {
	doc := reportDoc{
		Strategy:        toStrategyDoc(r.Strategy),
		StartingCapital: r.StartingCapital,
		EndingCapital:   r.EndingCapital,
		MarketsAnalyzed: r.MarketsAnalyzed,
		MarketsTraded:   r.MarketsTraded,
		Metrics:         toMetricsDoc(r.Metrics),
		Trades:          make([]tradeDoc, 0, len(r.Trades)),
		EquityCurve:     make([]equityDoc, 0, len(r.EquityCurve)),
		DrawdownCurve:   make([]ddDoc, 0, len(r.DrawdownCurve)),
		DailyPnL:        make([]dailyDoc, 0, len(r.DailyPnL)),
		Utilization:     make([]utilizeDoc, 0, len(r.Utilization)),
	}

	for _, tr := range r.Trades {
		doc.Trades = append(doc.Trades, tradeDoc{
			PositionID: tr.PositionID,
			MarketID:   tr.MarketID,
			Question:   tr.Question,
			Side:       string(tr.Side),
			EntryTime:  tr.EntryTime.UTC(),
			EntryPrice: tr.EntryPrice,
			ExitTime:   tr.ExitTime.UTC(),
			ExitPrice:  tr.ExitPrice,
			Shares:     tr.Shares,
			PnL:        tr.PnL,
			PnLPct:     tr.PnLPct,
			Fees:       tr.Fees,
			ExitReason: string(tr.ExitReason),
			Final:      tr.Final,
		})
	}
	for _, p := range r.EquityCurve {
		doc.EquityCurve = append(doc.EquityCurve, equityDoc{Timestamp: p.Timestamp.UTC(), Equity: p.Equity})
	}
	for _, p := range r.DrawdownCurve {
		doc.DrawdownCurve = append(doc.DrawdownCurve, ddDoc{Timestamp: p.Timestamp.UTC(), Drawdown: p.Drawdown, Pct: p.Pct})
	}
	for _, p := range r.DailyPnL {
		doc.DailyPnL = append(doc.DailyPnL, dailyDoc{Date: p.Date.UTC(), PnL: p.PnL})
	}
	for _, p := range r.Utilization {
		doc.Utilization = append(doc.Utilization, utilizeDoc{Timestamp: p.Timestamp.UTC(), Pct: p.Pct})
	}

	return doc
}

func toStrategyDoc(cfg domain.StrategyConfig) strategyDoc {
	doc := strategyDoc{
		Name:            cfg.Name,
		StartDate:       cfg.StartDate.UTC(),
		EndDate:         cfg.EndDate.UTC(),
		IntervalMin:     int(cfg.Interval),
		InitialBankroll: cfg.InitialBankroll,
		Markets: marketsDoc{
			Categories:           cfg.Markets.Categories,
			MinLiquidity:         cfg.Markets.MinLiquidity,
			MaxLiquidity:         cfg.Markets.MaxLiquidity,
			MinHoursToResolution: cfg.Markets.MinHoursToResolution,
			MaxHoursToResolution: cfg.Markets.MaxHoursToResolution,
		},
		Entry: entryDoc{
			Side:            string(cfg.Entry.Side),
			MaxTradesPerDay: cfg.Entry.MaxTradesPerDay,
			CooldownHours:   cfg.Entry.CooldownHours,
		},
		Exit: exitDoc{
			ResolveOnExpiry: cfg.Exit.ResolveOnExpiry,
			StopLossPct:     cfg.Exit.StopLossPct,
			TakeProfitPct:   cfg.Exit.TakeProfitPct,
			MaxHoldHours:    cfg.Exit.MaxHoldHours,
		},
		Sizing: sizingDoc{
			Mode:           string(cfg.Sizing.Mode),
			Amount:         cfg.Sizing.Amount,
			Percent:        cfg.Sizing.Percent,
			MaxExposurePct: cfg.Sizing.MaxExposurePct,
		},
	}

	if cfg.Entry.YesBand.Set() {
		doc.Entry.YesBand = &bandDoc{Min: cfg.Entry.YesBand.Min, Max: cfg.Entry.YesBand.Max}
	}
	if cfg.Entry.NoBand.Set() {
		doc.Entry.NoBand = &bandDoc{Min: cfg.Entry.NoBand.Min, Max: cfg.Entry.NoBand.Max}
	}
	if !cfg.Entry.EarliestEntry.IsZero() {
		doc.Entry.EarliestEntry = cfg.Entry.EarliestEntry.UTC().Format(time.RFC3339)
	}
	if !cfg.Entry.LatestEntry.IsZero() {
		doc.Entry.LatestEntry = cfg.Entry.LatestEntry.UTC().Format(time.RFC3339)
	}
	if t := cfg.Exit.Trailing; t != nil {
		doc.Exit.Trailing = &tlgDoc{ActivationPct: t.ActivationPct, TrailPct: t.TrailPct}
	}
	if t := cfg.Exit.PartialTier1; t != nil {
		doc.Exit.PartialTier1 = &tierDoc{TriggerPct: t.TriggerPct, SellPct: t.SellPct}
	}
	if t := cfg.Exit.PartialTier2; t != nil {
		doc.Exit.PartialTier2 = &tierDoc{TriggerPct: t.TriggerPct, SellPct: t.SellPct}
	}
	if cfg.Fees != nil {
		doc.Fees = &feeDoc{Mode: string(cfg.Fees.Mode), Value: cfg.Fees.Value}
	}

	return doc
}

func toMetricsDoc(m domain.Metrics) metricsDoc {
	doc := metricsDoc{
		TotalTrades:       m.TotalTrades,
		Wins:              m.Wins,
		Losses:            m.Losses,
		BreakEvens:        m.BreakEvens,
		WinRate:           m.WinRate,
		TotalPnL:          m.TotalPnL,
		TotalPnLPct:       m.TotalPnLPct,
		TotalFees:         m.TotalFees,
		AvgWin:            m.AvgWin,
		AvgLoss:           m.AvgLoss,
		ProfitFactor:      m.ProfitFactor,
		MaxDrawdown:       m.MaxDrawdown,
		SharpeRatio:       m.SharpeRatio,
		BestTrade:         m.BestTrade,
		WorstTrade:        m.WorstTrade,
		LongestWinStreak:  m.LongestWinStreak,
		LongestLossStreak: m.LongestLossStreak,
		AvgHoldHours:      m.AvgHoldHours,
		BySide:            make([]sideDoc, 0, len(m.BySide)),
		ExitBreakdown:     make([]exitCntDoc, 0, len(m.ExitBreakdown)),
	}

	for _, s := range m.BySide {
		doc.BySide = append(doc.BySide, sideDoc{
			Side:    string(s.Side),
			Trades:  s.Trades,
			Wins:    s.Wins,
			Losses:  s.Losses,
			WinRate: s.WinRate,
			PnL:     s.PnL,
			AvgPnL:  s.AvgPnL,
		})
	}
	for _, e := range m.ExitBreakdown {
		doc.ExitBreakdown = append(doc.ExitBreakdown, exitCntDoc{
			Reason: string(e.Reason),
			Count:  e.Count,
			PnL:    e.PnL,
		})
	}

	return doc
}
